package engine

import (
	"context"
	"sort"

	"github.com/AccelByte/extend-mission-common/pkg/cache"
	"github.com/AccelByte/extend-mission-common/pkg/domain"
	"github.com/AccelByte/extend-mission-common/pkg/errors"
	"github.com/AccelByte/extend-mission-common/pkg/repository"
)

// MissionView pairs a progress record with its template for rendering.
// Template is nil if the catalog no longer has it.
type MissionView struct {
	Progress *domain.MissionProgress `json:"progress"`
	Template *domain.MissionTemplate `json:"template,omitempty"`
}

// SpotCount summarizes spot missions at one place.
type SpotCount struct {
	PlaceID   string `json:"place_id"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// Query is the read-only surface used by UI collaborators. It never writes.
type Query struct {
	progress repository.MissionProgressStore
	badges   repository.BadgeStore
	catalog  cache.MissionCache
}

// NewQuery creates a new Query.
func NewQuery(progress repository.MissionProgressStore, badges repository.BadgeStore, catalog cache.MissionCache) *Query {
	return &Query{
		progress: progress,
		badges:   badges,
		catalog:  catalog,
	}
}

// MissionProgress returns the user's progress records of missionType, or of every type if missionType is empty.
func (q *Query) MissionProgress(ctx context.Context, userID string, missionType domain.MissionType) ([]MissionView, error) {
	if userID == "" {
		return nil, errors.ErrNotAuthenticated()
	}

	var (
		records []*domain.MissionProgress
		err     error
	)
	if missionType == "" {
		records, err = q.progress.GetUserMissionProgress(ctx, userID)
	} else {
		records, err = q.progress.QueryMissionProgress(ctx, userID, missionType, "")
	}
	if err != nil {
		return nil, err
	}

	views := make([]MissionView, 0, len(records))
	for _, p := range records {
		views = append(views, MissionView{
			Progress: p,
			Template: q.catalog.GetTemplateByID(p.MissionTemplateID),
		})
	}
	return views, nil
}

// SpotCompletionCounts returns completed and total spot missions per place, ordered by place ID.
func (q *Query) SpotCompletionCounts(ctx context.Context, userID string) ([]SpotCount, error) {
	if userID == "" {
		return nil, errors.ErrNotAuthenticated()
	}

	records, err := q.progress.QueryMissionProgress(ctx, userID, domain.MissionTypeSpot, "")
	if err != nil {
		return nil, err
	}

	byPlace := make(map[string]*SpotCount)
	for _, p := range records {
		c, ok := byPlace[p.PlaceID]
		if !ok {
			c = &SpotCount{PlaceID: p.PlaceID}
			byPlace[p.PlaceID] = c
		}
		c.Total++
		if p.IsCompleted {
			c.Completed++
		}
	}

	counts := make([]SpotCount, 0, len(byPlace))
	for _, c := range byPlace {
		counts = append(counts, *c)
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].PlaceID < counts[j].PlaceID })
	return counts, nil
}

// ObtainedBadgeCount returns completed spots plus every obtained milestone.
// A user without a badge record has 0.
func (q *Query) ObtainedBadgeCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, errors.ErrNotAuthenticated()
	}

	record, err := q.badges.GetBadgeRecord(ctx, userID)
	if errors.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return record.ObtainedCount(), nil
}

// BadgeRecord returns the user's badge record.
func (q *Query) BadgeRecord(ctx context.Context, userID string) (*domain.BadgeRecord, error) {
	if userID == "" {
		return nil, errors.ErrNotAuthenticated()
	}
	return q.badges.GetBadgeRecord(ctx, userID)
}
