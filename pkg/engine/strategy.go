package engine

import (
	"context"
	"strings"
	"time"

	"github.com/AccelByte/extend-mission-common/pkg/common"
	"github.com/AccelByte/extend-mission-common/pkg/domain"
	"github.com/AccelByte/extend-mission-common/pkg/repository"
)

// missionStrategy holds the per-type addressing and matching rules.
type missionStrategy interface {
	missionType() domain.MissionType

	// placeScope returns the place to query and whether the type takes part in this dispatch.
	placeScope(actx domain.ActionContext) (placeID string, ok bool)

	// eligible applies the type-specific predicate to an incomplete record whose action already matched.
	eligible(p *domain.MissionProgress, t *domain.MissionTemplate, action domain.Action, actx domain.ActionContext, now time.Time) bool

	// onCompleted runs type-specific bookkeeping after a record of this type completes.
	onCompleted(ctx context.Context, userID string, p *domain.MissionProgress) error
}

// spotStrategy addresses records by place. Only the active record at a place can advance.
type spotStrategy struct {
	progress repository.MissionProgressStore
	spots    SpotRecorder
}

func (s *spotStrategy) missionType() domain.MissionType { return domain.MissionTypeSpot }

func (s *spotStrategy) placeScope(actx domain.ActionContext) (string, bool) {
	return actx.PlaceID, actx.PlaceID != ""
}

func (s *spotStrategy) eligible(p *domain.MissionProgress, _ *domain.MissionTemplate, _ domain.Action, actx domain.ActionContext, _ time.Time) bool {
	return p.IsActive && p.PlaceID == actx.PlaceID
}

// onCompleted opens the next spot mission at the place, or marks the place
// completed once no incomplete spot mission is left there.
func (s *spotStrategy) onCompleted(ctx context.Context, userID string, p *domain.MissionProgress) error {
	records, err := s.progress.QueryMissionProgress(ctx, userID, domain.MissionTypeSpot, p.PlaceID)
	if err != nil {
		return err
	}

	var next *domain.MissionProgress
	remaining := 0
	for _, r := range records {
		if r.IsCompleted || r.ID == p.ID {
			continue
		}
		remaining++
		if next == nil && !r.IsActive {
			next = r
		}
	}

	if remaining == 0 {
		if s.spots == nil {
			return nil
		}
		_, err := s.spots.MarkSpotCompleted(ctx, userID, p.PlaceID)
		return err
	}

	if next != nil && !hasActive(records, p.ID) {
		return s.progress.ActivateMissionProgress(ctx, next.ID)
	}
	return nil
}

// hasActive reports whether an incomplete active record other than skipID exists.
func hasActive(records []*domain.MissionProgress, skipID string) bool {
	for _, r := range records {
		if r.ID != skipID && r.IsActive && !r.IsCompleted {
			return true
		}
	}
	return false
}

// dailyStrategy enforces the same-day rule for login missions.
// Expired records are skipped, never reset: re-issuing dailies is a provisioning concern.
type dailyStrategy struct {
	location *time.Location
}

func (s *dailyStrategy) missionType() domain.MissionType { return domain.MissionTypeDaily }

func (s *dailyStrategy) placeScope(domain.ActionContext) (string, bool) { return "", true }

func (s *dailyStrategy) eligible(p *domain.MissionProgress, _ *domain.MissionTemplate, action domain.Action, _ domain.ActionContext, now time.Time) bool {
	if action == domain.ActionLogin {
		return common.SameDay(p.CreatedAt, now, s.location)
	}
	return true
}

func (s *dailyStrategy) onCompleted(context.Context, string, *domain.MissionProgress) error { return nil }

// themeStrategy matches the template category against the action's category.
type themeStrategy struct{}

func (themeStrategy) missionType() domain.MissionType { return domain.MissionTypeTheme }

func (themeStrategy) placeScope(domain.ActionContext) (string, bool) { return "", true }

func (themeStrategy) eligible(_ *domain.MissionProgress, t *domain.MissionTemplate, _ domain.Action, actx domain.ActionContext, _ time.Time) bool {
	category := strings.ToLower(strings.TrimSpace(actx.Category))
	return category != "" && t.Category == category
}

func (themeStrategy) onCompleted(context.Context, string, *domain.MissionProgress) error { return nil }

// levelStrategy matches by action only.
type levelStrategy struct{}

func (levelStrategy) missionType() domain.MissionType { return domain.MissionTypeLevel }

func (levelStrategy) placeScope(domain.ActionContext) (string, bool) { return "", true }

func (levelStrategy) eligible(*domain.MissionProgress, *domain.MissionTemplate, domain.Action, domain.ActionContext, time.Time) bool {
	return true
}

func (levelStrategy) onCompleted(context.Context, string, *domain.MissionProgress) error { return nil }
