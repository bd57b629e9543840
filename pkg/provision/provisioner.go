// Package provision seeds the mission catalog and creates the initial state of a user.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AccelByte/extend-mission-common/pkg/config"
	"github.com/AccelByte/extend-mission-common/pkg/domain"
	"github.com/AccelByte/extend-mission-common/pkg/errors"
	"github.com/AccelByte/extend-mission-common/pkg/repository"
)

// Stores groups the stores a Provisioner writes to. *repository.SQLStore satisfies all of them.
type Stores struct {
	Templates repository.MissionTemplateStore
	Progress  repository.MissionProgressStore
	Levels    repository.LevelStore
	Badges    repository.BadgeStore
}

// Result summarizes one ProvisionUser call.
type Result struct {
	UserID       string `json:"user_id"`
	Records      int    `json:"records"`       // Progress records offered for insertion
	BadgeKeys    int    `json:"badge_keys"`    // Badge counters offered for creation
	LevelCreated bool   `json:"level_created"` // False if the user already had a level
}

// Provisioner writes catalog and per-user starting state. Every operation is safe to repeat.
type Provisioner struct {
	stores Stores
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// NewProvisioner creates a new Provisioner.
func NewProvisioner(stores Stores, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		stores: stores,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger,
	}
}

// SeedCatalog replaces the stored mission templates with the validated catalog.
func (p *Provisioner) SeedCatalog(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return errors.ErrConfigInvalid("catalog is nil")
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return errors.NewMissionError(errors.ErrCodeConfigInvalid, "catalog rejected", err)
	}

	if err := p.stores.Templates.ReplaceMissionTemplates(ctx, cfg.Missions); err != nil {
		return err
	}

	p.logger.Info("Mission catalog seeded",
		"templates", len(cfg.Missions),
		"badges", len(cfg.Badges),
	)
	return nil
}

// ProvisionUser creates the user's level (0), a zeroed badge record with one counter
// per badge definition, and one progress record per stored template.
//
// Spot templates are assigned once per place in placeIDs; the first spot record
// at each place starts active and the rest wait for activation. Existing
// assignments, counters and levels are left untouched.
func (p *Provisioner) ProvisionUser(ctx context.Context, userID string, placeIDs []string, badges []*domain.BadgeDefinition) (*Result, error) {
	if userID == "" {
		return nil, errors.ErrNotAuthenticated()
	}

	result := &Result{UserID: userID}

	created, err := p.ensureLevel(ctx, userID)
	if err != nil {
		return nil, err
	}
	result.LevelCreated = created

	record := &domain.BadgeRecord{
		UserID:   userID,
		Counters: make(map[domain.BadgeKey]*domain.BadgeCounter, len(badges)),
	}
	for _, b := range badges {
		if b == nil {
			continue
		}
		record.Counters[b.Key] = &domain.BadgeCounter{Counter: 0, Cap: b.Cap, Obtained: []int{}}
	}
	if err := p.stores.Badges.CreateBadgeRecord(ctx, record); err != nil {
		return nil, err
	}
	result.BadgeKeys = len(record.Counters)

	records, err := p.buildProgress(ctx, userID, placeIDs)
	if err != nil {
		return nil, err
	}
	if err := p.stores.Progress.BulkInsertMissionProgress(ctx, records); err != nil {
		return nil, err
	}
	result.Records = len(records)

	p.logger.Info("User provisioned",
		"user_id", userID,
		"records", result.Records,
		"badge_keys", result.BadgeKeys,
		"places", len(placeIDs),
	)
	return result, nil
}

func (p *Provisioner) ensureLevel(ctx context.Context, userID string) (bool, error) {
	_, err := p.stores.Levels.GetLevel(ctx, userID)
	if err == nil {
		return false, nil
	}
	if !errors.IsNotFound(err) {
		return false, err
	}
	if err := p.stores.Levels.SetLevel(ctx, userID, 0); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provisioner) buildProgress(ctx context.Context, userID string, placeIDs []string) ([]*domain.MissionProgress, error) {
	now := p.now()
	var records []*domain.MissionProgress

	newRecord := func(t *domain.MissionTemplate, placeID string, active bool) *domain.MissionProgress {
		return &domain.MissionProgress{
			ID:                p.newID(),
			UserID:            userID,
			PlaceID:           placeID,
			MissionTemplateID: t.ID,
			MissionType:       t.Type,
			Current:           domain.CurrentUnset,
			Target:            t.Target,
			IsActive:          active,
			SortOrder:         len(records),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
	}

	for _, missionType := range domain.DispatchOrder {
		templates, err := p.stores.Templates.QueryMissionTemplatesByType(ctx, missionType)
		if err != nil {
			return nil, fmt.Errorf("load %s templates: %w", missionType, err)
		}

		if missionType != domain.MissionTypeSpot {
			for _, t := range templates {
				records = append(records, newRecord(t, "", true))
			}
			continue
		}

		for _, placeID := range placeIDs {
			if placeID == "" {
				continue
			}
			for i, t := range templates {
				records = append(records, newRecord(t, placeID, i == 0))
			}
		}
	}
	return records, nil
}
