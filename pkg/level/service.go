// Package level holds the per-user level and applies experience rewards to it.
package level

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AccelByte/extend-mission-common/pkg/common"
	"github.com/AccelByte/extend-mission-common/pkg/domain"
	"github.com/AccelByte/extend-mission-common/pkg/errors"
	"github.com/AccelByte/extend-mission-common/pkg/repository"
)

// Service reads and mutates user levels.
//
// Experience is added directly to the stored level: level 5 plus a
// 40 experience reward is level 45. There is no level curve.
type Service struct {
	store  repository.LevelStore
	locks  *common.KeyedMutex
	logger *slog.Logger
	tracer trace.Tracer
}

// NewService creates a new level Service.
func NewService(store repository.LevelStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		locks:  common.NewKeyedMutex(),
		logger: logger,
		tracer: otel.Tracer("github.com/AccelByte/extend-mission-common/pkg/level"),
	}
}

// GetLevel returns the user's level. A user without a stored level is at level 0.
func (s *Service) GetLevel(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, errors.ErrNotAuthenticated()
	}
	return s.getLevel(ctx, userID)
}

func (s *Service) getLevel(ctx context.Context, userID string) (int, error) {
	level, err := s.store.GetLevel(ctx, userID)
	if errors.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return level, nil
}

// AddExperience adds delta to the stored level and returns the level before and after.
func (s *Service) AddExperience(ctx context.Context, userID string, delta int) (*domain.LevelChange, error) {
	if userID == "" {
		return nil, errors.ErrNotAuthenticated()
	}

	ctx, span := s.tracer.Start(ctx, "level.AddExperience", trace.WithAttributes(
		attribute.String("mission.user_id", userID),
		attribute.Int("level.delta", delta),
	))
	defer span.End()

	unlock := s.locks.Lock(userID)
	defer unlock()

	oldLevel, err := s.getLevel(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	newLevel := oldLevel + delta
	if err := s.store.SetLevel(ctx, userID, newLevel); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if newLevel != oldLevel {
		s.logger.Info("Level changed",
			"user_id", userID,
			"old_level", oldLevel,
			"new_level", newLevel,
			"delta", delta,
		)
	}

	return &domain.LevelChange{OldLevel: oldLevel, NewLevel: newLevel}, nil
}

// Reset sets the user's level to 0.
func (s *Service) Reset(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.ErrNotAuthenticated()
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.store.SetLevel(ctx, userID, 0); err != nil {
		return err
	}
	s.logger.Info("Level reset", "user_id", userID)
	return nil
}
