package repository

import (
	"context"

	"github.com/AccelByte/extend-mission-common/pkg/domain"
)

// MissionProgressStore defines the interface for reading and writing per-user mission progress.
// Implementations must return records in a stable order (created_at, then sort_order, then id)
// because the dispatcher processes them in the order returned.
type MissionProgressStore interface {
	// QueryMissionProgress retrieves a user's progress records of one mission type.
	// For spot missions a non-empty placeID restricts the result to that place.
	// Returns empty slice if no records match.
	QueryMissionProgress(ctx context.Context, userID string, missionType domain.MissionType, placeID string) ([]*domain.MissionProgress, error)

	// GetUserMissionProgress retrieves every progress record of a user.
	GetUserMissionProgress(ctx context.Context, userID string) ([]*domain.MissionProgress, error)

	// GetMissionProgress retrieves a single record by ID.
	// Returns RECORD_NOT_FOUND if it does not exist.
	GetMissionProgress(ctx context.Context, id string) (*domain.MissionProgress, error)

	// UpdateMissionProgress writes a new current value and completion flag in one statement.
	// Completed records are never written again: updating one returns RECORD_NOT_FOUND.
	UpdateMissionProgress(ctx context.Context, id string, current int, isCompleted bool) (*domain.UpdateResult, error)

	// ActivateMissionProgress marks an inactive spot record as active.
	ActivateMissionProgress(ctx context.Context, id string) error

	// BulkInsertMissionProgress inserts assignment records.
	// Existing (user, template, place) assignments are left untouched.
	BulkInsertMissionProgress(ctx context.Context, records []*domain.MissionProgress) error
}

// MissionTemplateStore defines the interface for the persisted mission catalog.
type MissionTemplateStore interface {
	// QueryMissionTemplatesByType returns the templates of one type in catalog order.
	QueryMissionTemplatesByType(ctx context.Context, missionType domain.MissionType) ([]*domain.MissionTemplate, error)

	// GetMissionTemplate retrieves a template by ID.
	// Returns RECORD_NOT_FOUND if it does not exist.
	GetMissionTemplate(ctx context.Context, id string) (*domain.MissionTemplate, error)

	// ReplaceMissionTemplates atomically replaces the whole catalog.
	ReplaceMissionTemplates(ctx context.Context, templates []*domain.MissionTemplate) error
}

// LevelStore defines the interface for the per-user level.
type LevelStore interface {
	// GetLevel returns the stored level. Returns RECORD_NOT_FOUND if none is stored.
	GetLevel(ctx context.Context, userID string) (int, error)

	// SetLevel creates or overwrites the stored level.
	SetLevel(ctx context.Context, userID string, level int) error
}

// BadgeStore defines the interface for badge records.
type BadgeStore interface {
	// GetBadgeRecord loads a user's record with all counters and completed spots.
	// Returns RECORD_NOT_FOUND if the user has no record.
	GetBadgeRecord(ctx context.Context, userID string) (*domain.BadgeRecord, error)

	// CreateBadgeRecord creates a record with its initial counters.
	// Keys already present are left untouched, so repeated provisioning is safe.
	CreateBadgeRecord(ctx context.Context, record *domain.BadgeRecord) error

	// GetBadgeCounter loads one counter. Returns RECORD_NOT_FOUND if the key is not tracked.
	GetBadgeCounter(ctx context.Context, userID string, key domain.BadgeKey) (*domain.BadgeCounter, error)

	// SetBadgeField writes a scalar field (counter or cap) of one counter.
	SetBadgeField(ctx context.Context, userID string, key domain.BadgeKey, field domain.BadgeField, value int) error

	// UnionAppendMilestones adds values to the obtained set, skipping ones already present.
	UnionAppendMilestones(ctx context.Context, userID string, key domain.BadgeKey, values []int) error

	// AppendSpotCompleted records a completed place. Returns false if it was already recorded.
	AppendSpotCompleted(ctx context.Context, userID, placeID string) (bool, error)

	// BeginTx starts a database transaction and returns a transactional badge store.
	// Used by the accumulator so that reading a counter and writing milestones is atomic.
	BeginTx(ctx context.Context) (BadgeTxStore, error)
}

// BadgeTxStore is a BadgeStore bound to one transaction.
type BadgeTxStore interface {
	BadgeStore

	// GetBadgeCounterForUpdate loads a counter and locks its row until the transaction ends.
	GetBadgeCounterForUpdate(ctx context.Context, userID string, key domain.BadgeKey) (*domain.BadgeCounter, error)

	// Commit commits the transaction.
	Commit() error

	// Rollback rolls back the transaction.
	Rollback() error
}
