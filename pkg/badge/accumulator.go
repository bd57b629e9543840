package badge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AccelByte/extend-mission-common/pkg/common"
	"github.com/AccelByte/extend-mission-common/pkg/domain"
	"github.com/AccelByte/extend-mission-common/pkg/errors"
	"github.com/AccelByte/extend-mission-common/pkg/repository"
)

const tracerName = "github.com/AccelByte/extend-mission-common/pkg/badge"

// AdvanceResult reports the outcome of one Advance call.
type AdvanceResult struct {
	Key        domain.BadgeKey `json:"key"`
	OldCounter int             `json:"old_counter"`
	NewCounter int             `json:"new_counter"`
	Added      []int           `json:"added"`    // Milestones awarded by this call
	Obtained   []int           `json:"obtained"` // Full obtained set after this call
}

// Accumulator advances badge counters and records crossed milestones.
//
// Each Advance runs in one store transaction and is serialized per user, so
// two concurrent advances on the same key cannot lose an update.
type Accumulator struct {
	store  repository.BadgeStore
	locks  *common.KeyedMutex
	logger *slog.Logger
	tracer trace.Tracer
}

// NewAccumulator creates a new Accumulator.
func NewAccumulator(store repository.BadgeStore, logger *slog.Logger) *Accumulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accumulator{
		store:  store,
		locks:  common.NewKeyedMutex(),
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Advance applies update (default +1) to the counter at key and appends every newly crossed milestone.
//
// A decreasing update is rejected with INVARIANT_VIOLATION and nothing is written.
// Replaying an advance that lands on an already-reached counter adds no milestones.
func (a *Accumulator) Advance(ctx context.Context, userID string, key domain.BadgeKey, update domain.Update) (result *AdvanceResult, err error) {
	if userID == "" {
		return nil, errors.ErrNotAuthenticated()
	}
	if update == nil {
		update = domain.DefaultUpdate
	}

	ctx, span := a.tracer.Start(ctx, "badge.Advance", trace.WithAttributes(
		attribute.String("mission.user_id", userID),
		attribute.String("badge.key", string(key)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	unlock := a.locks.Lock(userID)
	defer unlock()

	tx, err := a.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				a.logger.Error("Failed to rollback badge transaction",
					"user_id", userID,
					"key", key,
					"error", rbErr,
				)
			}
		}
	}()

	current, err := tx.GetBadgeCounterForUpdate(ctx, userID, key)
	if err != nil {
		return nil, err
	}

	if invErr := CheckInvariant(current); invErr != nil {
		a.logger.Error("Badge counter inconsistent before advance",
			"user_id", userID,
			"key", key,
			"counter", current.Counter,
			"cap", current.Cap,
			"obtained", current.Obtained,
			"error", invErr,
		)
	}

	newCounter := update.Apply(current.Counter)
	if newCounter < current.Counter {
		a.logger.Warn("Rejected decreasing badge update",
			"user_id", userID,
			"key", key,
			"counter", current.Counter,
			"new_counter", newCounter,
		)
		return nil, errors.ErrInvariantViolation(fmt.Sprintf("counter for %s decreased from %d to %d", key, current.Counter, newCounter))
	}

	added, err := Milestones(current.Counter, newCounter, current.Cap, current.Obtained)
	if err != nil {
		return nil, err
	}

	if newCounter != current.Counter {
		if err = tx.SetBadgeField(ctx, userID, key, domain.BadgeFieldCounter, newCounter); err != nil {
			return nil, err
		}
	}
	if len(added) > 0 {
		if err = tx.UnionAppendMilestones(ctx, userID, key, added); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	obtained := make([]int, 0, len(current.Obtained)+len(added))
	obtained = append(obtained, current.Obtained...)
	obtained = append(obtained, added...)

	span.SetAttributes(
		attribute.Int("badge.counter", newCounter),
		attribute.Int("badge.added", len(added)),
	)
	if len(added) > 0 {
		a.logger.Info("Badge milestones obtained",
			"user_id", userID,
			"key", key,
			"counter", newCounter,
			"added", added,
		)
	}

	return &AdvanceResult{
		Key:        key,
		OldCounter: current.Counter,
		NewCounter: newCounter,
		Added:      added,
		Obtained:   sortedUnique(obtained),
	}, nil
}

// MarkSpotCompleted records that every spot mission at placeID is done.
// Returns false if the place was already recorded.
func (a *Accumulator) MarkSpotCompleted(ctx context.Context, userID, placeID string) (bool, error) {
	if userID == "" {
		return false, errors.ErrNotAuthenticated()
	}

	unlock := a.locks.Lock(userID)
	defer unlock()

	added, err := a.store.AppendSpotCompleted(ctx, userID, placeID)
	if err != nil {
		return false, err
	}
	if added {
		a.logger.Info("Spot completed", "user_id", userID, "place_id", placeID)
	}
	return added, nil
}

func sortedUnique(values []int) []int {
	seen := make(map[int]struct{}, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
