// Package engine turns user actions into mission progress.
//
// A dispatch walks every mission type in a fixed order (spot, daily, theme,
// level), advances the matching incomplete records one at a time in store
// order, and runs the completion cascade for each record it completes:
//
//	complete -> reward experience -> reach_level dispatch
//	         -> daily complete_missions re-evaluation (non-spot only)
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AccelByte/extend-mission-common/pkg/cache"
	"github.com/AccelByte/extend-mission-common/pkg/client"
	"github.com/AccelByte/extend-mission-common/pkg/common"
	"github.com/AccelByte/extend-mission-common/pkg/domain"
	"github.com/AccelByte/extend-mission-common/pkg/errors"
	"github.com/AccelByte/extend-mission-common/pkg/repository"
)

const tracerName = "github.com/AccelByte/extend-mission-common/pkg/engine"

// maxCascadeDepth bounds nested cascades. Each cascade needs a fresh completion,
// so a finite catalog terminates well before this.
const maxCascadeDepth = 16

// LevelUpdater applies experience rewards. Implemented by level.Service.
type LevelUpdater interface {
	AddExperience(ctx context.Context, userID string, delta int) (*domain.LevelChange, error)
}

// SpotRecorder records fully completed places. Implemented by badge.Accumulator.
type SpotRecorder interface {
	MarkSpotCompleted(ctx context.Context, userID, placeID string) (bool, error)
}

// Options tunes dispatcher behaviour.
type Options struct {
	// Location defines calendar days for the daily login rule. Defaults to UTC.
	Location *time.Location

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Dispatcher applies user actions to mission progress.
type Dispatcher struct {
	progress   repository.MissionProgressStore
	catalog    cache.MissionCache
	levels     LevelUpdater
	rewards    client.RewardClient
	strategies []missionStrategy
	locks      *common.KeyedMutex
	now        func() time.Time
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewDispatcher creates a new Dispatcher.
//
// Parameters:
//   - progress: Mission progress store (read + write)
//   - catalog: Template lookups
//   - levels: Receives experience rewards
//   - spots: Records completed places; may be nil
//   - rewards: Receives badge and discount rewards; may be nil
//   - logger: Structured logger
//   - opts: Clock and calendar settings
func NewDispatcher(
	progress repository.MissionProgressStore,
	catalog cache.MissionCache,
	levels LevelUpdater,
	spots SpotRecorder,
	rewards client.RewardClient,
	logger *slog.Logger,
	opts Options,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Dispatcher{
		progress: progress,
		catalog:  catalog,
		levels:   levels,
		rewards:  rewards,
		strategies: []missionStrategy{
			&spotStrategy{progress: progress, spots: spots},
			&dailyStrategy{location: opts.Location},
			themeStrategy{},
			levelStrategy{},
		},
		locks:  common.NewKeyedMutex(),
		now:    opts.Now,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Dispatch applies action with the default "+1" update.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, action domain.Action, actx domain.ActionContext) (*DispatchResult, error) {
	return d.DispatchWith(ctx, userID, action, actx, domain.DefaultUpdate)
}

// DispatchWith applies action to every matching incomplete record using update.
//
// Per-record failures are collected in the result and processing continues.
// A STORE_UNAVAILABLE failure aborts the dispatch and is returned together with
// the partial result; the caller decides whether to retry.
func (d *Dispatcher) DispatchWith(ctx context.Context, userID string, action domain.Action, actx domain.ActionContext, update domain.Update) (result *DispatchResult, err error) {
	if userID == "" {
		return nil, errors.ErrNotAuthenticated()
	}
	if !action.IsValid() {
		return nil, errors.ErrValidationFailed("action", fmt.Sprintf("unknown action '%s'", action))
	}
	if update == nil {
		update = domain.DefaultUpdate
	}

	ctx, span := d.tracer.Start(ctx, "engine.Dispatch", trace.WithAttributes(
		attribute.String("mission.user_id", userID),
		attribute.String("mission.action", string(action)),
		attribute.String("mission.place_id", actx.PlaceID),
		attribute.String("mission.category", actx.Category),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	unlock := d.locks.Lock(userID)
	defer unlock()

	result = &DispatchResult{}
	err = d.dispatch(ctx, userID, action, actx, update, d.strategies, result, 0)

	span.SetAttributes(
		attribute.Int("mission.updates", len(result.Updates)),
		attribute.Int("mission.cascades", len(result.Cascades)),
		attribute.Int("mission.record_errors", len(result.Errors)),
	)
	return result, err
}

// dispatch evaluates strategies in order. Only a store-unavailable error is returned;
// everything else lands in result.Errors.
func (d *Dispatcher) dispatch(
	ctx context.Context,
	userID string,
	action domain.Action,
	actx domain.ActionContext,
	update domain.Update,
	strategies []missionStrategy,
	result *DispatchResult,
	depth int,
) error {
	if depth > maxCascadeDepth {
		d.logger.Error("Cascade depth exceeded",
			"user_id", userID,
			"action", action,
			"depth", depth,
		)
		result.Errors = append(result.Errors, &RecordError{
			Err: errors.ErrInvariantViolation(fmt.Sprintf("cascade depth exceeded for action %s", action)),
		})
		return nil
	}

	for _, s := range strategies {
		if err := d.evaluate(ctx, userID, action, actx, update, s, result, depth); err != nil {
			return err
		}
	}
	return nil
}

// evaluate advances the eligible records of one mission type.
func (d *Dispatcher) evaluate(
	ctx context.Context,
	userID string,
	action domain.Action,
	actx domain.ActionContext,
	update domain.Update,
	s missionStrategy,
	result *DispatchResult,
	depth int,
) error {
	if !d.catalogHas(s.missionType(), action) {
		return nil
	}
	placeID, ok := s.placeScope(actx)
	if !ok {
		return nil
	}

	ctx, span := d.tracer.Start(ctx, "engine.evaluate", trace.WithAttributes(
		attribute.String("mission.type", string(s.missionType())),
		attribute.String("mission.action", string(action)),
		attribute.Int("mission.cascade_depth", depth),
	))
	defer span.End()

	records, err := d.progress.QueryMissionProgress(ctx, userID, s.missionType(), placeID)
	if err != nil {
		return d.handleRecordError(userID, "", action, err, result)
	}

	now := d.now()
	loadedAt := len(result.Cascades)
	for _, p := range records {
		if p.IsCompleted {
			continue
		}

		t := d.catalog.GetTemplateByID(p.MissionTemplateID)
		if t == nil {
			if err := d.handleRecordError(userID, p.ID, action, errors.ErrRecordNotFound("mission template", p.MissionTemplateID), result); err != nil {
				return err
			}
			continue
		}
		if t.Action != action || !s.eligible(p, t, action, actx, now) {
			continue
		}

		// A cascade earlier in this pass may have written this record.
		// Eligibility stays with the loaded snapshot, so a spot mission
		// activated by this pass is not advanced by the same action.
		if len(result.Cascades) != loadedAt {
			fresh, err := d.progress.GetMissionProgress(ctx, p.ID)
			if err != nil {
				if err := d.handleRecordError(userID, p.ID, action, err, result); err != nil {
					return err
				}
				continue
			}
			if fresh.IsCompleted {
				continue
			}
			// A nested reach_level pass already wrote a newer absolute value.
			if _, absolute := update.(domain.SetTo); absolute && fresh.Current != p.Current {
				continue
			}
			p.Current = fresh.Current
		}

		if err := d.advance(ctx, userID, action, update, s, p, t, result, depth); err != nil {
			return err
		}
	}
	return nil
}

// catalogHas reports whether any template of missionType is advanced by action.
func (d *Dispatcher) catalogHas(missionType domain.MissionType, action domain.Action) bool {
	for _, t := range d.catalog.GetTemplatesByAction(action) {
		if t.Type == missionType {
			return true
		}
	}
	return false
}

// advance writes one record and runs its completion cascade.
func (d *Dispatcher) advance(
	ctx context.Context,
	userID string,
	action domain.Action,
	update domain.Update,
	s missionStrategy,
	p *domain.MissionProgress,
	t *domain.MissionTemplate,
	result *DispatchResult,
	depth int,
) error {
	oldValue := p.Value()
	newValue := update.Apply(oldValue)

	res, err := d.progress.UpdateMissionProgress(ctx, p.ID, newValue, p.MeetsTarget(newValue))
	if err != nil {
		return d.handleRecordError(userID, p.ID, action, err, result)
	}

	result.Updates = append(result.Updates, ProgressUpdate{
		ProgressID:  p.ID,
		TemplateID:  t.ID,
		MissionType: p.MissionType,
		Action:      action,
		OldValue:    oldValue,
		NewValue:    res.UpdatedValue,
		Target:      res.Target,
		Completed:   res.IsCompleted,
	})

	// Keep the loaded copy in step with the store for later checks in this pass.
	p.Current = res.UpdatedValue
	p.IsCompleted = res.IsCompleted

	if !res.IsCompleted {
		return nil
	}
	return d.complete(ctx, userID, action, s, p, t, result, depth)
}

// complete runs the completion cascade for a record that just completed.
func (d *Dispatcher) complete(
	ctx context.Context,
	userID string,
	action domain.Action,
	s missionStrategy,
	p *domain.MissionProgress,
	t *domain.MissionTemplate,
	result *DispatchResult,
	depth int,
) error {
	d.logger.Info("Mission completed",
		"user_id", userID,
		"progress_id", p.ID,
		"template_id", t.ID,
		"mission_type", p.MissionType,
		"place_id", p.PlaceID,
	)

	if err := s.onCompleted(ctx, userID, p); err != nil {
		if err := d.handleRecordError(userID, p.ID, action, err, result); err != nil {
			return err
		}
	}

	d.grantRewards(ctx, userID, p, t, result)

	change, err := d.levels.AddExperience(ctx, userID, t.Reward.Experience)
	if err != nil {
		if err := d.handleRecordError(userID, p.ID, action, err, result); err != nil {
			return err
		}
	} else {
		result.Cascades = append(result.Cascades, Cascade{
			Kind:             CascadeLevel,
			SourceProgressID: p.ID,
			Level:            change,
		})
		if err := d.dispatch(ctx, userID, domain.ActionReachLevel, domain.ActionContext{},
			domain.SetTo{Value: change.NewLevel}, d.strategies, result, depth+1); err != nil {
			return err
		}
	}

	// Spot completions do not count toward "complete N missions".
	if p.MissionType == domain.MissionTypeSpot {
		return nil
	}

	result.Cascades = append(result.Cascades, Cascade{
		Kind:             CascadeMeta,
		SourceProgressID: p.ID,
	})
	return d.dispatch(ctx, userID, domain.ActionCompleteMissions, domain.ActionContext{},
		domain.DefaultUpdate, d.metaStrategies(), result, depth+1)
}

// metaStrategies returns the daily strategy only.
func (d *Dispatcher) metaStrategies() []missionStrategy {
	for _, s := range d.strategies {
		if s.missionType() == domain.MissionTypeDaily {
			return []missionStrategy{s}
		}
	}
	return nil
}

// grantRewards forwards badge and discount rewards. Failures never abort the dispatch.
func (d *Dispatcher) grantRewards(ctx context.Context, userID string, p *domain.MissionProgress, t *domain.MissionTemplate, result *DispatchResult) {
	if d.rewards == nil {
		return
	}

	grant := func(rewardType, rewardID string, fn func(context.Context, string, string) error) {
		if rewardID == "" {
			return
		}
		if err := fn(ctx, userID, rewardID); err != nil {
			retryable := client.IsRetryableError(err)
			d.logger.Warn("Failed to grant mission reward",
				"user_id", userID,
				"progress_id", p.ID,
				"reward_type", rewardType,
				"reward_id", rewardID,
				"retryable", retryable,
				"error", err,
			)
			result.Errors = append(result.Errors, &RecordError{
				ProgressID: p.ID,
				Err:        errors.ErrRewardGrantFailed(rewardType, rewardID, err),
				Retryable:  retryable,
			})
		}
	}

	grant("badge", t.Reward.BadgeID, d.rewards.GrantBadge)
	grant("discount", t.Reward.DiscountID, d.rewards.GrantDiscount)
}

// handleRecordError returns err if the store is unreachable; otherwise it records
// err against progressID and returns nil so processing continues.
func (d *Dispatcher) handleRecordError(userID, progressID string, action domain.Action, err error, result *DispatchResult) error {
	if errors.IsStoreUnavailable(err) {
		d.logger.Error("Store unavailable, aborting dispatch",
			"user_id", userID,
			"progress_id", progressID,
			"action", action,
			"error", err,
		)
		return err
	}

	d.logger.Warn("Skipping mission progress record",
		"user_id", userID,
		"progress_id", progressID,
		"action", action,
		"error", err,
	)
	result.Errors = append(result.Errors, &RecordError{ProgressID: progressID, Err: err})
	return nil
}
