package engine

import (
	"errors"
	"fmt"

	"github.com/AccelByte/extend-mission-common/pkg/domain"
)

// ProgressUpdate describes one persisted progress write.
type ProgressUpdate struct {
	ProgressID  string             `json:"progress_id"`
	TemplateID  string             `json:"template_id"`
	MissionType domain.MissionType `json:"mission_type"`
	Action      domain.Action      `json:"action"`
	OldValue    int                `json:"old_value"`
	NewValue    int                `json:"new_value"`
	Target      int                `json:"target"`
	Completed   bool               `json:"completed"` // true only for the write that completed the record
}

// CascadeKind names a completion side effect.
type CascadeKind string

const (
	// CascadeLevel is the reach_level dispatch issued after experience is awarded.
	CascadeLevel CascadeKind = "level"

	// CascadeMeta is the re-evaluation of daily complete_missions missions.
	CascadeMeta CascadeKind = "meta"
)

// Cascade records one completion side effect in the order it ran.
type Cascade struct {
	Kind             CascadeKind         `json:"kind"`
	SourceProgressID string              `json:"source_progress_id"`
	Level            *domain.LevelChange `json:"level,omitempty"` // Set for CascadeLevel
}

// RecordError is a failure confined to one progress record. The dispatch continued past it.
type RecordError struct {
	ProgressID string
	Err        error
	Retryable  bool // Set for reward grant failures the reward service may accept on retry
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("progress %s: %v", e.ProgressID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// DispatchResult collects everything one dispatch did, cascades included.
type DispatchResult struct {
	Updates  []ProgressUpdate `json:"updates"`
	Cascades []Cascade        `json:"cascades"`
	Errors   []*RecordError   `json:"-"`
}

// Completed returns the updates that completed a record.
func (r *DispatchResult) Completed() []ProgressUpdate {
	var out []ProgressUpdate
	for _, u := range r.Updates {
		if u.Completed {
			out = append(out, u)
		}
	}
	return out
}

// CascadeCount returns how many cascades of kind ran.
func (r *DispatchResult) CascadeCount(kind CascadeKind) int {
	n := 0
	for _, c := range r.Cascades {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Err joins the per-record errors, or returns nil if there were none.
func (r *DispatchResult) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}
