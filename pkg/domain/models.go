package domain

import (
	"sort"
	"time"
)

// MissionType defines how mission progress records are addressed and matched.
//
// Usage in Dispatch:
//   - spot: records are scoped to a place; only active records are eligible
//   - daily: login missions only advance on the calendar day the record was issued
//   - theme: template category must equal the action's category
//   - level: matched by action only
type MissionType string

const (
	// MissionTypeSpot tracks missions tied to a specific place (e.g., "take a photo at the harbor").
	MissionTypeSpot MissionType = "spot"

	// MissionTypeDaily tracks missions re-issued every day (e.g., "log in today").
	MissionTypeDaily MissionType = "daily"

	// MissionTypeTheme tracks missions grouped by a theme category (e.g., "3 nature photos").
	MissionTypeTheme MissionType = "theme"

	// MissionTypeLevel tracks missions advanced by level events (e.g., "reach level 50").
	MissionTypeLevel MissionType = "level"
)

// DispatchOrder is the order in which mission types are evaluated for one action.
var DispatchOrder = []MissionType{
	MissionTypeSpot,
	MissionTypeDaily,
	MissionTypeTheme,
	MissionTypeLevel,
}

// IsValid returns true if the mission type is a known type.
func (t MissionType) IsValid() bool {
	switch t {
	case MissionTypeSpot, MissionTypeDaily, MissionTypeTheme, MissionTypeLevel:
		return true
	default:
		return false
	}
}

// Action is the semantic user action that can advance a mission.
type Action string

const (
	ActionLogin            Action = "login"
	ActionTakePhoto        Action = "take_photo"
	ActionWriteReview      Action = "write_review"
	ActionCreateMemory     Action = "create_memory"
	ActionShareMemory      Action = "share_memory"
	ActionCompleteMissions Action = "complete_missions"
	ActionReachLevel       Action = "reach_level"
	ActionObtainBadge      Action = "obtain_badge"
)

// IsValid returns true if the action is a known action.
func (a Action) IsValid() bool {
	switch a {
	case ActionLogin, ActionTakePhoto, ActionWriteReview, ActionCreateMemory,
		ActionShareMemory, ActionCompleteMissions, ActionReachLevel, ActionObtainBadge:
		return true
	default:
		return false
	}
}

// Reward defines what the user receives when a mission completes.
// Experience is added to the user's level; badge and discount IDs are forwarded
// to the reward client when one is configured.
type Reward struct {
	Experience int    `json:"experience" yaml:"experience"`
	BadgeID    string `json:"badgeId,omitempty" yaml:"badgeId,omitempty"`
	DiscountID string `json:"discountId,omitempty" yaml:"discountId,omitempty"`
}

// MissionTemplate is immutable catalog data describing a single mission.
type MissionTemplate struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Type        MissionType `json:"type" yaml:"type"`
	Category    string      `json:"category,omitempty" yaml:"category,omitempty"` // Required for theme missions
	Action      Action      `json:"action" yaml:"action"`
	Target      int         `json:"target" yaml:"target"`
	Reward      Reward      `json:"reward" yaml:"reward"`
}

// CurrentUnset marks a progress record that has never been updated.
const CurrentUnset = -1

// MissionProgress tracks one user's progress toward one mission template.
// Spot records additionally carry the place they belong to.
type MissionProgress struct {
	ID                string      `json:"id" db:"id"`
	UserID            string      `json:"user_id" db:"user_id"`
	PlaceID           string      `json:"place_id,omitempty" db:"place_id"`
	MissionTemplateID string      `json:"mission_template_id" db:"mission_template_id"`
	MissionType       MissionType `json:"mission_type" db:"mission_type"`
	Current           int         `json:"current" db:"current_value"`
	Target            int         `json:"target" db:"target"`
	IsCompleted       bool        `json:"is_completed" db:"is_completed"`
	IsActive          bool        `json:"is_active" db:"is_active"`
	SortOrder         int         `json:"sort_order" db:"sort_order"` // Tie-breaker for records created together
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// IsStarted returns true once the record has received its first update.
func (p *MissionProgress) IsStarted() bool {
	return p.Current != CurrentUnset
}

// Value returns the current progress, treating an unset record as zero.
func (p *MissionProgress) Value() int {
	if !p.IsStarted() {
		return 0
	}
	return p.Current
}

// MeetsTarget returns true if value reaches the record's target.
func (p *MissionProgress) MeetsTarget(value int) bool {
	return value >= p.Target
}

// UpdateResult is returned by a progress write.
type UpdateResult struct {
	IsCompleted  bool `json:"is_completed"`
	UpdatedValue int  `json:"updated_value"`
	Target       int  `json:"target"`
}

// ActionContext carries the scope of a dispatched action.
// Both fields are empty for global actions such as login or reach_level.
type ActionContext struct {
	PlaceID  string `json:"place_id,omitempty"`
	Category string `json:"category,omitempty"`
}

// Update transforms a counter value. It is used for both mission progress and badge counters.
type Update interface {
	Apply(current int) int
}

// Increment adds By to the current value.
type Increment struct {
	By int
}

// Apply implements Update.
func (i Increment) Apply(current int) int {
	return current + i.By
}

// SetTo replaces the current value. Level-tracking missions use it to force
// progress to the new level.
type SetTo struct {
	Value int
}

// Apply implements Update.
func (s SetTo) Apply(int) int {
	return s.Value
}

// UpdateFunc adapts a plain function to Update.
type UpdateFunc func(current int) int

// Apply implements Update.
func (f UpdateFunc) Apply(current int) int {
	return f(current)
}

// DefaultUpdate is "+1".
var DefaultUpdate Update = Increment{By: 1}

// BadgeKey identifies a tracked badge counter, e.g. "theme:nature" or "spot".
type BadgeKey string

// BadgeField names a scalar field of a badge counter.
type BadgeField string

const (
	BadgeFieldCounter BadgeField = "counter"
	BadgeFieldCap     BadgeField = "cap"
)

// IsValid returns true if the field is a writable scalar field.
func (f BadgeField) IsValid() bool {
	return f == BadgeFieldCounter || f == BadgeFieldCap
}

// BadgeCounter is the per-key state of a badge record.
// Obtained must always equal every multiple of Cap that is <= Counter.
type BadgeCounter struct {
	Counter  int   `json:"counter"`
	Cap      int   `json:"cap"`
	Obtained []int `json:"obtained"`
}

// BadgeRecord holds every tracked badge counter for one user.
type BadgeRecord struct {
	UserID        string                     `json:"user_id"`
	Counters      map[BadgeKey]*BadgeCounter `json:"counters"`
	SpotCompleted []string                   `json:"spot_completed"`
}

// Counter returns the counter for key, or nil if the key is not tracked.
func (r *BadgeRecord) Counter(key BadgeKey) *BadgeCounter {
	if r == nil || r.Counters == nil {
		return nil
	}
	return r.Counters[key]
}

// Keys returns the tracked keys in lexical order.
func (r *BadgeRecord) Keys() []BadgeKey {
	keys := make([]BadgeKey, 0, len(r.Counters))
	for k := range r.Counters {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ObtainedCount is the total badge count shown to the user:
// completed spots plus every obtained milestone across all keys.
func (r *BadgeRecord) ObtainedCount() int {
	if r == nil {
		return 0
	}
	total := len(r.SpotCompleted)
	for _, c := range r.Counters {
		total += len(c.Obtained)
	}
	return total
}

// BadgeDefinition declares a tracked badge key and its step size in the catalog.
type BadgeDefinition struct {
	Key  BadgeKey `json:"key" yaml:"key"`
	Name string   `json:"name,omitempty" yaml:"name,omitempty"`
	Cap  int      `json:"cap" yaml:"cap"`
}

// LevelChange reports the level before and after an experience award.
type LevelChange struct {
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
}
