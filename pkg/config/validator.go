package config

import (
	"errors"
	"fmt"

	"github.com/AccelByte/extend-mission-common/pkg/domain"
)

// Validator validates mission catalog files.
// It ensures all business rules are met before the application starts.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate performs comprehensive validation of the catalog.
// It checks for:
// - At least one mission exists
// - All mission IDs are unique
// - Every mission has a valid type, action, positive target and non-negative experience
// - Theme missions declare a category
// - Badge keys are unique and every cap is positive
//
// Returns an error describing the first validation failure encountered.
func (v *Validator) Validate(config *Config) error {
	if len(config.Missions) == 0 {
		return errors.New("config must have at least one mission")
	}

	missionIDs := make(map[string]bool)
	for i, mission := range config.Missions {
		if mission == nil {
			return fmt.Errorf("mission at index %d is empty", i)
		}
		if err := v.validateMission(mission); err != nil {
			return fmt.Errorf("invalid mission '%s': %w", mission.ID, err)
		}
		if missionIDs[mission.ID] {
			return fmt.Errorf("duplicate mission ID: %s", mission.ID)
		}
		missionIDs[mission.ID] = true
	}

	badgeKeys := make(map[domain.BadgeKey]bool)
	for i, badge := range config.Badges {
		if badge == nil {
			return fmt.Errorf("badge at index %d is empty", i)
		}
		if err := v.validateBadge(badge); err != nil {
			return fmt.Errorf("invalid badge '%s': %w", badge.Key, err)
		}
		if badgeKeys[badge.Key] {
			return fmt.Errorf("duplicate badge key: %s", badge.Key)
		}
		badgeKeys[badge.Key] = true
	}

	return nil
}

// validateMission validates a single mission template.
func (v *Validator) validateMission(mission *domain.MissionTemplate) error {
	if mission.ID == "" {
		return errors.New("mission ID cannot be empty")
	}
	if mission.Name == "" {
		return errors.New("mission name cannot be empty")
	}

	if !mission.Type.IsValid() {
		return fmt.Errorf("invalid mission type '%s' (must be 'spot', 'daily', 'theme', or 'level')", mission.Type)
	}
	if !mission.Action.IsValid() {
		return fmt.Errorf("invalid action '%s'", mission.Action)
	}

	if mission.Type == domain.MissionTypeTheme && mission.Category == "" {
		return errors.New("category is required for theme missions")
	}

	if mission.Target <= 0 {
		return errors.New("target must be positive")
	}
	if mission.Reward.Experience < 0 {
		return errors.New("reward experience cannot be negative")
	}

	return nil
}

// validateBadge validates a single badge definition.
func (v *Validator) validateBadge(badge *domain.BadgeDefinition) error {
	if badge.Key == "" {
		return errors.New("badge key cannot be empty")
	}
	if badge.Cap <= 0 {
		return errors.New("cap must be positive")
	}
	return nil
}
