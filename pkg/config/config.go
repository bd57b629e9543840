package config

import "github.com/AccelByte/extend-mission-common/pkg/domain"

// Config represents the mission catalog loaded from missions.json or missions.yaml.
// This structure is parsed and validated during application startup.
type Config struct {
	Missions []*domain.MissionTemplate `json:"missions" yaml:"missions"`
	Badges   []*domain.BadgeDefinition `json:"badges" yaml:"badges"`
}
