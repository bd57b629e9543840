package cache

import "github.com/AccelByte/extend-mission-common/pkg/domain"

// MissionCache provides in-memory lookups over the mission catalog.
// The cache is built at startup from the catalog file; all lookups are read-only and thread-safe.
type MissionCache interface {
	// GetTemplateByID retrieves a mission template by its unique ID.
	// Returns nil if the template does not exist.
	GetTemplateByID(templateID string) *domain.MissionTemplate

	// GetTemplatesByAction retrieves every template advanced by an action in catalog order.
	// Returns an empty slice if no template uses this action.
	GetTemplatesByAction(action domain.Action) []*domain.MissionTemplate

	// GetBadgeDefinitions retrieves all badge definitions in catalog order.
	GetBadgeDefinitions() []*domain.BadgeDefinition
}
