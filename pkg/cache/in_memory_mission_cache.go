package cache

import (
	"log/slog"
	"sync"

	"github.com/AccelByte/extend-mission-common/pkg/config"
	"github.com/AccelByte/extend-mission-common/pkg/domain"
)

// InMemoryMissionCache provides O(1) in-memory lookups for the mission catalog.
// All maps are built at construction; templates are never mutated afterwards.
type InMemoryMissionCache struct {
	templatesByID     map[string]*domain.MissionTemplate        // "template-id" -> Template
	templatesByAction map[domain.Action][]*domain.MissionTemplate // action -> [Templates]
	badges            []*domain.BadgeDefinition
	mu                sync.RWMutex
	logger            *slog.Logger
}

// NewInMemoryMissionCache creates a new cache from the provided catalog.
//
// Parameters:
//   - cfg: Validated catalog
//   - logger: Structured logger for operational logging
func NewInMemoryMissionCache(cfg *config.Config, logger *slog.Logger) *InMemoryMissionCache {
	cache := &InMemoryMissionCache{
		logger: logger,
	}

	cache.buildCache(cfg)

	return cache
}

// buildCache constructs all cache indexes from the catalog, replacing existing data.
func (c *InMemoryMissionCache) buildCache(cfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.templatesByID = make(map[string]*domain.MissionTemplate, len(cfg.Missions))
	c.templatesByAction = make(map[domain.Action][]*domain.MissionTemplate)
	c.badges = make([]*domain.BadgeDefinition, 0, len(cfg.Badges))

	for _, template := range cfg.Missions {
		c.templatesByID[template.ID] = template
		c.templatesByAction[template.Action] = append(c.templatesByAction[template.Action], template)
	}

	c.badges = append(c.badges, cfg.Badges...)

	c.logger.Info("Mission cache built successfully",
		"templates", len(c.templatesByID),
		"actions", len(c.templatesByAction),
		"badges", len(c.badges),
	)
}

// GetTemplateByID retrieves a mission template by its unique ID.
func (c *InMemoryMissionCache) GetTemplateByID(templateID string) *domain.MissionTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.templatesByID[templateID]
}

// GetTemplatesByAction retrieves every template advanced by an action in catalog order.
func (c *InMemoryMissionCache) GetTemplatesByAction(action domain.Action) []*domain.MissionTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	templates := c.templatesByAction[action]
	if templates == nil {
		return []*domain.MissionTemplate{}
	}

	// Safe to share: templates are immutable
	return templates
}

// GetBadgeDefinitions retrieves all badge definitions in catalog order.
func (c *InMemoryMissionCache) GetBadgeDefinitions() []*domain.BadgeDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.badges
}
