package cache

import (
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/AccelByte/extend-mission-common/pkg/config"
	"github.com/AccelByte/extend-mission-common/pkg/domain"
)

func TestNewInMemoryMissionCache(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := createTestConfig()

	cache := NewInMemoryMissionCache(cfg, logger)

	if cache == nil {
		t.Fatal("NewInMemoryMissionCache() returned nil")
	}

	if len(cache.templatesByID) != 4 {
		t.Errorf("expected 4 templates in cache, got %d", len(cache.templatesByID))
	}

	if len(cache.templatesByAction) != 4 {
		t.Errorf("expected 4 actions in cache, got %d", len(cache.templatesByAction))
	}

	if len(cache.badges) != 2 {
		t.Errorf("expected 2 badge definitions, got %d", len(cache.badges))
	}
}

func TestInMemoryMissionCache_GetTemplateByID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cache := NewInMemoryMissionCache(createTestConfig(), logger)

	t.Run("existing template", func(t *testing.T) {
		template := cache.GetTemplateByID("theme-nature-photo")

		if template == nil {
			t.Fatal("GetTemplateByID() returned nil for existing template")
		}

		if template.Category != "nature" {
			t.Errorf("expected category 'nature', got %q", template.Category)
		}
	})

	t.Run("non-existing template", func(t *testing.T) {
		if template := cache.GetTemplateByID("nonexistent"); template != nil {
			t.Errorf("GetTemplateByID() expected nil, got %v", template)
		}
	})
}

func TestInMemoryMissionCache_GetTemplatesByAction(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cache := NewInMemoryMissionCache(createTestConfig(), logger)

	templates := cache.GetTemplatesByAction(domain.ActionReachLevel)
	if len(templates) != 1 || templates[0].ID != "level-10" {
		t.Errorf("expected [level-10], got %v", templates)
	}

	t.Run("unknown action returns empty slice", func(t *testing.T) {
		got := cache.GetTemplatesByAction(domain.ActionShareMemory)
		if got == nil {
			t.Fatal("expected empty slice, got nil")
		}
		if len(got) != 0 {
			t.Errorf("expected no templates for share_memory, got %d", len(got))
		}
	})
}

func TestInMemoryMissionCache_Badges(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cache := NewInMemoryMissionCache(createTestConfig(), logger)

	all := cache.GetBadgeDefinitions()
	if len(all) != 2 || all[0].Key != "theme:nature" || all[1].Key != "spot" {
		t.Errorf("unexpected badge definitions %v", all)
	}
}

func TestInMemoryMissionCache_ThreadSafety(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cache := NewInMemoryMissionCache(createTestConfig(), logger)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cache.GetTemplateByID("daily-login")
			_ = cache.GetTemplatesByAction(domain.ActionLogin)
			_ = cache.GetBadgeDefinitions()
		}()
	}
	wg.Wait()
}

func createTestConfig() *config.Config {
	return &config.Config{
		Missions: []*domain.MissionTemplate{
			{
				ID:     "daily-login",
				Name:   "Daily Login",
				Type:   domain.MissionTypeDaily,
				Action: domain.ActionLogin,
				Target: 1,
				Reward: domain.Reward{Experience: 10},
			},
			{
				ID:       "theme-nature-photo",
				Name:     "Nature Photographer",
				Type:     domain.MissionTypeTheme,
				Category: "nature",
				Action:   domain.ActionTakePhoto,
				Target:   3,
				Reward:   domain.Reward{Experience: 40},
			},
			{
				ID:     "daily-complete-3",
				Name:   "Busy Day",
				Type:   domain.MissionTypeDaily,
				Action: domain.ActionCompleteMissions,
				Target: 3,
				Reward: domain.Reward{Experience: 30},
			},
			{
				ID:     "level-10",
				Name:   "Reach Level 10",
				Type:   domain.MissionTypeLevel,
				Action: domain.ActionReachLevel,
				Target: 10,
				Reward: domain.Reward{Experience: 0, BadgeID: "veteran"},
			},
		},
		Badges: []*domain.BadgeDefinition{
			{Key: "theme:nature", Cap: 5},
			{Key: "spot", Cap: 3},
		},
	}
}
