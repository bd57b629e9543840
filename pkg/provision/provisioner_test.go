package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-mission-common/pkg/config"
	"github.com/AccelByte/extend-mission-common/pkg/db"
	"github.com/AccelByte/extend-mission-common/pkg/domain"
	"github.com/AccelByte/extend-mission-common/pkg/errors"
	"github.com/AccelByte/extend-mission-common/pkg/repository"
)

func testCatalog() *config.Config {
	return &config.Config{
		Missions: []*domain.MissionTemplate{
			{ID: "spot-photo", Name: "Photo", Type: domain.MissionTypeSpot, Action: domain.ActionTakePhoto, Target: 1},
			{ID: "spot-review", Name: "Review", Type: domain.MissionTypeSpot, Action: domain.ActionWriteReview, Target: 1},
			{ID: "daily-login", Name: "Login", Type: domain.MissionTypeDaily, Action: domain.ActionLogin, Target: 1},
			{ID: "theme-nature", Name: "Nature", Type: domain.MissionTypeTheme, Category: "nature", Action: domain.ActionTakePhoto, Target: 3},
			{ID: "level-10", Name: "Level 10", Type: domain.MissionTypeLevel, Action: domain.ActionReachLevel, Target: 10},
		},
		Badges: []*domain.BadgeDefinition{
			{Key: "theme:nature", Cap: 5},
			{Key: "spot", Cap: 3},
		},
	}
}

func setupProvisioner(t *testing.T) (*Provisioner, *repository.SQLStore) {
	t.Helper()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "provision.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn, db.DriverSQLite))

	store, err := repository.NewSQLStore(conn, db.DriverSQLite)
	require.NoError(t, err)

	p := NewProvisioner(Stores{
		Templates: store,
		Progress:  store,
		Levels:    store,
		Badges:    store,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	seq := 0
	p.newID = func() string {
		seq++
		return fmt.Sprintf("progress-%03d", seq)
	}
	p.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

	return p, store
}

func TestSeedCatalog(t *testing.T) {
	p, store := setupProvisioner(t)
	ctx := context.Background()

	require.NoError(t, p.SeedCatalog(ctx, testCatalog()))

	spots, err := store.QueryMissionTemplatesByType(ctx, domain.MissionTypeSpot)
	require.NoError(t, err)
	require.Len(t, spots, 2)
	assert.Equal(t, "spot-photo", spots[0].ID)
	assert.Equal(t, "spot-review", spots[1].ID)

	err = p.SeedCatalog(ctx, &config.Config{})
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.Code(err))

	err = p.SeedCatalog(ctx, nil)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.Code(err))

	// a rejected catalog leaves the stored one in place
	spots, err = store.QueryMissionTemplatesByType(ctx, domain.MissionTypeSpot)
	require.NoError(t, err)
	assert.Len(t, spots, 2)
}

func TestProvisionUser(t *testing.T) {
	p, store := setupProvisioner(t)
	ctx := context.Background()
	catalog := testCatalog()
	require.NoError(t, p.SeedCatalog(ctx, catalog))

	result, err := p.ProvisionUser(ctx, "user-1", []string{"harbor", "museum"}, catalog.Badges)
	require.NoError(t, err)
	assert.True(t, result.LevelCreated)
	assert.Equal(t, 2, result.BadgeKeys)
	assert.Equal(t, 7, result.Records, "2 spots x 2 places + daily + theme + level")

	level, err := store.GetLevel(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, level)

	record, err := store.GetBadgeRecord(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, record.Counters, 2)
	assert.Equal(t, 5, record.Counters["theme:nature"].Cap)
	assert.Equal(t, 0, record.ObtainedCount())

	harbor, err := store.QueryMissionProgress(ctx, "user-1", domain.MissionTypeSpot, "harbor")
	require.NoError(t, err)
	require.Len(t, harbor, 2)
	assert.Equal(t, "spot-photo", harbor[0].MissionTemplateID)
	assert.True(t, harbor[0].IsActive)
	assert.Equal(t, "spot-review", harbor[1].MissionTemplateID)
	assert.False(t, harbor[1].IsActive)

	all, err := store.GetUserMissionProgress(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, all, 7)
	for _, r := range all {
		assert.Equal(t, domain.CurrentUnset, r.Current)
		assert.False(t, r.IsCompleted)
	}

	themes, err := store.QueryMissionProgress(ctx, "user-1", domain.MissionTypeTheme, "")
	require.NoError(t, err)
	require.Len(t, themes, 1)
	assert.Equal(t, 3, themes[0].Target)
	assert.Empty(t, themes[0].PlaceID)
	assert.True(t, themes[0].IsActive)
}

func TestProvisionUser_Idempotent(t *testing.T) {
	p, store := setupProvisioner(t)
	ctx := context.Background()
	catalog := testCatalog()
	require.NoError(t, p.SeedCatalog(ctx, catalog))

	_, err := p.ProvisionUser(ctx, "user-1", []string{"harbor"}, catalog.Badges)
	require.NoError(t, err)

	require.NoError(t, store.SetLevel(ctx, "user-1", 12))
	themes, err := store.QueryMissionProgress(ctx, "user-1", domain.MissionTypeTheme, "")
	require.NoError(t, err)
	_, err = store.UpdateMissionProgress(ctx, themes[0].ID, 2, false)
	require.NoError(t, err)

	result, err := p.ProvisionUser(ctx, "user-1", []string{"harbor", "museum"}, catalog.Badges)
	require.NoError(t, err)
	assert.False(t, result.LevelCreated)

	level, err := store.GetLevel(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 12, level)

	themes, err = store.QueryMissionProgress(ctx, "user-1", domain.MissionTypeTheme, "")
	require.NoError(t, err)
	require.Len(t, themes, 1)
	assert.Equal(t, 2, themes[0].Current)

	all, err := store.GetUserMissionProgress(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, all, 7, "museum spots are added, existing assignments kept")
}

func TestProvisionUser_Validation(t *testing.T) {
	p, _ := setupProvisioner(t)

	_, err := p.ProvisionUser(context.Background(), "", []string{"harbor"}, nil)
	assert.True(t, errors.IsNotAuthenticated(err))
}

func TestProvisionUser_NoPlaces(t *testing.T) {
	p, store := setupProvisioner(t)
	ctx := context.Background()
	catalog := testCatalog()
	require.NoError(t, p.SeedCatalog(ctx, catalog))

	result, err := p.ProvisionUser(ctx, "user-2", []string{""}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Records)
	assert.Equal(t, 0, result.BadgeKeys)

	spots, err := store.QueryMissionProgress(ctx, "user-2", domain.MissionTypeSpot, "")
	require.NoError(t, err)
	assert.Empty(t, spots)
}
