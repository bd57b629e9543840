package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-mission-common/pkg/domain"
	"github.com/AccelByte/extend-mission-common/pkg/errors"
)

func TestQuery_MissionProgress(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	env.assign(t, "user-1",
		record("login", "daily-login", domain.MissionTypeDaily, 1),
		record("theme", "theme-nature", domain.MissionTypeTheme, 3),
		record("retired", "daily-retired", domain.MissionTypeDaily, 1),
	)

	all, err := env.query.MissionProgress(ctx, "user-1", "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	daily, err := env.query.MissionProgress(ctx, "user-1", domain.MissionTypeDaily)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, "login", daily[0].Progress.ID)
	require.NotNil(t, daily[0].Template)
	assert.Equal(t, "Login", daily[0].Template.Name)
	assert.Nil(t, daily[1].Template, "templates missing from the catalog are left empty")

	none, err := env.query.MissionProgress(ctx, "user-2", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQuery_ObtainedBadgeCount(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	count, err := env.query.ObtainedBadgeCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count, "no badge record yet")

	require.NoError(t, env.store.CreateBadgeRecord(ctx, &domain.BadgeRecord{
		UserID: "user-1",
		Counters: map[domain.BadgeKey]*domain.BadgeCounter{
			"theme:nature": {Counter: 10, Cap: 5, Obtained: []int{5, 10}},
			"spot":         {Counter: 4, Cap: 3, Obtained: []int{3}},
		},
		SpotCompleted: []string{"harbor", "museum"},
	}))

	count, err = env.query.ObtainedBadgeCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestQuery_RequiresUser(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	_, err := env.query.MissionProgress(ctx, "", "")
	assert.True(t, errors.IsNotAuthenticated(err))

	_, err = env.query.SpotCompletionCounts(ctx, "")
	assert.True(t, errors.IsNotAuthenticated(err))

	_, err = env.query.ObtainedBadgeCount(ctx, "")
	assert.True(t, errors.IsNotAuthenticated(err))

	_, err = env.query.BadgeRecord(ctx, "")
	assert.True(t, errors.IsNotAuthenticated(err))
}
