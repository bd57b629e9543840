package badge

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-mission-common/pkg/db"
	"github.com/AccelByte/extend-mission-common/pkg/domain"
	"github.com/AccelByte/extend-mission-common/pkg/errors"
	"github.com/AccelByte/extend-mission-common/pkg/repository"
)

const natureKey = domain.BadgeKey("theme:nature")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupAccumulator returns an accumulator over a migrated SQLite store with one provisioned user.
func setupAccumulator(t *testing.T) (*Accumulator, *repository.SQLStore) {
	t.Helper()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "badges.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn, db.DriverSQLite))

	store, err := repository.NewSQLStore(conn, db.DriverSQLite)
	require.NoError(t, err)

	require.NoError(t, store.CreateBadgeRecord(context.Background(), &domain.BadgeRecord{
		UserID: "user-1",
		Counters: map[domain.BadgeKey]*domain.BadgeCounter{
			natureKey: {Cap: 5},
			"spot":    {Cap: 3},
		},
	}))

	return NewAccumulator(store, testLogger()), store
}

func TestAdvance_DefaultIncrement(t *testing.T) {
	acc, store := setupAccumulator(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		result, err := acc.Advance(ctx, "user-1", natureKey, nil)
		require.NoError(t, err)
		assert.Equal(t, i, result.NewCounter)
		assert.Empty(t, result.Added)
	}

	result, err := acc.Advance(ctx, "user-1", natureKey, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, result.OldCounter)
	assert.Equal(t, 5, result.NewCounter)
	assert.Equal(t, []int{5}, result.Added)
	assert.Equal(t, []int{5}, result.Obtained)

	c, err := store.GetBadgeCounter(ctx, "user-1", natureKey)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Counter)
	assert.Equal(t, []int{5}, c.Obtained)
}

func TestAdvance_BulkIncrementCatchesUp(t *testing.T) {
	acc, store := setupAccumulator(t)
	ctx := context.Background()

	result, err := acc.Advance(ctx, "user-1", natureKey, domain.UpdateFunc(func(c int) int { return c + 20 }))
	require.NoError(t, err)
	assert.Equal(t, 20, result.NewCounter)
	assert.Equal(t, []int{5, 10, 15, 20}, result.Added)

	c, err := store.GetBadgeCounter(ctx, "user-1", natureKey)
	require.NoError(t, err)
	assert.Equal(t, 20, c.Counter)
	assert.Equal(t, []int{5, 10, 15, 20}, c.Obtained)
	assert.NoError(t, CheckInvariant(c))
}

func TestAdvance_ReplayIsNoop(t *testing.T) {
	acc, store := setupAccumulator(t)
	ctx := context.Background()

	_, err := acc.Advance(ctx, "user-1", natureKey, domain.SetTo{Value: 4})
	require.NoError(t, err)

	first, err := acc.Advance(ctx, "user-1", natureKey, domain.SetTo{Value: 15})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 10, 15}, first.Added)

	second, err := acc.Advance(ctx, "user-1", natureKey, domain.SetTo{Value: 15})
	require.NoError(t, err)
	assert.Empty(t, second.Added)
	assert.Equal(t, []int{5, 10, 15}, second.Obtained)

	c, err := store.GetBadgeCounter(ctx, "user-1", natureKey)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 10, 15}, c.Obtained)
}

func TestAdvance_DecreaseIsRejected(t *testing.T) {
	acc, store := setupAccumulator(t)
	ctx := context.Background()

	_, err := acc.Advance(ctx, "user-1", natureKey, domain.SetTo{Value: 7})
	require.NoError(t, err)

	_, err = acc.Advance(ctx, "user-1", natureKey, domain.SetTo{Value: 3})
	assert.True(t, errors.IsInvariantViolation(err))

	c, err := store.GetBadgeCounter(ctx, "user-1", natureKey)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Counter)
	assert.Equal(t, []int{5}, c.Obtained)
}

func TestAdvance_Errors(t *testing.T) {
	acc, _ := setupAccumulator(t)
	ctx := context.Background()

	_, err := acc.Advance(ctx, "", natureKey, nil)
	assert.True(t, errors.IsNotAuthenticated(err))

	_, err = acc.Advance(ctx, "user-1", "theme:food", nil)
	assert.True(t, errors.IsNotFound(err))

	_, err = acc.Advance(ctx, "user-2", natureKey, nil)
	assert.True(t, errors.IsNotFound(err))

	// store must still be usable after failed advances
	_, err = acc.Advance(ctx, "user-1", natureKey, nil)
	assert.NoError(t, err)
}

func TestAdvance_ConcurrentCallsDoNotLoseUpdates(t *testing.T) {
	acc, store := setupAccumulator(t)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := acc.Advance(ctx, "user-1", natureKey, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := store.GetBadgeCounter(ctx, "user-1", natureKey)
	require.NoError(t, err)
	assert.Equal(t, n, c.Counter)
	assert.Equal(t, []int{5, 10, 15, 20, 25}, c.Obtained)
}

func TestMarkSpotCompleted(t *testing.T) {
	acc, store := setupAccumulator(t)
	ctx := context.Background()

	added, err := acc.MarkSpotCompleted(ctx, "user-1", "harbor")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = acc.MarkSpotCompleted(ctx, "user-1", "harbor")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = acc.Advance(ctx, "user-1", "spot", domain.Increment{By: 6})
	require.NoError(t, err)

	record, err := store.GetBadgeRecord(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"harbor"}, record.SpotCompleted)
	assert.Equal(t, 3, record.ObtainedCount(), "one spot plus milestones 3 and 6")

	_, err = acc.MarkSpotCompleted(ctx, "", "harbor")
	assert.True(t, errors.IsNotAuthenticated(err))
}

// MockBadgeStore is a mock implementation of repository.BadgeStore.
type MockBadgeStore struct {
	mock.Mock
}

func (m *MockBadgeStore) GetBadgeRecord(ctx context.Context, userID string) (*domain.BadgeRecord, error) {
	args := m.Called(ctx, userID)
	record, _ := args.Get(0).(*domain.BadgeRecord)
	return record, args.Error(1)
}

func (m *MockBadgeStore) CreateBadgeRecord(ctx context.Context, record *domain.BadgeRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockBadgeStore) GetBadgeCounter(ctx context.Context, userID string, key domain.BadgeKey) (*domain.BadgeCounter, error) {
	args := m.Called(ctx, userID, key)
	c, _ := args.Get(0).(*domain.BadgeCounter)
	return c, args.Error(1)
}

func (m *MockBadgeStore) SetBadgeField(ctx context.Context, userID string, key domain.BadgeKey, field domain.BadgeField, value int) error {
	return m.Called(ctx, userID, key, field, value).Error(0)
}

func (m *MockBadgeStore) UnionAppendMilestones(ctx context.Context, userID string, key domain.BadgeKey, values []int) error {
	return m.Called(ctx, userID, key, values).Error(0)
}

func (m *MockBadgeStore) AppendSpotCompleted(ctx context.Context, userID, placeID string) (bool, error) {
	args := m.Called(ctx, userID, placeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBadgeStore) BeginTx(ctx context.Context) (repository.BadgeTxStore, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(repository.BadgeTxStore)
	return tx, args.Error(1)
}

func TestAdvance_StoreUnavailable(t *testing.T) {
	store := new(MockBadgeStore)
	unavailable := errors.ErrStoreUnavailable("begin transaction", stderrors.New("connection refused"))
	store.On("BeginTx", mock.Anything).Return(nil, unavailable)

	acc := NewAccumulator(store, testLogger())
	_, err := acc.Advance(context.Background(), "user-1", natureKey, nil)

	assert.True(t, errors.IsStoreUnavailable(err))
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "SetBadgeField", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
