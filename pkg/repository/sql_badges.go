package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/AccelByte/extend-mission-common/pkg/domain"
	missionerrors "github.com/AccelByte/extend-mission-common/pkg/errors"
)

func (s *SQLStore) badgeRecordExists(ctx context.Context, q querier, userID string) (bool, error) {
	var found int
	err := q.QueryRowContext(ctx, s.dialect.rebind(`SELECT 1 FROM badge_records WHERE user_id = $1`), userID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetBadgeRecord loads a user's record with all counters and completed spots.
func (s *SQLStore) GetBadgeRecord(ctx context.Context, userID string) (*domain.BadgeRecord, error) {
	exists, err := s.badgeRecordExists(ctx, s.q, userID)
	if err != nil {
		return nil, classifyError("get badge record", err)
	}
	if !exists {
		return nil, missionerrors.ErrRecordNotFound("badge record", userID)
	}

	record := &domain.BadgeRecord{
		UserID:        userID,
		Counters:      make(map[domain.BadgeKey]*domain.BadgeCounter),
		SpotCompleted: []string{},
	}

	if err := s.loadBadgeCounters(ctx, record); err != nil {
		return nil, classifyError("get badge record", err)
	}
	if err := s.loadSpotCompletions(ctx, record); err != nil {
		return nil, classifyError("get badge record", err)
	}
	return record, nil
}

func (s *SQLStore) loadBadgeCounters(ctx context.Context, record *domain.BadgeRecord) error {
	query := `
		SELECT badge_key, counter, cap, obtained
		FROM badge_counters
		WHERE user_id = $1
		ORDER BY badge_key ASC`

	rows, err := s.q.QueryContext(ctx, s.dialect.rebind(query), record.UserID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			key string
			c   domain.BadgeCounter
		)
		if err := rows.Scan(&key, &c.Counter, &c.Cap, s.dialect.milestoneDest(&c.Obtained)); err != nil {
			return err
		}
		record.Counters[domain.BadgeKey(key)] = &c
	}
	return rows.Err()
}

func (s *SQLStore) loadSpotCompletions(ctx context.Context, record *domain.BadgeRecord) error {
	query := `
		SELECT place_id
		FROM badge_spot_completions
		WHERE user_id = $1
		ORDER BY completed_at ASC, place_id ASC`

	rows, err := s.q.QueryContext(ctx, s.dialect.rebind(query), record.UserID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var placeID string
		if err := rows.Scan(&placeID); err != nil {
			return err
		}
		record.SpotCompleted = append(record.SpotCompleted, placeID)
	}
	return rows.Err()
}

// CreateBadgeRecord creates a record with its initial counters and completed spots.
func (s *SQLStore) CreateBadgeRecord(ctx context.Context, record *domain.BadgeRecord) error {
	if record == nil || record.UserID == "" {
		return missionerrors.ErrValidationFailed("user_id", "badge record requires a user")
	}
	for _, key := range record.Keys() {
		if c := record.Counters[key]; c == nil || c.Cap <= 0 {
			return missionerrors.ErrValidationFailed("cap", "must be positive for "+string(key))
		}
	}

	now := toMillis(s.now())
	insertRecord := s.dialect.rebind(`
		INSERT INTO badge_records (user_id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`)
	insertCounter := s.dialect.rebind(`
		INSERT INTO badge_counters (user_id, badge_key, counter, cap, obtained, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, badge_key) DO NOTHING`)
	insertSpot := s.dialect.rebind(`
		INSERT INTO badge_spot_completions (user_id, place_id, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, place_id) DO NOTHING`)

	return s.withTx(ctx, "create badge record", func(q querier) error {
		if _, err := q.ExecContext(ctx, insertRecord, record.UserID, now); err != nil {
			return classifyError("create badge record", err)
		}

		for _, key := range record.Keys() {
			c := record.Counters[key]
			obtained, err := s.dialect.milestoneValue(c.Obtained)
			if err != nil {
				return missionerrors.ErrDatabaseError("encode milestones", err)
			}
			if _, err := q.ExecContext(ctx, insertCounter, record.UserID, string(key), c.Counter, c.Cap, obtained, now); err != nil {
				return classifyError("create badge record", err)
			}
		}

		for _, placeID := range record.SpotCompleted {
			if _, err := q.ExecContext(ctx, insertSpot, record.UserID, placeID, now); err != nil {
				return classifyError("create badge record", err)
			}
		}
		return nil
	})
}

// GetBadgeCounter loads one counter without locking it.
func (s *SQLStore) GetBadgeCounter(ctx context.Context, userID string, key domain.BadgeKey) (*domain.BadgeCounter, error) {
	return s.getBadgeCounter(ctx, s.q, userID, key, false)
}

func (s *SQLStore) getBadgeCounter(ctx context.Context, q querier, userID string, key domain.BadgeKey, lock bool) (*domain.BadgeCounter, error) {
	query := `
		SELECT counter, cap, obtained
		FROM badge_counters
		WHERE user_id = $1 AND badge_key = $2`
	if lock {
		query += s.dialect.forUpdate()
	}

	var c domain.BadgeCounter
	err := q.QueryRowContext(ctx, s.dialect.rebind(query), userID, string(key)).Scan(
		&c.Counter,
		&c.Cap,
		s.dialect.milestoneDest(&c.Obtained),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, missionerrors.ErrRecordNotFound("badge counter", userID+"/"+string(key))
	}
	if err != nil {
		return nil, classifyError("get badge counter", err)
	}
	return &c, nil
}

// SetBadgeField writes the counter or cap of one badge counter.
func (s *SQLStore) SetBadgeField(ctx context.Context, userID string, key domain.BadgeKey, field domain.BadgeField, value int) error {
	var column string
	switch field {
	case domain.BadgeFieldCounter:
		column = "counter"
	case domain.BadgeFieldCap:
		column = "cap"
		if value <= 0 {
			return missionerrors.ErrValidationFailed("cap", "must be positive")
		}
	default:
		return missionerrors.ErrValidationFailed("field", "unknown badge field "+string(field))
	}

	query := `UPDATE badge_counters SET ` + column + ` = $3, updated_at = $4 WHERE user_id = $1 AND badge_key = $2`
	res, err := s.q.ExecContext(ctx, s.dialect.rebind(query), userID, string(key), value, toMillis(s.now()))
	if err != nil {
		return classifyError("set badge field", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classifyError("set badge field", err)
	}
	if n == 0 {
		return missionerrors.ErrRecordNotFound("badge counter", userID+"/"+string(key))
	}
	return nil
}

// UnionAppendMilestones adds values to the obtained set of one counter.
// Values already present are skipped; the stored set is kept sorted.
func (s *SQLStore) UnionAppendMilestones(ctx context.Context, userID string, key domain.BadgeKey, values []int) error {
	if len(values) == 0 {
		return nil
	}

	return s.withTx(ctx, "append milestones", func(q querier) error {
		c, err := s.getBadgeCounter(ctx, q, userID, key, true)
		if err != nil {
			return err
		}

		merged := mergeMilestones(c.Obtained, values)
		if len(merged) == len(c.Obtained) {
			return nil
		}

		obtained, err := s.dialect.milestoneValue(merged)
		if err != nil {
			return missionerrors.ErrDatabaseError("encode milestones", err)
		}

		query := `UPDATE badge_counters SET obtained = $3, updated_at = $4 WHERE user_id = $1 AND badge_key = $2`
		if _, err := q.ExecContext(ctx, s.dialect.rebind(query), userID, string(key), obtained, toMillis(s.now())); err != nil {
			return classifyError("append milestones", err)
		}
		return nil
	})
}

// mergeMilestones returns the sorted union of existing and values.
func mergeMilestones(existing, values []int) []int {
	seen := make(map[int]struct{}, len(existing)+len(values))
	merged := make([]int, 0, len(existing)+len(values))
	for _, v := range existing {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			merged = append(merged, v)
		}
	}
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			merged = append(merged, v)
		}
	}
	sort.Ints(merged)
	return merged
}

// AppendSpotCompleted records a completed place. Returns false if it was already recorded.
func (s *SQLStore) AppendSpotCompleted(ctx context.Context, userID, placeID string) (bool, error) {
	exists, err := s.badgeRecordExists(ctx, s.q, userID)
	if err != nil {
		return false, classifyError("append spot completed", err)
	}
	if !exists {
		return false, missionerrors.ErrRecordNotFound("badge record", userID)
	}

	query := `
		INSERT INTO badge_spot_completions (user_id, place_id, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, place_id) DO NOTHING`

	res, err := s.q.ExecContext(ctx, s.dialect.rebind(query), userID, placeID, toMillis(s.now()))
	if err != nil {
		return false, classifyError("append spot completed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classifyError("append spot completed", err)
	}
	return n > 0, nil
}
