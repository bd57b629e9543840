package repository

import (
	"context"
	"database/sql"
	"errors"

	missionerrors "github.com/AccelByte/extend-mission-common/pkg/errors"
)

// GetLevel returns the stored level of a user.
func (s *SQLStore) GetLevel(ctx context.Context, userID string) (int, error) {
	var level int
	err := s.q.QueryRowContext(ctx, s.dialect.rebind(`SELECT level FROM user_levels WHERE user_id = $1`), userID).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, missionerrors.ErrRecordNotFound("level", userID)
	}
	if err != nil {
		return 0, classifyError("get level", err)
	}
	return level, nil
}

// SetLevel creates or overwrites the stored level.
func (s *SQLStore) SetLevel(ctx context.Context, userID string, level int) error {
	query := `
		INSERT INTO user_levels (user_id, level, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			level = EXCLUDED.level,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.q.ExecContext(ctx, s.dialect.rebind(query), userID, level, toMillis(s.now())); err != nil {
		return classifyError("set level", err)
	}
	return nil
}
