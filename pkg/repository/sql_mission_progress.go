package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/AccelByte/extend-mission-common/pkg/domain"
	missionerrors "github.com/AccelByte/extend-mission-common/pkg/errors"
)

const progressColumns = `id, user_id, place_id, mission_template_id, mission_type,
	current_value, target, is_completed, is_active, sort_order, created_at, updated_at`

// progressInsertBatch keeps multi-row inserts under SQLite's bound-parameter limit.
const progressInsertBatch = 500

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*domain.MissionProgress, error) {
	var (
		p                    domain.MissionProgress
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.PlaceID,
		&p.MissionTemplateID,
		&p.MissionType,
		&p.Current,
		&p.Target,
		&p.IsCompleted,
		&p.IsActive,
		&p.SortOrder,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func (s *SQLStore) queryProgress(ctx context.Context, operation, query string, args ...any) ([]*domain.MissionProgress, error) {
	rows, err := s.q.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, classifyError(operation, err)
	}
	defer func() { _ = rows.Close() }()

	records := []*domain.MissionProgress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, classifyError(operation, err)
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(operation, err)
	}
	return records, nil
}

// QueryMissionProgress retrieves a user's progress records of one mission type.
func (s *SQLStore) QueryMissionProgress(ctx context.Context, userID string, missionType domain.MissionType, placeID string) ([]*domain.MissionProgress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM mission_progress
		WHERE user_id = $1 AND mission_type = $2`
	args := []any{userID, string(missionType)}

	if missionType == domain.MissionTypeSpot && placeID != "" {
		query += " AND place_id = $3"
		args = append(args, placeID)
	}
	query += " ORDER BY created_at ASC, sort_order ASC, id ASC"

	return s.queryProgress(ctx, "query mission progress", query, args...)
}

// GetUserMissionProgress retrieves every progress record of a user.
func (s *SQLStore) GetUserMissionProgress(ctx context.Context, userID string) ([]*domain.MissionProgress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM mission_progress
		WHERE user_id = $1
		ORDER BY created_at ASC, sort_order ASC, id ASC`

	return s.queryProgress(ctx, "get user mission progress", query, userID)
}

// GetMissionProgress retrieves a single record by ID.
func (s *SQLStore) GetMissionProgress(ctx context.Context, id string) (*domain.MissionProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM mission_progress WHERE id = $1`

	p, err := scanProgress(s.q.QueryRowContext(ctx, s.dialect.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, missionerrors.ErrRecordNotFound("mission progress", id)
	}
	if err != nil {
		return nil, classifyError("get mission progress", err)
	}
	return p, nil
}

// UpdateMissionProgress writes current and isCompleted in one statement.
// The is_completed guard makes a completed record immutable, so a reward
// can only be earned by the write that flips the flag.
func (s *SQLStore) UpdateMissionProgress(ctx context.Context, id string, current int, isCompleted bool) (*domain.UpdateResult, error) {
	query := `
		UPDATE mission_progress
		SET current_value = $2, is_completed = $3, updated_at = $4
		WHERE id = $1 AND is_completed = false
		RETURNING is_completed, current_value, target`

	var result domain.UpdateResult
	err := s.q.QueryRowContext(ctx, s.dialect.rebind(query), id, current, isCompleted, toMillis(s.now())).Scan(
		&result.IsCompleted,
		&result.UpdatedValue,
		&result.Target,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, missionerrors.ErrRecordNotFound("incomplete mission progress", id)
	}
	if err != nil {
		return nil, classifyError("update mission progress", err)
	}
	return &result, nil
}

// ActivateMissionProgress marks a record active.
func (s *SQLStore) ActivateMissionProgress(ctx context.Context, id string) error {
	query := `UPDATE mission_progress SET is_active = true, updated_at = $2 WHERE id = $1`

	res, err := s.q.ExecContext(ctx, s.dialect.rebind(query), id, toMillis(s.now()))
	if err != nil {
		return classifyError("activate mission progress", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classifyError("activate mission progress", err)
	}
	if n == 0 {
		return missionerrors.ErrRecordNotFound("mission progress", id)
	}
	return nil
}

// BulkInsertMissionProgress inserts assignment records in batches.
// Uses INSERT ... ON CONFLICT (user_id, mission_template_id, place_id) DO NOTHING.
func (s *SQLStore) BulkInsertMissionProgress(ctx context.Context, records []*domain.MissionProgress) error {
	if len(records) == 0 {
		return nil
	}

	const cols = 12
	now := s.now()

	return s.withTx(ctx, "bulk insert mission progress", func(q querier) error {
		for start := 0; start < len(records); start += progressInsertBatch {
			end := min(start+progressInsertBatch, len(records))
			batch := records[start:end]

			query := `INSERT INTO mission_progress (` + progressColumns + `) VALUES ` +
				placeholders(len(batch), cols) +
				` ON CONFLICT (user_id, mission_template_id, place_id) DO NOTHING`

			args := make([]any, 0, len(batch)*cols)
			for _, p := range batch {
				createdAt, updatedAt := p.CreatedAt, p.UpdatedAt
				if createdAt.IsZero() {
					createdAt = now
				}
				if updatedAt.IsZero() {
					updatedAt = createdAt
				}
				args = append(args,
					p.ID,
					p.UserID,
					p.PlaceID,
					p.MissionTemplateID,
					string(p.MissionType),
					p.Current,
					p.Target,
					p.IsCompleted,
					p.IsActive,
					p.SortOrder,
					toMillis(createdAt),
					toMillis(updatedAt),
				)
			}

			if _, err := q.ExecContext(ctx, s.dialect.rebind(query), args...); err != nil {
				return classifyError("bulk insert mission progress", err)
			}
		}
		return nil
	})
}
