package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/AccelByte/extend-mission-common/pkg/domain"
	missionerrors "github.com/AccelByte/extend-mission-common/pkg/errors"
)

const templateColumns = `id, name, description, mission_type, category, mission_action,
	target, reward_experience, reward_badge_id, reward_discount_id`

func scanTemplate(row rowScanner) (*domain.MissionTemplate, error) {
	var t domain.MissionTemplate
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.Type,
		&t.Category,
		&t.Action,
		&t.Target,
		&t.Reward.Experience,
		&t.Reward.BadgeID,
		&t.Reward.DiscountID,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// QueryMissionTemplatesByType returns the templates of one type in catalog order.
func (s *SQLStore) QueryMissionTemplatesByType(ctx context.Context, missionType domain.MissionType) ([]*domain.MissionTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM mission_templates
		WHERE mission_type = $1
		ORDER BY sort_order ASC, id ASC`

	rows, err := s.q.QueryContext(ctx, s.dialect.rebind(query), string(missionType))
	if err != nil {
		return nil, classifyError("query mission templates", err)
	}
	defer func() { _ = rows.Close() }()

	templates := []*domain.MissionTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, classifyError("query mission templates", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError("query mission templates", err)
	}
	return templates, nil
}

// GetMissionTemplate retrieves a template by ID.
func (s *SQLStore) GetMissionTemplate(ctx context.Context, id string) (*domain.MissionTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM mission_templates WHERE id = $1`

	t, err := scanTemplate(s.q.QueryRowContext(ctx, s.dialect.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, missionerrors.ErrRecordNotFound("mission template", id)
	}
	if err != nil {
		return nil, classifyError("get mission template", err)
	}
	return t, nil
}

// ReplaceMissionTemplates deletes the stored catalog and inserts templates in their given order.
func (s *SQLStore) ReplaceMissionTemplates(ctx context.Context, templates []*domain.MissionTemplate) error {
	insert := s.dialect.rebind(`
		INSERT INTO mission_templates (` + templateColumns + `, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)

	return s.withTx(ctx, "replace mission templates", func(q querier) error {
		if _, err := q.ExecContext(ctx, "DELETE FROM mission_templates"); err != nil {
			return classifyError("replace mission templates", err)
		}

		for i, t := range templates {
			if t == nil {
				continue
			}
			_, err := q.ExecContext(ctx, insert,
				t.ID,
				t.Name,
				t.Description,
				string(t.Type),
				t.Category,
				string(t.Action),
				t.Target,
				t.Reward.Experience,
				t.Reward.BadgeID,
				t.Reward.DiscountID,
				i,
			)
			if err != nil {
				return classifyError("replace mission templates", err)
			}
		}
		return nil
	})
}
