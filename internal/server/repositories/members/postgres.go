// Package members stores which devices belong to which household.
package members

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/feedkeeper/internal/dbx"
	"github.com/dmitrijs2005/feedkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Register relies on the (household_id, device_id) unique key: a repeated
// registration touches the existing row and returns its id.
func (r *PostgresRepository) Register(ctx context.Context, m *models.Member) (*models.Member, error) {
	query :=
		`INSERT INTO members (id, household_id, device_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (household_id, device_id) DO UPDATE SET device_id = EXCLUDED.device_id
		 RETURNING id, created_at
		 `

	out := *m
	err := r.db.QueryRowContext(ctx, query, m.ID, m.HouseholdID, m.DeviceID).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

func (r *PostgresRepository) ListByHousehold(ctx context.Context, householdID string) ([]*models.Member, error) {
	query :=
		`SELECT id, household_id, device_id, created_at FROM members
		 WHERE household_id = $1
		 ORDER BY created_at, id
		 `

	rows, err := r.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Member
	for rows.Next() {
		m := &models.Member{}
		if err := rows.Scan(&m.ID, &m.HouseholdID, &m.DeviceID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
