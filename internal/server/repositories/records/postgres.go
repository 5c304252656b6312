// Package records stores the shared copy of every synced entity.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/dbx"
	"github.com/dmitrijs2005/feedkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Owner(ctx context.Context, kind, externalID string) (string, error) {
	query :=
		`SELECT household_id FROM records
		 WHERE kind = $1 AND external_id = $2
		 FOR UPDATE
		 `

	var hh string
	err := r.db.QueryRowContext(ctx, query, kind, externalID).Scan(&hh)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return hh, nil
}

// Upsert only overwrites when the incoming stamp is strictly newer; ties
// keep the stored copy.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.Record) (bool, error) {
	query :=
		`INSERT INTO records (kind, external_id, household_id, updated_at, deleted, fields)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (kind, external_id) DO UPDATE
		 SET updated_at = EXCLUDED.updated_at, deleted = EXCLUDED.deleted, fields = EXCLUDED.fields
		 WHERE records.household_id = EXCLUDED.household_id AND EXCLUDED.updated_at > records.updated_at
		 `

	res, err := r.db.ExecContext(ctx, query,
		rec.Kind, rec.ExternalID, rec.HouseholdID, rec.UpdatedAt, rec.Deleted, rec.Fields)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := dbx.Affected(res)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) ChangedSince(ctx context.Context, kind, householdID string, since int64) ([]*models.Record, error) {
	query :=
		`SELECT kind, external_id, household_id, updated_at, deleted, fields FROM records
		 WHERE household_id = $1 AND kind = $2 AND updated_at > $3
		 ORDER BY updated_at, external_id
		 `

	return r.list(ctx, query, householdID, kind, since)
}

func (r *PostgresRepository) ListHousehold(ctx context.Context, householdID string) ([]*models.Record, error) {
	query :=
		`SELECT kind, external_id, household_id, updated_at, deleted, fields FROM records
		 WHERE household_id = $1
		 ORDER BY kind, updated_at, external_id
		 `

	return r.list(ctx, query, householdID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		rec := &models.Record{}
		if err := rows.Scan(&rec.Kind, &rec.ExternalID, &rec.HouseholdID, &rec.UpdatedAt, &rec.Deleted, &rec.Fields); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
