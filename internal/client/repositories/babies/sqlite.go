package babies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
	"github.com/dmitrijs2005/feedkeeper/internal/client/repositories"
	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/dbx"
)

const columns = `id, external_id, household_id, updated_at, deleted, name, birth_date, gender, placeholder`

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func scan(s repositories.RowScanner) (models.Baby, error) {
	var b models.Baby
	var hh sql.NullString
	err := s.Scan(&b.ID, &b.ExternalID, &hh, &b.UpdatedAt, &b.Deleted, &b.Name, &b.BirthDate, &b.Gender, &b.Placeholder)
	if err != nil {
		return models.Baby{}, err
	}
	b.HouseholdID = repositories.StringOrEmpty(hh)
	return b, nil
}

func scanOne(row *sql.Row) (models.Baby, error) {
	b, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Baby{}, common.ErrNotFound
	}
	if err != nil {
		return models.Baby{}, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) query(ctx context.Context, q string, args ...any) ([]models.Baby, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select babies: %w", err)
	}
	defer rows.Close()

	var out []models.Baby
	for rows.Next() {
		b, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan baby: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, b *models.Baby) error {
	q := `INSERT INTO babies (external_id, household_id, updated_at, deleted, name, birth_date, gender, placeholder)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.ExternalID, repositories.NullString(b.HouseholdID), b.UpdatedAt,
		b.Deleted, b.Name, repositories.Opt(b.BirthDate), repositories.Text(b.Gender), b.Placeholder)
	if err != nil {
		return fmt.Errorf("failed to insert baby: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get baby id: %w", err)
	}
	b.ID = id
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, externalID string, p models.BabyPatch, now int64) (models.Baby, error) {
	q := `UPDATE babies SET
			name = COALESCE(?, name),
			birth_date = COALESCE(?, birth_date),
			gender = COALESCE(?, gender),
			placeholder = 0,
			updated_at = ` + repositories.StampExpr + `
		WHERE external_id = ? AND deleted = 0
		RETURNING ` + columns
	return scanOne(r.db.QueryRowContext(ctx, q, repositories.Text(p.Name), repositories.Opt(p.BirthDate), repositories.Text(p.Gender), now, externalID))
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, externalID string, now int64) (models.Baby, error) {
	q := `UPDATE babies SET deleted = 1, placeholder = 0, updated_at = ` + repositories.StampExpr + `
		WHERE external_id = ?
		RETURNING ` + columns
	return scanOne(r.db.QueryRowContext(ctx, q, now, externalID))
}

func (r *SQLiteRepository) Get(ctx context.Context, externalID string) (models.Baby, error) {
	return scanOne(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM babies WHERE external_id = ?`, externalID))
}

func (r *SQLiteRepository) ListActive(ctx context.Context) ([]models.Baby, error) {
	return r.query(ctx, `SELECT `+columns+` FROM babies WHERE deleted = 0 ORDER BY id`)
}

func (r *SQLiteRepository) ChangedSince(ctx context.Context, ts int64) ([]models.Baby, error) {
	return r.query(ctx, `SELECT `+columns+` FROM babies WHERE updated_at > ? ORDER BY updated_at, id`, ts)
}

func (r *SQLiteRepository) UpsertFromRemote(ctx context.Context, b models.Baby) (bool, error) {
	q := `INSERT INTO babies (external_id, household_id, updated_at, deleted, name, birth_date, gender, placeholder)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(external_id) DO UPDATE SET
			household_id = excluded.household_id,
			updated_at = excluded.updated_at,
			deleted = excluded.deleted,
			name = excluded.name,
			birth_date = excluded.birth_date,
			gender = excluded.gender,
			placeholder = 0
		WHERE excluded.updated_at > babies.updated_at OR (babies.placeholder = 1 AND babies.deleted = 0)`
	res, err := r.db.ExecContext(ctx, q, b.ExternalID, repositories.NullString(b.HouseholdID), b.UpdatedAt,
		b.Deleted, b.Name, repositories.Opt(b.BirthDate), repositories.Text(b.Gender))
	if err != nil {
		return false, fmt.Errorf("failed to merge baby: %w", err)
	}
	n, err := dbx.Affected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepository) EnsurePlaceholder(ctx context.Context, externalID, householdID string, now int64) (bool, error) {
	q := `INSERT INTO babies (external_id, household_id, updated_at, deleted, name, placeholder)
		VALUES (?, ?, ?, 0, ?, 1)
		ON CONFLICT(external_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, q, externalID, repositories.NullString(householdID), now, models.PlaceholderBabyName)
	if err != nil {
		return false, fmt.Errorf("failed to create placeholder baby: %w", err)
	}
	n, err := dbx.Affected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, externalID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM babies WHERE external_id = ? AND household_id IS NULL`, externalID)
	if err != nil {
		return fmt.Errorf("failed to purge baby: %w", err)
	}
	n, err := dbx.Affected(res)
	if err != nil {
		return err
	}
	switch n {
	case 1:
		return nil
	case 0:
		if _, err := r.Get(ctx, externalID); err != nil {
			return err
		}
		return common.ErrAlreadySynced
	default:
		return fmt.Errorf("wrong rows affected count: %d", n)
	}
}

func (r *SQLiteRepository) BackfillHousehold(ctx context.Context, householdID string, now int64) (int64, error) {
	q := `UPDATE babies SET household_id = ?, updated_at = ` + repositories.StampExpr + ` WHERE household_id IS NULL`
	res, err := r.db.ExecContext(ctx, q, householdID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill babies: %w", err)
	}
	return dbx.Affected(res)
}
