package stash

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
	"github.com/dmitrijs2005/feedkeeper/internal/client/repositories"
	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/dbx"
)

const columns = `id, external_id, household_id, updated_at, deleted, baby_id, created_at, volume_ml, expires_at, status, notes`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func scan(s repositories.RowScanner) (models.StashItem, error) {
	var it models.StashItem
	var hh sql.NullString
	err := s.Scan(&it.ID, &it.ExternalID, &hh, &it.UpdatedAt, &it.Deleted, &it.BabyID, &it.CreatedAt,
		&it.VolumeMl, &it.ExpiresAt, &it.Status, &it.Notes)
	if err != nil {
		return models.StashItem{}, err
	}
	it.HouseholdID = repositories.StringOrEmpty(hh)
	return it, nil
}

func scanOne(row *sql.Row) (models.StashItem, error) {
	it, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StashItem{}, common.ErrNotFound
	}
	if err != nil {
		return models.StashItem{}, fmt.Errorf("db error: %w", err)
	}
	return it, nil
}

func (r *SQLiteRepository) query(ctx context.Context, q string, args ...any) ([]models.StashItem, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select stash: %w", err)
	}
	defer rows.Close()

	var out []models.StashItem
	for rows.Next() {
		it, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stash item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func status(s models.StashStatus) string {
	if s == "" {
		return string(models.StashStored)
	}
	return string(s)
}

func (r *SQLiteRepository) Insert(ctx context.Context, it *models.StashItem) error {
	q := `INSERT INTO stash (external_id, household_id, updated_at, deleted, baby_id, created_at, volume_ml, expires_at, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, it.ExternalID, repositories.NullString(it.HouseholdID), it.UpdatedAt, it.Deleted,
		it.BabyID, it.CreatedAt, it.VolumeMl, repositories.Opt(it.ExpiresAt), status(it.Status), repositories.Text(it.Notes))
	if err != nil {
		return fmt.Errorf("failed to insert stash item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get stash item id: %w", err)
	}
	it.ID = id
	it.Status = models.StashStatus(status(it.Status))
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, externalID string, p models.StashPatch, now int64) (models.StashItem, error) {
	q := `UPDATE stash SET
			volume_ml = COALESCE(?, volume_ml),
			expires_at = COALESCE(?, expires_at),
			status = COALESCE(?, status),
			notes = COALESCE(?, notes),
			updated_at = ` + repositories.StampExpr + `
		WHERE external_id = ? AND deleted = 0
		RETURNING ` + columns
	return scanOne(r.db.QueryRowContext(ctx, q, repositories.Opt(p.VolumeMl), repositories.Opt(p.ExpiresAt),
		repositories.Text(p.Status), repositories.Text(p.Notes), now, externalID))
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, externalID string, now int64) (models.StashItem, error) {
	q := `UPDATE stash SET deleted = 1, updated_at = ` + repositories.StampExpr + `
		WHERE external_id = ?
		RETURNING ` + columns
	return scanOne(r.db.QueryRowContext(ctx, q, now, externalID))
}

func (r *SQLiteRepository) Get(ctx context.Context, externalID string) (models.StashItem, error) {
	return scanOne(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM stash WHERE external_id = ?`, externalID))
}

func (r *SQLiteRepository) ListActive(ctx context.Context, filter models.StashFilter) ([]models.StashItem, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + columns + ` FROM stash WHERE deleted = 0`)
	var args []any
	if filter.BabyID != "" {
		sb.WriteString(` AND baby_id = ?`)
		args = append(args, filter.BabyID)
	}
	if filter.Status != "" {
		sb.WriteString(` AND status = ?`)
		args = append(args, string(filter.Status))
	}
	sb.WriteString(` ORDER BY created_at DESC, id DESC`)
	return r.query(ctx, sb.String(), args...)
}

func (r *SQLiteRepository) ChangedSince(ctx context.Context, ts int64) ([]models.StashItem, error) {
	return r.query(ctx, `SELECT `+columns+` FROM stash WHERE updated_at > ? ORDER BY updated_at, id`, ts)
}

func (r *SQLiteRepository) UpsertFromRemote(ctx context.Context, it models.StashItem) (bool, error) {
	q := `INSERT INTO stash (external_id, household_id, updated_at, deleted, baby_id, created_at, volume_ml, expires_at, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			household_id = excluded.household_id,
			updated_at = excluded.updated_at,
			deleted = excluded.deleted,
			baby_id = excluded.baby_id,
			created_at = excluded.created_at,
			volume_ml = excluded.volume_ml,
			expires_at = excluded.expires_at,
			status = excluded.status,
			notes = excluded.notes
		WHERE excluded.updated_at > stash.updated_at`
	res, err := r.db.ExecContext(ctx, q, it.ExternalID, repositories.NullString(it.HouseholdID), it.UpdatedAt, it.Deleted,
		it.BabyID, it.CreatedAt, it.VolumeMl, repositories.Opt(it.ExpiresAt), status(it.Status), repositories.Text(it.Notes))
	if err != nil {
		return false, fmt.Errorf("failed to merge stash item: %w", err)
	}
	n, err := dbx.Affected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, externalID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stash WHERE external_id = ? AND household_id IS NULL`, externalID)
	if err != nil {
		return fmt.Errorf("failed to purge stash item: %w", err)
	}
	n, err := dbx.Affected(res)
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := r.Get(ctx, externalID); err != nil {
		return err
	}
	return common.ErrAlreadySynced
}

func (r *SQLiteRepository) BackfillHousehold(ctx context.Context, householdID string, now int64) (int64, error) {
	q := `UPDATE stash SET household_id = ?, updated_at = ` + repositories.StampExpr + ` WHERE household_id IS NULL`
	res, err := r.db.ExecContext(ctx, q, householdID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill stash: %w", err)
	}
	return dbx.Affected(res)
}
