package feeds

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

const columns = `id, external_id, household_id, updated_at, deleted, baby_id, type, created_at,
	quantity_ml, duration_min, side, food_name, food_amount_grams, notes`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func scan(s repositories.RowScanner) (models.Feed, error) {
	var f models.Feed
	var hh sql.NullString
	err := s.Scan(&f.ID, &f.ExternalID, &hh, &f.UpdatedAt, &f.Deleted, &f.BabyID, &f.Type, &f.CreatedAt,
		&f.QuantityMl, &f.DurationMin, &f.Side, &f.FoodName, &f.FoodAmountGrams, &f.Notes)
	if err != nil {
		return models.Feed{}, err
	}
	f.HouseholdID = repositories.StringOrEmpty(hh)
	return f, nil
}

func scanOne(row *sql.Row) (models.Feed, error) {
	f, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Feed{}, common.ErrNotFound
	}
	if err != nil {
		return models.Feed{}, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *SQLiteRepository) query(ctx context.Context, q string, args ...any) ([]models.Feed, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select feeds: %w", err)
	}
	defer rows.Close()

	var out []models.Feed
	for rows.Next() {
		f, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, f *models.Feed) error {
	q := `INSERT INTO feeds (external_id, household_id, updated_at, deleted, baby_id, type, created_at,
			quantity_ml, duration_min, side, food_name, food_amount_grams, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, f.ExternalID, repositories.NullString(f.HouseholdID), f.UpdatedAt, f.Deleted,
		f.BabyID, string(f.Type), f.CreatedAt, repositories.Opt(f.QuantityMl), repositories.Opt(f.DurationMin),
		repositories.Text(f.Side), repositories.Text(f.FoodName), repositories.Opt(f.FoodAmountGrams), repositories.Text(f.Notes))
	if err != nil {
		return fmt.Errorf("failed to insert feed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get feed id: %w", err)
	}
	f.ID = id
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, externalID string, p models.FeedPatch, now int64) (models.Feed, error) {
	q := `UPDATE feeds SET
			type = COALESCE(?, type),
			created_at = COALESCE(?, created_at),
			quantity_ml = COALESCE(?, quantity_ml),
			duration_min = COALESCE(?, duration_min),
			side = COALESCE(?, side),
			food_name = COALESCE(?, food_name),
			food_amount_grams = COALESCE(?, food_amount_grams),
			notes = COALESCE(?, notes),
			updated_at = ` + repositories.StampExpr + `
		WHERE external_id = ? AND deleted = 0
		RETURNING ` + columns
	return scanOne(r.db.QueryRowContext(ctx, q, repositories.Text(p.Type), repositories.Opt(p.CreatedAt),
		repositories.Opt(p.QuantityMl), repositories.Opt(p.DurationMin), repositories.Text(p.Side),
		repositories.Text(p.FoodName), repositories.Opt(p.FoodAmountGrams), repositories.Text(p.Notes), now, externalID))
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, externalID string, now int64) (models.Feed, error) {
	q := `UPDATE feeds SET deleted = 1, updated_at = ` + repositories.StampExpr + `
		WHERE external_id = ?
		RETURNING ` + columns
	return scanOne(r.db.QueryRowContext(ctx, q, now, externalID))
}

func (r *SQLiteRepository) Get(ctx context.Context, externalID string) (models.Feed, error) {
	return scanOne(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM feeds WHERE external_id = ?`, externalID))
}

func (r *SQLiteRepository) ListActive(ctx context.Context, filter models.FeedFilter) ([]models.Feed, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + columns + ` FROM feeds WHERE deleted = 0`)
	var args []any
	if filter.BabyID != "" {
		sb.WriteString(` AND baby_id = ?`)
		args = append(args, filter.BabyID)
	}
	if filter.From > 0 {
		sb.WriteString(` AND created_at >= ?`)
		args = append(args, filter.From)
	}
	if filter.To > 0 {
		sb.WriteString(` AND created_at <= ?`)
		args = append(args, filter.To)
	}
	if filter.Newest {
		sb.WriteString(` ORDER BY created_at DESC, id DESC`)
	} else {
		sb.WriteString(` ORDER BY created_at, id`)
	}
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}
	return r.query(ctx, sb.String(), args...)
}

func (r *SQLiteRepository) ChangedSince(ctx context.Context, ts int64) ([]models.Feed, error) {
	return r.query(ctx, `SELECT `+columns+` FROM feeds WHERE updated_at > ? ORDER BY updated_at, id`, ts)
}

func (r *SQLiteRepository) UpsertFromRemote(ctx context.Context, f models.Feed) (bool, error) {
	q := `INSERT INTO feeds (external_id, household_id, updated_at, deleted, baby_id, type, created_at,
			quantity_ml, duration_min, side, food_name, food_amount_grams, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			household_id = excluded.household_id,
			updated_at = excluded.updated_at,
			deleted = excluded.deleted,
			baby_id = excluded.baby_id,
			type = excluded.type,
			created_at = excluded.created_at,
			quantity_ml = excluded.quantity_ml,
			duration_min = excluded.duration_min,
			side = excluded.side,
			food_name = excluded.food_name,
			food_amount_grams = excluded.food_amount_grams,
			notes = excluded.notes
		WHERE excluded.updated_at > feeds.updated_at`
	res, err := r.db.ExecContext(ctx, q, f.ExternalID, repositories.NullString(f.HouseholdID), f.UpdatedAt, f.Deleted,
		f.BabyID, string(f.Type), f.CreatedAt, repositories.Opt(f.QuantityMl), repositories.Opt(f.DurationMin),
		repositories.Text(f.Side), repositories.Text(f.FoodName), repositories.Opt(f.FoodAmountGrams), repositories.Text(f.Notes))
	if err != nil {
		return false, fmt.Errorf("failed to merge feed: %w", err)
	}
	n, err := dbx.Affected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, externalID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feeds WHERE external_id = ? AND household_id IS NULL`, externalID)
	if err != nil {
		return fmt.Errorf("failed to purge feed: %w", err)
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
	q := `UPDATE feeds SET household_id = ?, updated_at = ` + repositories.StampExpr + ` WHERE household_id IS NULL`
	res, err := r.db.ExecContext(ctx, q, householdID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill feeds: %w", err)
	}
	return dbx.Affected(res)
}
