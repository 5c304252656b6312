// Package archives keeps the ledger of household exports written to object
// storage.
package archives

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/feedkeeper/internal/dbx"
	"github.com/dmitrijs2005/feedkeeper/internal/server/models"
)

// PostgresRepository implements the archive ledger over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a ledger row in the pending state.
func (r *PostgresRepository) Create(ctx context.Context, a *models.ArchiveObject) error {
	query :=
		`INSERT INTO archives (storage_key, household_id, record_count, upload_status)
		 VALUES ($1, $2, $3, $4)
		 `
	if _, err := r.db.ExecContext(ctx, query, a.StorageKey, a.HouseholdID, a.RecordCount, models.ArchivePending); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// MarkUploaded flips a pending archive to completed. Exactly one row must
// be affected.
func (r *PostgresRepository) MarkUploaded(ctx context.Context, storageKey string) error {
	query := `UPDATE archives SET upload_status = $1 WHERE storage_key = $2`
	res, err := r.db.ExecContext(ctx, query, models.ArchiveCompleted, storageKey)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("wrong rows affected count: %d", n)
	}
	return nil
}
