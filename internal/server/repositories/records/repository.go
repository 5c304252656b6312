package records

import (
	"context"

	"github.com/dmitrijs2005/feedkeeper/internal/server/models"
)

type Repository interface {
	// Owner returns the household holding (kind, externalID), or
	// common.ErrNotFound when no copy exists yet. The row is locked until
	// the surrounding transaction ends.
	Owner(ctx context.Context, kind, externalID string) (string, error)
	// Upsert stores r when it is newer than the stored copy of the same
	// household. applied is false when the stored copy was kept.
	Upsert(ctx context.Context, r *models.Record) (applied bool, err error)
	// ChangedSince returns a household's records of kind with updated_at
	// strictly greater than since, oldest first.
	ChangedSince(ctx context.Context, kind, householdID string, since int64) ([]*models.Record, error)
	// ListHousehold returns every record of a household, tombstones included.
	ListHousehold(ctx context.Context, householdID string) ([]*models.Record, error)
}
