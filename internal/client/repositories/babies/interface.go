package babies

import (
	"context"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
)

type Repository interface {
	// Insert stores a new profile and sets b.ID.
	Insert(ctx context.Context, b *models.Baby) error
	// Update applies p to a live profile and stamps it. ErrNotFound when
	// the profile is absent or tombstoned.
	Update(ctx context.Context, externalID string, p models.BabyPatch, now int64) (models.Baby, error)
	// SoftDelete tombstones the profile and stamps it; repeating it only
	// bumps the stamp.
	SoftDelete(ctx context.Context, externalID string, now int64) (models.Baby, error)
	Get(ctx context.Context, externalID string) (models.Baby, error)
	// ListActive returns live profiles in creation order.
	ListActive(ctx context.Context) ([]models.Baby, error)
	// ChangedSince returns every row, tombstones included, stamped after ts.
	ChangedSince(ctx context.Context, ts int64) ([]models.Baby, error)
	// UpsertFromRemote merges a remote copy by last-write-wins and reports
	// whether it was applied.
	UpsertFromRemote(ctx context.Context, b models.Baby) (bool, error)
	// EnsurePlaceholder creates a stub profile unless one with this id exists.
	EnsurePlaceholder(ctx context.Context, externalID, householdID string, now int64) (bool, error)
	// Purge physically removes a never-synced row.
	Purge(ctx context.Context, externalID string) error
	// BackfillHousehold tags every untagged row and stamps it.
	BackfillHousehold(ctx context.Context, householdID string, now int64) (int64, error)
}
