package stash

import (
	"context"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
)

// Repository mirrors babies.Repository for stash items; ListActive returns
// the newest items first.
type Repository interface {
	Insert(ctx context.Context, s *models.StashItem) error
	Update(ctx context.Context, externalID string, p models.StashPatch, now int64) (models.StashItem, error)
	SoftDelete(ctx context.Context, externalID string, now int64) (models.StashItem, error)
	Get(ctx context.Context, externalID string) (models.StashItem, error)
	ListActive(ctx context.Context, filter models.StashFilter) ([]models.StashItem, error)
	ChangedSince(ctx context.Context, ts int64) ([]models.StashItem, error)
	UpsertFromRemote(ctx context.Context, s models.StashItem) (bool, error)
	Purge(ctx context.Context, externalID string) error
	BackfillHousehold(ctx context.Context, householdID string, now int64) (int64, error)
}
