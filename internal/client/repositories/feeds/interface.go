package feeds

import (
	"context"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
)

// Repository mirrors babies.Repository for feed entries; ListActive takes a
// FeedFilter and is chronological unless the filter asks for newest first.
type Repository interface {
	Insert(ctx context.Context, f *models.Feed) error
	Update(ctx context.Context, externalID string, p models.FeedPatch, now int64) (models.Feed, error)
	SoftDelete(ctx context.Context, externalID string, now int64) (models.Feed, error)
	Get(ctx context.Context, externalID string) (models.Feed, error)
	ListActive(ctx context.Context, filter models.FeedFilter) ([]models.Feed, error)
	ChangedSince(ctx context.Context, ts int64) ([]models.Feed, error)
	UpsertFromRemote(ctx context.Context, f models.Feed) (bool, error)
	Purge(ctx context.Context, externalID string) error
	BackfillHousehold(ctx context.Context, householdID string, now int64) (int64, error)
}
