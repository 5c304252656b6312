package households

import (
	"context"

	"github.com/dmitrijs2005/feedkeeper/internal/server/models"
)

type Repository interface {
	// Create inserts a household; created is false when it already existed.
	Create(ctx context.Context, id string) (created bool, err error)
	// Get returns common.ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (*models.Household, error)
}
