package members

import (
	"context"

	"github.com/dmitrijs2005/feedkeeper/internal/server/models"
)

type Repository interface {
	// Register stores m unless the device is already a member of the
	// household, and returns the stored member either way.
	Register(ctx context.Context, m *models.Member) (*models.Member, error)
	ListByHousehold(ctx context.Context, householdID string) ([]*models.Member, error)
}
