package settings

import (
	"context"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
)

type Repository interface {
	Get(ctx context.Context) (models.Settings, error)
	SetDeviceID(ctx context.Context, id string) error
	SetHouseholdID(ctx context.Context, id string) error
	SetLastSyncAt(ctx context.Context, ts int64) error
	SetActiveBaby(ctx context.Context, externalID string) error
	SetTheme(ctx context.Context, theme models.Theme) error
	SetReminder(ctx context.Context, enabled bool, minutes int) error
}
