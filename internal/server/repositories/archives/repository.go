package archives

import (
	"context"

	"github.com/dmitrijs2005/feedkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.ArchiveObject) error
	MarkUploaded(ctx context.Context, storageKey string) error
}
