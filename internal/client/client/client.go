package client

import (
	"context"

	"github.com/dmitrijs2005/feedkeeper/internal/wire"
)

// Gateway is the client's view of the shared household dataset. A nil
// Gateway means no endpoint is configured; sync passes then do nothing.
type Gateway interface {
	Ping(ctx context.Context) error
	// UpsertEntity stores r keyed by (kind, external id) within its
	// household. applied is false when the server already held a copy at
	// least as new.
	UpsertEntity(ctx context.Context, r wire.Record) (applied bool, err error)
	QueryChangedSince(ctx context.Context, kind, householdID string, since int64) ([]wire.Record, error)
	CreateHousehold(ctx context.Context, householdID string) error
	// FindHousehold returns common.ErrNotFound for an unknown household.
	FindHousehold(ctx context.Context, householdID string) error
	RegisterMember(ctx context.Context, householdID, deviceID string) (memberID string, err error)
	ArchiveHousehold(ctx context.Context, householdID string) (wire.ArchiveLink, error)
	Close() error
}
