package models

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/wire"
)

// Meta carries the sync envelope of a local row.
type Meta struct {
	// ID is the installation-private row id. It is never transmitted.
	ID int64
	// ExternalID is the immutable cross-device identity.
	ExternalID string
	// HouseholdID is empty until the installation joins or creates a household.
	HouseholdID string
	// UpdatedAt is the epoch-ms stamp of the last mutation and the only
	// conflict-resolution signal.
	UpdatedAt int64
	// Deleted marks a tombstone.
	Deleted bool
}

func (m Meta) record(kind string, fields any) (wire.Record, error) {
	f, err := toFields(fields)
	if err != nil {
		return wire.Record{}, err
	}
	return wire.Record{
		Kind:        kind,
		ExternalID:  m.ExternalID,
		HouseholdID: m.HouseholdID,
		UpdatedAt:   m.UpdatedAt,
		Deleted:     m.Deleted,
		Fields:      f,
	}, nil
}

func metaFrom(r wire.Record, kind string) (Meta, error) {
	if r.Kind != kind {
		return Meta{}, fmt.Errorf("%w: want %s, got %s", common.ErrUnknownKind, kind, r.Kind)
	}
	if err := r.Validate(); err != nil {
		return Meta{}, err
	}
	return Meta{
		ExternalID:  r.ExternalID,
		HouseholdID: r.HouseholdID,
		UpdatedAt:   r.UpdatedAt,
		Deleted:     r.Deleted,
	}, nil
}

func toFields(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return m, nil
}

func fromFields(m map[string]any, dst any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidRecord, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidRecord, err)
	}
	return nil
}
