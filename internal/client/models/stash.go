package models

import (
	"fmt"

	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/wire"
)

type StashStatus string

const (
	StashStored    StashStatus = "stored"
	StashConsumed  StashStatus = "consumed"
	StashDiscarded StashStatus = "discarded"
)

func (s StashStatus) Valid() bool {
	return s == StashStored || s == StashConsumed || s == StashDiscarded
}

// StashItem is a container of expressed milk kept in the fridge or freezer.
type StashItem struct {
	Meta
	BabyID    string
	CreatedAt int64
	VolumeMl  float64
	ExpiresAt *int64
	Status    StashStatus
	Notes     *string
}

type StashPatch struct {
	VolumeMl  *float64
	ExpiresAt *int64
	Status    *StashStatus
	Notes     *string
}

type StashFilter struct {
	BabyID string
	Status StashStatus
}

type stashFields struct {
	BabyID    string      `json:"baby_id"`
	CreatedAt int64       `json:"created_at"`
	VolumeMl  float64     `json:"volume_ml"`
	ExpiresAt *int64      `json:"expires_at,omitempty"`
	Status    StashStatus `json:"status"`
	Notes     *string     `json:"notes,omitempty"`
}

func (s StashItem) Validate() error {
	if s.BabyID == "" {
		return fmt.Errorf("%w: stash item needs a baby", common.ErrInvalidRecord)
	}
	if s.VolumeMl <= 0 {
		return fmt.Errorf("%w: volume must be positive", common.ErrInvalidRecord)
	}
	if s.Status != "" && !s.Status.Valid() {
		return fmt.Errorf("%w: unknown stash status %q", common.ErrInvalidRecord, s.Status)
	}
	return nil
}

func (p StashPatch) Validate() error {
	if p.VolumeMl != nil && *p.VolumeMl <= 0 {
		return fmt.Errorf("%w: volume must be positive", common.ErrInvalidRecord)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown stash status %q", common.ErrInvalidRecord, *p.Status)
	}
	return nil
}

func (s StashItem) ToRecord() (wire.Record, error) {
	return s.record(common.KindStash, stashFields{
		BabyID:    s.BabyID,
		CreatedAt: s.CreatedAt,
		VolumeMl:  s.VolumeMl,
		ExpiresAt: s.ExpiresAt,
		Status:    s.Status,
		Notes:     s.Notes,
	})
}

func StashFromRecord(r wire.Record) (StashItem, error) {
	m, err := metaFrom(r, common.KindStash)
	if err != nil {
		return StashItem{}, err
	}
	var f stashFields
	if err := fromFields(r.Fields, &f); err != nil {
		return StashItem{}, err
	}
	if f.BabyID == "" {
		return StashItem{}, fmt.Errorf("%w: stash item %s has no baby", common.ErrInvalidRecord, r.ExternalID)
	}
	if f.Status == "" {
		f.Status = StashStored
	}
	return StashItem{
		Meta:      m,
		BabyID:    f.BabyID,
		CreatedAt: f.CreatedAt,
		VolumeMl:  f.VolumeMl,
		ExpiresAt: f.ExpiresAt,
		Status:    f.Status,
		Notes:     f.Notes,
	}, nil
}
