package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/wire"
)

// PlaceholderBabyName is shown for a profile materialized only because a feed
// or stash item referenced it before the real profile arrived.
const PlaceholderBabyName = "Unknown baby"

type Baby struct {
	Meta
	Name      string
	BirthDate *int64
	Gender    *string
	// Placeholder marks a stub profile. Stubs are local-only: they are never
	// pushed and any remote copy of the same profile replaces them.
	Placeholder bool
}

// BabyPatch lists the fields an update may change; nil means unchanged.
type BabyPatch struct {
	Name      *string
	BirthDate *int64
	Gender    *string
}

type babyFields struct {
	Name      string  `json:"name"`
	BirthDate *int64  `json:"birth_date,omitempty"`
	Gender    *string `json:"gender,omitempty"`
}

func (b Baby) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: baby name is required", common.ErrInvalidRecord)
	}
	return nil
}

func (p BabyPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: baby name is required", common.ErrInvalidRecord)
	}
	return nil
}

func (b Baby) ToRecord() (wire.Record, error) {
	return b.record(common.KindBaby, babyFields{Name: b.Name, BirthDate: b.BirthDate, Gender: b.Gender})
}

func BabyFromRecord(r wire.Record) (Baby, error) {
	m, err := metaFrom(r, common.KindBaby)
	if err != nil {
		return Baby{}, err
	}
	var f babyFields
	if err := fromFields(r.Fields, &f); err != nil {
		return Baby{}, err
	}
	return Baby{Meta: m, Name: f.Name, BirthDate: f.BirthDate, Gender: f.Gender}, nil
}
