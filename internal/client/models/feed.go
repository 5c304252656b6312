package models

import (
	"fmt"

	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/wire"
)

type FeedType string

const (
	FeedBreastmilk FeedType = "breastmilk"
	FeedFormula    FeedType = "formula"
	FeedWater      FeedType = "water"
	FeedSolid      FeedType = "solid"
	FeedPump       FeedType = "pump"
)

func (t FeedType) Valid() bool {
	switch t {
	case FeedBreastmilk, FeedFormula, FeedWater, FeedSolid, FeedPump:
		return true
	}
	return false
}

type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	SideBoth  Side = "both"
)

func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight || s == SideBoth
}

// Feed is one feeding, pumping or solids session.
type Feed struct {
	Meta
	BabyID          string
	Type            FeedType
	CreatedAt       int64
	QuantityMl      *float64
	DurationMin     *int64
	Side            *Side
	FoodName        *string
	FoodAmountGrams *float64
	Notes           *string
}

type FeedPatch struct {
	Type            *FeedType
	CreatedAt       *int64
	QuantityMl      *float64
	DurationMin     *int64
	Side            *Side
	FoodName        *string
	FoodAmountGrams *float64
	Notes           *string
}

// FeedFilter narrows ListActive. Zero values mean "no constraint"; From and
// To bound CreatedAt inclusively.
type FeedFilter struct {
	BabyID string
	From   int64
	To     int64
	Limit  int
	// Newest returns the latest feeds first; the default is chronological.
	Newest bool
}

type feedFields struct {
	BabyID          string   `json:"baby_id"`
	Type            FeedType `json:"type"`
	CreatedAt       int64    `json:"created_at"`
	QuantityMl      *float64 `json:"quantity_ml,omitempty"`
	DurationMin     *int64   `json:"duration_min,omitempty"`
	Side            *Side    `json:"side,omitempty"`
	FoodName        *string  `json:"food_name,omitempty"`
	FoodAmountGrams *float64 `json:"food_amount_grams,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

func (f Feed) Validate() error {
	if f.BabyID == "" {
		return fmt.Errorf("%w: feed needs a baby", common.ErrInvalidRecord)
	}
	return validateFeedValues(&f.Type, f.QuantityMl, f.DurationMin, f.Side, f.FoodAmountGrams)
}

func (p FeedPatch) Validate() error {
	return validateFeedValues(p.Type, p.QuantityMl, p.DurationMin, p.Side, p.FoodAmountGrams)
}

func validateFeedValues(t *FeedType, qty *float64, dur *int64, side *Side, grams *float64) error {
	if t != nil && !t.Valid() {
		return fmt.Errorf("%w: unknown feed type %q", common.ErrInvalidRecord, *t)
	}
	if qty != nil && *qty < 0 {
		return fmt.Errorf("%w: quantity must not be negative", common.ErrInvalidRecord)
	}
	if dur != nil && *dur < 0 {
		return fmt.Errorf("%w: duration must not be negative", common.ErrInvalidRecord)
	}
	if side != nil && !side.Valid() {
		return fmt.Errorf("%w: unknown side %q", common.ErrInvalidRecord, *side)
	}
	if grams != nil && *grams < 0 {
		return fmt.Errorf("%w: food amount must not be negative", common.ErrInvalidRecord)
	}
	return nil
}

func (f Feed) ToRecord() (wire.Record, error) {
	return f.record(common.KindFeed, feedFields{
		BabyID:          f.BabyID,
		Type:            f.Type,
		CreatedAt:       f.CreatedAt,
		QuantityMl:      f.QuantityMl,
		DurationMin:     f.DurationMin,
		Side:            f.Side,
		FoodName:        f.FoodName,
		FoodAmountGrams: f.FoodAmountGrams,
		Notes:           f.Notes,
	})
}

func FeedFromRecord(r wire.Record) (Feed, error) {
	m, err := metaFrom(r, common.KindFeed)
	if err != nil {
		return Feed{}, err
	}
	var f feedFields
	if err := fromFields(r.Fields, &f); err != nil {
		return Feed{}, err
	}
	if f.BabyID == "" {
		return Feed{}, fmt.Errorf("%w: feed %s has no baby", common.ErrInvalidRecord, r.ExternalID)
	}
	return Feed{
		Meta:            m,
		BabyID:          f.BabyID,
		Type:            f.Type,
		CreatedAt:       f.CreatedAt,
		QuantityMl:      f.QuantityMl,
		DurationMin:     f.DurationMin,
		Side:            f.Side,
		FoodName:        f.FoodName,
		FoodAmountGrams: f.FoodAmountGrams,
		Notes:           f.Notes,
	}, nil
}
