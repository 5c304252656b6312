package syncer

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
	"github.com/dmitrijs2005/feedkeeper/internal/client/services"
	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/wire"
)

// localRow is one entry of a push set. err is set when the row could not
// be encoded; meta is always filled so the engine can account for it.
type localRow struct {
	meta        models.Meta
	placeholder bool
	rec         wire.Record
	err         error
}

// collection adapts one record kind to the engine.
type collection struct {
	kind string
	// changed lists local rows stamped after since.
	changed func(ctx context.Context, since int64) ([]localRow, error)
	// merge applies a remote copy and reports whether it won.
	merge func(ctx context.Context, r wire.Record, householdID string, now int64) (bool, error)
}

func collections(rs *services.RecordService) []collection {
	return []collection{
		babyCollection(rs),
		feedCollection(rs),
		stashCollection(rs),
	}
}

func babyCollection(rs *services.RecordService) collection {
	return collection{
		kind: common.KindBaby,
		changed: func(ctx context.Context, since int64) ([]localRow, error) {
			items, err := rs.Babies().ChangedSince(ctx, since)
			if err != nil {
				return nil, err
			}
			rows := make([]localRow, 0, len(items))
			for _, b := range items {
				rec, err := b.ToRecord()
				rows = append(rows, localRow{meta: b.Meta, placeholder: b.Placeholder, rec: rec, err: err})
			}
			return rows, nil
		},
		merge: func(ctx context.Context, r wire.Record, _ string, _ int64) (bool, error) {
			b, err := models.BabyFromRecord(r)
			if err != nil {
				return false, err
			}
			return rs.Babies().UpsertFromRemote(ctx, b)
		},
	}
}

func feedCollection(rs *services.RecordService) collection {
	return collection{
		kind: common.KindFeed,
		changed: func(ctx context.Context, since int64) ([]localRow, error) {
			items, err := rs.Feeds().ChangedSince(ctx, since)
			if err != nil {
				return nil, err
			}
			rows := make([]localRow, 0, len(items))
			for _, f := range items {
				rec, err := f.ToRecord()
				rows = append(rows, localRow{meta: f.Meta, rec: rec, err: err})
			}
			return rows, nil
		},
		merge: func(ctx context.Context, r wire.Record, householdID string, now int64) (bool, error) {
			f, err := models.FeedFromRecord(r)
			if err != nil {
				return false, err
			}
			if err := ensureBaby(ctx, rs, f.BabyID, householdID, now); err != nil {
				return false, err
			}
			return rs.Feeds().UpsertFromRemote(ctx, f)
		},
	}
}

func stashCollection(rs *services.RecordService) collection {
	return collection{
		kind: common.KindStash,
		changed: func(ctx context.Context, since int64) ([]localRow, error) {
			items, err := rs.Stash().ChangedSince(ctx, since)
			if err != nil {
				return nil, err
			}
			rows := make([]localRow, 0, len(items))
			for _, it := range items {
				rec, err := it.ToRecord()
				rows = append(rows, localRow{meta: it.Meta, rec: rec, err: err})
			}
			return rows, nil
		},
		merge: func(ctx context.Context, r wire.Record, householdID string, now int64) (bool, error) {
			it, err := models.StashFromRecord(r)
			if err != nil {
				return false, err
			}
			if err := ensureBaby(ctx, rs, it.BabyID, householdID, now); err != nil {
				return false, err
			}
			return rs.Stash().UpsertFromRemote(ctx, it)
		},
	}
}

// ensureBaby creates a placeholder profile when a pulled record references
// a baby this device has never seen. An existing profile, tombstoned or
// not, is left alone.
func ensureBaby(ctx context.Context, rs *services.RecordService, babyID, householdID string, now int64) error {
	if _, err := rs.Babies().EnsurePlaceholder(ctx, babyID, householdID, now); err != nil {
		return fmt.Errorf("placeholder for baby %s: %w", babyID, err)
	}
	return nil
}
