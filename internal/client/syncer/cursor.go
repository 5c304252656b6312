package syncer

import (
	"context"

	"github.com/dmitrijs2005/feedkeeper/internal/client/repositories/settings"
)

// Cursor is the persisted lastSyncAt watermark.
type Cursor struct {
	settings settings.Repository
}

func NewCursor(s settings.Repository) *Cursor {
	return &Cursor{settings: s}
}

func (c *Cursor) Load(ctx context.Context) (int64, error) {
	st, err := c.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	return st.LastSyncAt, nil
}

// Advance stores ts when it is ahead of the current value and returns the
// value now in effect. The cursor never moves backwards.
func (c *Cursor) Advance(ctx context.Context, ts int64) (int64, error) {
	cur, err := c.Load(ctx)
	if err != nil {
		return 0, err
	}
	if ts <= cur {
		return cur, nil
	}
	if err := c.settings.SetLastSyncAt(ctx, ts); err != nil {
		return cur, err
	}
	return ts, nil
}
