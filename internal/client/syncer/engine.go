package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/feedkeeper/internal/client/client"
	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
	"github.com/dmitrijs2005/feedkeeper/internal/client/services"
	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/logging"
	"github.com/dmitrijs2005/feedkeeper/internal/timex"
	"github.com/dmitrijs2005/feedkeeper/internal/wire"
)

const (
	DefaultCallTimeout = 10 * time.Second
	// DefaultPullOverlap re-reads remote changes stamped shortly before the
	// cursor, covering records another device uploaded after stamping them.
	DefaultPullOverlap = 10 * time.Minute
)

// Engine runs reconciliation passes. At most one pass is in flight per
// engine; a concurrent Run is rejected with common.ErrReentrancyRejected.
type Engine struct {
	records     *services.RecordService
	gateway     client.Gateway
	cursor      *Cursor
	clock       timex.Clock
	log         logging.Logger
	callTimeout time.Duration
	pullOverlap time.Duration
	collections []collection

	running sync.Mutex
}

type Option func(*Engine)

// WithPullOverlap sets how far behind the cursor pulls start. Zero pulls
// strictly after the cursor.
func WithPullOverlap(d time.Duration) Option {
	return func(e *Engine) { e.pullOverlap = d }
}

// WithCallTimeout bounds every gateway call made during a pass.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) { e.callTimeout = d }
}

// NewEngine builds an engine over the local store. A nil gateway is
// allowed; passes then report models.SkipNotConfigured.
func NewEngine(records *services.RecordService, gateway client.Gateway, clock timex.Clock, log logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		records:     records,
		gateway:     gateway,
		cursor:      NewCursor(records.Settings()),
		clock:       clock,
		log:         log.With("module", "syncer"),
		callTimeout: DefaultCallTimeout,
		pullOverlap: DefaultPullOverlap,
		collections: collections(records),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// pass carries the bookkeeping of one Run.
type pass struct {
	householdID string
	since       int64
	start       int64
	result      models.SyncResult
	// floor is the highest cursor value that still re-reads every failed
	// record; only meaningful when hasFloor is set.
	floor    int64
	hasFloor bool
}

// fail counts a record that was not reconciled. Retryable failures hold
// the cursor below the record so the next pass sees it again.
func (p *pass) fail(updatedAt int64, err error) {
	p.result.Failed++
	if permanent(err) {
		return
	}
	v := updatedAt - 1
	if !p.hasFloor || v < p.floor {
		p.floor = v
		p.hasFloor = true
	}
}

func (p *pass) next() int64 {
	if p.hasFloor && p.floor < p.start {
		return p.floor
	}
	return p.start
}

// Run performs one pass: push every local row changed since the cursor,
// then pull remote changes for babies, feeds and stash in that order, then
// advance the cursor. Missing preconditions make the pass a no-op with
// Skipped set and a nil error. A transport failure or cancellation aborts
// the pass and leaves the cursor where it was.
func (e *Engine) Run(ctx context.Context) (models.SyncResult, error) {
	if !e.running.TryLock() {
		return models.SyncResult{}, common.ErrReentrancyRejected
	}
	defer e.running.Unlock()

	if e.gateway == nil {
		return models.SyncResult{Skipped: models.SkipNotConfigured}, nil
	}

	st, err := e.records.Settings().Get(ctx)
	if err != nil {
		return models.SyncResult{}, err
	}
	if st.HouseholdID == "" {
		return models.SyncResult{Skipped: models.SkipNoHousehold, Cursor: st.LastSyncAt}, nil
	}

	if err := e.call(ctx, e.gateway.Ping); err != nil {
		if ctx.Err() != nil {
			return models.SyncResult{}, ctx.Err()
		}
		e.log.Info(ctx, "gateway unreachable, skipping sync", "error", err)
		return models.SyncResult{Skipped: models.SkipOffline, Cursor: st.LastSyncAt}, nil
	}

	p := &pass{householdID: st.HouseholdID, since: st.LastSyncAt}
	ctx = logging.ContextWith(ctx, "household", p.householdID)

	n, err := e.records.BackfillHousehold(ctx, p.householdID, p.since+1)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("backfill: %w", err)
	}
	if n > 0 {
		e.log.Info(ctx, "tagged records with household", "count", n, "household", p.householdID)
	}

	p.start = e.records.Watermark()
	p.result.Cursor = p.since

	e.log.Debug(ctx, "sync pass started", "since", p.since, "watermark", p.start)

	if err := e.push(ctx, p); err != nil {
		return p.result, err
	}
	if err := e.pull(ctx, p); err != nil {
		return p.result, err
	}

	cur, err := e.cursor.Advance(ctx, p.next())
	if err != nil {
		return p.result, fmt.Errorf("advance cursor: %w", err)
	}
	p.result.Cursor = cur

	e.log.Info(ctx, "sync pass finished",
		"pushed", p.result.Pushed, "pulled", p.result.Pulled, "failed", p.result.Failed, "cursor", cur)
	return p.result, nil
}

func (e *Engine) push(ctx context.Context, p *pass) error {
	for _, c := range e.collections {
		rows, err := c.changed(ctx, p.since)
		if err != nil {
			return fmt.Errorf("read local %s changes: %w", c.kind, err)
		}
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if row.placeholder || row.meta.HouseholdID != p.householdID {
				continue
			}
			if row.err != nil {
				e.log.Warn(ctx, "cannot encode local record", "kind", c.kind, "id", row.meta.ExternalID, "error", row.err)
				p.fail(row.meta.UpdatedAt, row.err)
				continue
			}

			var applied bool
			err := e.call(ctx, func(ctx context.Context) error {
				var err error
				applied, err = e.gateway.UpsertEntity(ctx, row.rec)
				return err
			})
			if err != nil {
				if fatal(ctx, err) {
					return err
				}
				e.log.Warn(ctx, "push failed", "kind", c.kind, "id", row.meta.ExternalID, "error", err)
				p.fail(row.meta.UpdatedAt, err)
				continue
			}
			if applied {
				p.result.Pushed++
			}
		}
	}
	return nil
}

func (e *Engine) pull(ctx context.Context, p *pass) error {
	since := max(p.since-e.pullOverlap.Milliseconds(), 0)
	for _, c := range e.collections {
		var recs []wire.Record
		err := e.call(ctx, func(ctx context.Context) error {
			var err error
			recs, err = e.gateway.QueryChangedSince(ctx, c.kind, p.householdID, since)
			return err
		})
		if err != nil {
			var skipped *wire.SkippedRecords
			switch {
			case fatal(ctx, err):
				return err
			case errors.As(err, &skipped):
				e.log.Warn(ctx, "skipping undecodable remote records", "kind", c.kind, "count", len(skipped.Errs), "error", err)
				for range skipped.Errs {
					p.fail(0, common.ErrInvalidRecord)
				}
			default:
				return fmt.Errorf("query %s changes: %w", c.kind, err)
			}
		}

		for _, r := range recs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if r.Kind != c.kind || r.HouseholdID != p.householdID {
				e.log.Warn(ctx, "ignoring foreign record", "kind", r.Kind, "id", r.ExternalID, "household", r.HouseholdID)
				p.fail(r.UpdatedAt, common.ErrHouseholdMismatch)
				continue
			}
			applied, err := c.merge(ctx, r, p.householdID, e.clock.NowMs())
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.log.Warn(ctx, "merge failed", "kind", c.kind, "id", r.ExternalID, "error", err)
				p.fail(r.UpdatedAt, err)
				continue
			}
			if applied {
				p.result.Pulled++
			}
		}
	}
	return nil
}

func (e *Engine) call(ctx context.Context, fn func(context.Context) error) error {
	if e.callTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	return fn(ctx)
}

// fatal reports whether err ends the pass rather than just one record.
func fatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, common.ErrRemoteUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// permanent reports whether retrying the same record can never succeed.
func permanent(err error) bool {
	return errors.Is(err, common.ErrInvalidRecord) ||
		errors.Is(err, common.ErrUnknownKind) ||
		errors.Is(err, common.ErrHouseholdMismatch)
}
