package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
	"github.com/dmitrijs2005/feedkeeper/internal/client/repositories/babies"
	"github.com/dmitrijs2005/feedkeeper/internal/client/repositories/feeds"
	"github.com/dmitrijs2005/feedkeeper/internal/client/repositories/settings"
	"github.com/dmitrijs2005/feedkeeper/internal/client/repositories/stash"
	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/dbx"
	"github.com/dmitrijs2005/feedkeeper/internal/idgen"
	"github.com/dmitrijs2005/feedkeeper/internal/logging"
	"github.com/dmitrijs2005/feedkeeper/internal/timex"
)

// RecordService is the local record store as seen by the UI. Mutations are
// synchronous and never touch the network; OnChange lets the caller request
// a prompt sync afterwards.
type RecordService struct {
	db       *sql.DB
	clock    timex.Clock
	log      logging.Logger
	babies   babies.Repository
	feeds    feeds.Repository
	stash    stash.Repository
	settings settings.Repository

	barrier sync.RWMutex

	hookMu   sync.RWMutex
	onChange func()
}

func NewRecordService(db *sql.DB, clock timex.Clock, log logging.Logger) *RecordService {
	return &RecordService{
		db:       db,
		clock:    clock,
		log:      log.With("module", "records"),
		babies:   babies.NewSQLiteRepository(db),
		feeds:    feeds.NewSQLiteRepository(db),
		stash:    stash.NewSQLiteRepository(db),
		settings: settings.NewSQLiteRepository(db),
	}
}

// Babies, Feeds and Stash expose the repositories to the sync engine, which
// reads change sets and merges remote copies without stamping.
func (s *RecordService) Babies() babies.Repository { return s.babies }
func (s *RecordService) Feeds() feeds.Repository   { return s.feeds }
func (s *RecordService) Stash() stash.Repository   { return s.stash }

// Settings exposes the settings singleton.
func (s *RecordService) Settings() settings.Repository { return s.settings }

// OnChange registers fn to run after every successful local mutation.
func (s *RecordService) OnChange(fn func()) {
	s.hookMu.Lock()
	s.onChange = fn
	s.hookMu.Unlock()
}

func (s *RecordService) changed() {
	s.hookMu.RLock()
	fn := s.onChange
	s.hookMu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Watermark returns a clock reading taken while no mutation is between
// stamping and committing. Every row stamped later carries a greater
// updated_at.
func (s *RecordService) Watermark() int64 {
	s.barrier.Lock()
	defer s.barrier.Unlock()
	return s.clock.NowMs()
}

// mutate runs fn under the shared side of the barrier with a fresh stamp.
func (s *RecordService) mutate(ctx context.Context, fn func(ctx context.Context, now int64) error) error {
	s.barrier.RLock()
	err := fn(ctx, s.clock.NowMs())
	s.barrier.RUnlock()
	if err != nil {
		return err
	}
	s.changed()
	return nil
}

func (s *RecordService) activeHousehold(ctx context.Context) (string, error) {
	st, err := s.settings.Get(ctx)
	if err != nil {
		return "", err
	}
	return st.HouseholdID, nil
}

func (s *RecordService) requireBaby(ctx context.Context, externalID string) error {
	b, err := s.babies.Get(ctx, externalID)
	if err != nil {
		return fmt.Errorf("baby %s: %w", externalID, err)
	}
	if b.Deleted {
		return fmt.Errorf("baby %s: %w", externalID, common.ErrNotFound)
	}
	return nil
}

func (s *RecordService) CreateBaby(ctx context.Context, b models.Baby) (models.Baby, error) {
	if err := b.Validate(); err != nil {
		return models.Baby{}, err
	}
	hh, err := s.activeHousehold(ctx)
	if err != nil {
		return models.Baby{}, err
	}
	err = s.mutate(ctx, func(ctx context.Context, now int64) error {
		b.Meta = models.Meta{ExternalID: idgen.New(idgen.PrefixBaby), HouseholdID: hh, UpdatedAt: now}
		b.Placeholder = false
		return s.babies.Insert(ctx, &b)
	})
	if err != nil {
		return models.Baby{}, err
	}
	s.log.Debug(ctx, "baby created", "external_id", b.ExternalID)
	return b, nil
}

func (s *RecordService) UpdateBaby(ctx context.Context, externalID string, p models.BabyPatch) (models.Baby, error) {
	if err := p.Validate(); err != nil {
		return models.Baby{}, err
	}
	var out models.Baby
	err := s.mutate(ctx, func(ctx context.Context, now int64) (err error) {
		out, err = s.babies.Update(ctx, externalID, p, now)
		return err
	})
	return out, err
}

func (s *RecordService) DeleteBaby(ctx context.Context, externalID string) error {
	return s.mutate(ctx, func(ctx context.Context, now int64) error {
		_, err := s.babies.SoftDelete(ctx, externalID, now)
		return err
	})
}

func (s *RecordService) ListBabies(ctx context.Context) ([]models.Baby, error) {
	return s.babies.ListActive(ctx)
}

func (s *RecordService) CreateFeed(ctx context.Context, f models.Feed) (models.Feed, error) {
	if err := f.Validate(); err != nil {
		return models.Feed{}, err
	}
	if err := s.requireBaby(ctx, f.BabyID); err != nil {
		return models.Feed{}, err
	}
	hh, err := s.activeHousehold(ctx)
	if err != nil {
		return models.Feed{}, err
	}
	err = s.mutate(ctx, func(ctx context.Context, now int64) error {
		f.Meta = models.Meta{ExternalID: idgen.New(idgen.PrefixFeed), HouseholdID: hh, UpdatedAt: now}
		if f.CreatedAt == 0 {
			f.CreatedAt = now
		}
		return s.feeds.Insert(ctx, &f)
	})
	if err != nil {
		return models.Feed{}, err
	}
	return f, nil
}

func (s *RecordService) UpdateFeed(ctx context.Context, externalID string, p models.FeedPatch) (models.Feed, error) {
	if err := p.Validate(); err != nil {
		return models.Feed{}, err
	}
	var out models.Feed
	err := s.mutate(ctx, func(ctx context.Context, now int64) (err error) {
		out, err = s.feeds.Update(ctx, externalID, p, now)
		return err
	})
	return out, err
}

func (s *RecordService) DeleteFeed(ctx context.Context, externalID string) error {
	return s.mutate(ctx, func(ctx context.Context, now int64) error {
		_, err := s.feeds.SoftDelete(ctx, externalID, now)
		return err
	})
}

func (s *RecordService) ListFeeds(ctx context.Context, filter models.FeedFilter) ([]models.Feed, error) {
	return s.feeds.ListActive(ctx, filter)
}

// FeedsBetween returns a baby's feeds with CreatedAt in [start, end], oldest first.
func (s *RecordService) FeedsBetween(ctx context.Context, babyID string, start, end int64) ([]models.Feed, error) {
	if end < start {
		return nil, fmt.Errorf("%w: window ends before it starts", common.ErrInvalidRecord)
	}
	return s.feeds.ListActive(ctx, models.FeedFilter{BabyID: babyID, From: start, To: end})
}

// RecentFeeds returns up to limit of a baby's latest feeds, newest first.
func (s *RecordService) RecentFeeds(ctx context.Context, babyID string, limit int) ([]models.Feed, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.feeds.ListActive(ctx, models.FeedFilter{BabyID: babyID, Newest: true, Limit: limit})
}

func (s *RecordService) CreateStash(ctx context.Context, it models.StashItem) (models.StashItem, error) {
	if err := it.Validate(); err != nil {
		return models.StashItem{}, err
	}
	if err := s.requireBaby(ctx, it.BabyID); err != nil {
		return models.StashItem{}, err
	}
	hh, err := s.activeHousehold(ctx)
	if err != nil {
		return models.StashItem{}, err
	}
	err = s.mutate(ctx, func(ctx context.Context, now int64) error {
		it.Meta = models.Meta{ExternalID: idgen.New(idgen.PrefixStash), HouseholdID: hh, UpdatedAt: now}
		if it.CreatedAt == 0 {
			it.CreatedAt = now
		}
		return s.stash.Insert(ctx, &it)
	})
	if err != nil {
		return models.StashItem{}, err
	}
	return it, nil
}

func (s *RecordService) UpdateStash(ctx context.Context, externalID string, p models.StashPatch) (models.StashItem, error) {
	if err := p.Validate(); err != nil {
		return models.StashItem{}, err
	}
	var out models.StashItem
	err := s.mutate(ctx, func(ctx context.Context, now int64) (err error) {
		out, err = s.stash.Update(ctx, externalID, p, now)
		return err
	})
	return out, err
}

// UpdateStashStatus marks a container as stored, consumed or discarded.
func (s *RecordService) UpdateStashStatus(ctx context.Context, externalID string, st models.StashStatus) (models.StashItem, error) {
	return s.UpdateStash(ctx, externalID, models.StashPatch{Status: &st})
}

func (s *RecordService) DeleteStash(ctx context.Context, externalID string) error {
	return s.mutate(ctx, func(ctx context.Context, now int64) error {
		_, err := s.stash.SoftDelete(ctx, externalID, now)
		return err
	})
}

func (s *RecordService) ListStash(ctx context.Context, filter models.StashFilter) ([]models.StashItem, error) {
	return s.stash.ListActive(ctx, filter)
}

// Purge physically removes a row that never left this installation.
// Rows carrying a household tag are refused with common.ErrAlreadySynced;
// delete those with the soft-delete operations instead.
func (s *RecordService) Purge(ctx context.Context, kind, externalID string) error {
	s.barrier.RLock()
	defer s.barrier.RUnlock()
	switch kind {
	case common.KindBaby:
		return s.babies.Purge(ctx, externalID)
	case common.KindFeed:
		return s.feeds.Purge(ctx, externalID)
	case common.KindStash:
		return s.stash.Purge(ctx, externalID)
	default:
		return fmt.Errorf("%w: %q", common.ErrUnknownKind, kind)
	}
}

// AdoptHousehold records householdID as the active household and tags every
// untagged row with it, all in one transaction. It returns the number of
// rows tagged.
func (s *RecordService) AdoptHousehold(ctx context.Context, householdID string) (int64, error) {
	if householdID == "" {
		return 0, fmt.Errorf("%w: empty household id", common.ErrInvalidRecord)
	}
	var tagged int64
	err := s.mutate(ctx, func(ctx context.Context, now int64) error {
		tagged = 0
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := settings.NewSQLiteRepository(tx).SetHouseholdID(ctx, householdID); err != nil {
				return err
			}
			n, err := backfill(ctx, tx, householdID, now)
			tagged = n
			return err
		})
	})
	if err != nil {
		return 0, fmt.Errorf("adopt household: %w", err)
	}
	if tagged > 0 {
		s.log.Info(ctx, "untagged rows joined household", "household", householdID, "rows", tagged)
	}
	return tagged, nil
}

// BackfillHousehold tags rows still lacking a household. Tagged rows are
// stamped no lower than floor so a change query from floor-1 sees them.
// It is a no-op when everything is already tagged.
func (s *RecordService) BackfillHousehold(ctx context.Context, householdID string, floor int64) (int64, error) {
	var tagged int64
	s.barrier.RLock()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := backfill(ctx, tx, householdID, max(s.clock.NowMs(), floor))
		tagged = n
		return err
	})
	s.barrier.RUnlock()
	if err != nil {
		return 0, fmt.Errorf("backfill household: %w", err)
	}
	return tagged, nil
}

func backfill(ctx context.Context, tx dbx.DBTX, householdID string, now int64) (int64, error) {
	var total int64
	steps := []func(context.Context, string, int64) (int64, error){
		babies.NewSQLiteRepository(tx).BackfillHousehold,
		feeds.NewSQLiteRepository(tx).BackfillHousehold,
		stash.NewSQLiteRepository(tx).BackfillHousehold,
	}
	for _, step := range steps {
		n, err := step(ctx, householdID, now)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
