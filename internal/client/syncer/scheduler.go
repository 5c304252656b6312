package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/logging"
)

// Runner is the pass the scheduler drives; *Engine implements it.
type Runner interface {
	Run(ctx context.Context) (models.SyncResult, error)
}

// Pinger reports gateway reachability for the online watcher.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HouseholdEnsurer establishes the household a pass syncs into;
// *services.HouseholdService implements it.
type HouseholdEnsurer interface {
	EnsureHousehold(ctx context.Context) (string, error)
}

type SchedulerOption func(*Scheduler)

// WithHouseholdEnsurer makes every pass first ensure a household exists, so
// a fresh installation joins the shared dataset without a manual step.
// timeout bounds each attempt; zero means no bound.
func WithHouseholdEnsurer(h HouseholdEnsurer, timeout time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.ensurer = h
		s.ensureTimeout = timeout
	}
}

const (
	DefaultSyncInterval  = 5 * time.Minute
	DefaultOnlineCheck   = 30 * time.Second
	onlineCheckPingLimit = 3 * time.Second
)

// Scheduler decides when passes run. Triggers arriving while a pass is
// queued collapse into it; a trigger during a running pass queues exactly
// one follow-up pass.
type Scheduler struct {
	runner  Runner
	pinger  Pinger
	log     logging.Logger
	trigger chan struct{}
	runMu   sync.Mutex

	ensurer       HouseholdEnsurer
	ensureTimeout time.Duration

	mu     sync.RWMutex
	status models.SyncStatus

	now func() time.Time
}

func NewScheduler(runner Runner, pinger Pinger, log logging.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		runner:  runner,
		pinger:  pinger,
		log:     log.With("module", "scheduler"),
		trigger: make(chan struct{}, 1),
		status:  models.SyncStatus{State: models.SyncIdle},
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Trigger requests a pass without blocking.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// SyncNow runs a pass immediately, waiting for a running one to finish
// first.
func (s *Scheduler) SyncNow(ctx context.Context) (models.SyncResult, error) {
	return s.run(ctx)
}

// Status returns a snapshot of the sync status.
func (s *Scheduler) Status() models.SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Start serves triggers and the periodic interval until ctx is done. A
// non-positive interval disables periodic passes.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.run(ctx)
		case <-s.trigger:
			s.run(ctx)
		}
	}
}

// WatchOnline pings the gateway every interval and records reachability.
// Coming back online triggers a pass.
func (s *Scheduler) WatchOnline(ctx context.Context, interval time.Duration) {
	if s.pinger == nil {
		return
	}
	s.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, onlineCheckPingLimit)
	err := s.pinger.Ping(pctx)
	cancel()
	if ctx.Err() != nil {
		return
	}

	online := err == nil
	s.mu.Lock()
	was := s.status.Online
	s.status.Online = online
	s.mu.Unlock()

	if online && !was {
		s.log.Info(ctx, "gateway reachable")
		s.Trigger()
	} else if !online && was {
		s.log.Info(ctx, "gateway unreachable", "error", err)
	}
}

func (s *Scheduler) run(ctx context.Context) (models.SyncResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	prev := s.setState(models.SyncSyncing)
	s.ensureHousehold(ctx)
	res, err := s.runner.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastRunAt = s.now()
	switch {
	case errors.Is(err, common.ErrReentrancyRejected):
		// a pass started outside the scheduler is still running
		s.status.State = prev
	case err != nil:
		s.status.State = models.SyncError
		s.status.LastError = err
		s.log.Error(ctx, "sync failed", "error", err)
	default:
		s.status.State = models.SyncIdle
		s.status.LastError = nil
		s.status.LastResult = res
		if res.Skipped == models.SkipOffline {
			s.status.Online = false
		} else if res.Skipped == models.SkipNone {
			s.status.Online = true
		}
	}
	return res, err
}

// ensureHousehold runs the ensurer before a pass. Failures are logged only:
// the pass then reports no_household and the next one tries again.
func (s *Scheduler) ensureHousehold(ctx context.Context) {
	if s.ensurer == nil {
		return
	}
	ectx := ctx
	if s.ensureTimeout > 0 {
		var cancel context.CancelFunc
		ectx, cancel = context.WithTimeout(ctx, s.ensureTimeout)
		defer cancel()
	}
	_, err := s.ensurer.EnsureHousehold(ectx)
	switch {
	case err == nil, ctx.Err() != nil:
	case errors.Is(err, common.ErrRemoteUnavailable), errors.Is(err, common.ErrNotConfigured):
		s.log.Debug(ctx, "household not established", "error", err)
	default:
		s.log.Warn(ctx, "ensure household failed", "error", err)
	}
}

// setState stores st and returns the state it replaced.
func (s *Scheduler) setState(st models.SyncState) models.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.status.State
	s.status.State = st
	return prev
}
