package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
	"github.com/dmitrijs2005/feedkeeper/internal/client/services"
	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/logging"
	"github.com/dmitrijs2005/feedkeeper/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls   atomic.Int32
	release chan struct{}

	mu  sync.Mutex
	res models.SyncResult
	err error
}

func (r *fakeRunner) Run(ctx context.Context) (models.SyncResult, error) {
	r.calls.Add(1)
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return models.SyncResult{}, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.res, r.err
}

func (r *fakeRunner) set(res models.SyncResult, err error) {
	r.mu.Lock()
	r.res, r.err = res, err
	r.mu.Unlock()
}

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (p *fakePinger) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakePinger) set(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

var errDown = errors.New("down")

func TestScheduler_CoalescesTriggers(t *testing.T) {
	r := &fakeRunner{}
	s := NewScheduler(r, nil, logging.Nop())

	s.Trigger()
	s.Trigger()
	s.Trigger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx, 0)

	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, r.calls.Load())
}

func TestScheduler_TriggerDuringPassQueuesOneMore(t *testing.T) {
	r := &fakeRunner{release: make(chan struct{})}
	s := NewScheduler(r, nil, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx, 0)

	s.Trigger()
	require.Eventually(t, func() bool { return s.Status().State == models.SyncSyncing }, time.Second, 5*time.Millisecond)

	s.Trigger()
	s.Trigger()
	r.release <- struct{}{}
	r.release <- struct{}{}

	require.Eventually(t, func() bool {
		return r.calls.Load() == 2 && s.Status().State == models.SyncIdle
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_IntervalRunsPeriodically(t *testing.T) {
	r := &fakeRunner{}
	s := NewScheduler(r, nil, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_StatusReflectsOutcome(t *testing.T) {
	ctx := context.Background()
	r := &fakeRunner{}
	s := NewScheduler(r, nil, logging.Nop())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	assert.Equal(t, models.SyncIdle, s.Status().State)

	r.set(models.SyncResult{}, errDown)
	_, err := s.SyncNow(ctx)
	require.ErrorIs(t, err, errDown)
	st := s.Status()
	assert.Equal(t, models.SyncError, st.State)
	assert.ErrorIs(t, st.LastError, errDown)
	assert.Equal(t, fixed, st.LastRunAt)

	r.set(models.SyncResult{Pushed: 2, Cursor: 42}, nil)
	res, err := s.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pushed)
	st = s.Status()
	assert.Equal(t, models.SyncIdle, st.State)
	assert.NoError(t, st.LastError)
	assert.Equal(t, int64(42), st.LastResult.Cursor)
	assert.True(t, st.Online)

	r.set(models.SyncResult{Skipped: models.SkipOffline}, nil)
	_, err = s.SyncNow(ctx)
	require.NoError(t, err)
	assert.False(t, s.Status().Online)

	r.set(models.SyncResult{}, common.ErrReentrancyRejected)
	_, err = s.SyncNow(ctx)
	require.ErrorIs(t, err, common.ErrReentrancyRejected)
	assert.Equal(t, models.SyncIdle, s.Status().State)
}

func TestScheduler_RejectedPassKeepsPreviousError(t *testing.T) {
	ctx := context.Background()
	r := &fakeRunner{}
	s := NewScheduler(r, nil, logging.Nop())

	r.set(models.SyncResult{}, errDown)
	_, err := s.SyncNow(ctx)
	require.ErrorIs(t, err, errDown)

	r.set(models.SyncResult{}, common.ErrReentrancyRejected)
	_, err = s.SyncNow(ctx)
	require.ErrorIs(t, err, common.ErrReentrancyRejected)

	st := s.Status()
	assert.Equal(t, models.SyncError, st.State)
	assert.ErrorIs(t, st.LastError, errDown)
}

func TestScheduler_WatchOnlineTriggersOnReconnect(t *testing.T) {
	r := &fakeRunner{}
	p := &fakePinger{err: errDown}
	s := NewScheduler(r, p, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx, 0)
	go s.WatchOnline(ctx, 10*time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	assert.False(t, s.Status().Online)
	assert.Zero(t, r.calls.Load())

	p.set(nil)
	require.Eventually(t, func() bool { return s.Status().Online && r.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
}

type fakeEnsurer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *fakeEnsurer) EnsureHousehold(context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	return "hh_1", nil
}

func TestScheduler_EnsuresHouseholdBeforeEachPass(t *testing.T) {
	ctx := context.Background()
	r := &fakeRunner{}
	e := &fakeEnsurer{err: common.ErrRemoteUnavailable}
	s := NewScheduler(r, nil, logging.Nop(), WithHouseholdEnsurer(e, time.Second))

	_, err := s.SyncNow(ctx)
	require.NoError(t, err, "an offline ensure does not fail the pass")
	assert.Equal(t, 1, e.calls)
	assert.EqualValues(t, 1, r.calls.Load())

	e.err = errors.New("disk full")
	_, err = s.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, e.calls)
	assert.EqualValues(t, 2, r.calls.Load())
}

func TestScheduler_FreshDeviceJoinsHouseholdAndPushes(t *testing.T) {
	ctx := context.Background()
	gw := testutil.NewFakeGateway()
	clock := testutil.NewStepClock(1_000)
	rs := services.NewRecordService(testutil.NewSQLite(t), clock, logging.Nop())
	households := services.NewHouseholdService(rs, gw, logging.Nop())
	engine := NewEngine(rs, gw, clock, logging.Nop())
	s := NewScheduler(engine, gw, logging.Nop(), WithHouseholdEnsurer(households, time.Second))
	rs.OnChange(s.Trigger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.Start(runCtx, 0)

	b, err := rs.CreateBaby(ctx, models.Baby{Name: "Ava"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := gw.Get(common.KindBaby, b.ExternalID)
		return ok
	}, time.Second, 5*time.Millisecond)

	hh, err := households.HouseholdID(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, hh)
	remote, _ := gw.Get(common.KindBaby, b.ExternalID)
	assert.Equal(t, hh, remote.HouseholdID)
}
