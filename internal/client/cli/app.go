package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/feedkeeper/internal/client/client"
	"github.com/dmitrijs2005/feedkeeper/internal/client/config"
	"github.com/dmitrijs2005/feedkeeper/internal/client/services"
	"github.com/dmitrijs2005/feedkeeper/internal/client/syncer"
	"github.com/dmitrijs2005/feedkeeper/internal/logging"
	"github.com/dmitrijs2005/feedkeeper/internal/netx"
	"github.com/dmitrijs2005/feedkeeper/internal/timex"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

type App struct {
	config     *config.Config
	log        logging.Logger
	records    *services.RecordService
	households *services.HouseholdService
	stats      *services.StatsService
	scheduler  *syncer.Scheduler
	gateway    client.Gateway
	http       netx.HTTPDoer
	reader     *bufio.Reader
	out        io.Writer
	loc        *time.Location
	closers    []io.Closer
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	clock := timex.NewSystemClock()
	records := services.NewRecordService(db, clock, log)

	a := &App{
		config:  c,
		log:     log,
		records: records,
		stats:   services.NewStatsService(records, clock),
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		loc:     time.Local,
		closers: []io.Closer{db},
	}

	var pinger syncer.Pinger
	if c.ServerEndpointAddr != "" {
		gw, err := client.NewGRPCClient(c.ServerEndpointAddr)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.gateway = gw
		a.closers = append(a.closers, gw)
		pinger = gw
	}

	a.households = services.NewHouseholdService(records, a.gateway, log)
	if _, err := a.households.EnsureDeviceID(ctx); err != nil {
		a.Close()
		return nil, err
	}

	engine := syncer.NewEngine(records, a.gateway, clock, log, syncer.WithCallTimeout(c.RemoteCallTimeout))
	var opts []syncer.SchedulerOption
	if a.gateway != nil {
		opts = append(opts, syncer.WithHouseholdEnsurer(a.households, c.RemoteCallTimeout))
	}
	a.scheduler = syncer.NewScheduler(engine, pinger, log, opts...)
	records.OnChange(a.scheduler.Trigger)

	return a, nil
}

// Run starts background sync and serves the REPL until EOF or exit.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.scheduler.Start(ctx, a.config.SyncInterval)
	if a.gateway != nil {
		go a.scheduler.WatchOnline(ctx, a.config.OnlineCheckInterval)
		a.scheduler.Trigger()
	}

	a.printf("Welcome to feedkeeper (type 'help' for commands)\n")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) mode() Mode {
	if a.gateway == nil {
		return ModeDisabled
	}
	if a.scheduler.Status().Online {
		return ModeOnline
	}
	return ModeOffline
}

func (a *App) getStatus() string {
	s := string(a.mode())
	if st, err := a.records.Settings().Get(context.Background()); err == nil && st.ActiveBabyID != "" {
		if b, err := a.records.Babies().Get(context.Background(), st.ActiveBabyID); err == nil && !b.Deleted {
			s = b.Name + " " + s
		}
	}
	return "(" + s + ")"
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

var errNoActiveBaby = errors.New("no active baby, add one with 'addbaby' or pick one with 'use <id>'")

// activeBaby returns the selected baby, falling back to the only live one.
func (a *App) activeBaby(ctx context.Context) (string, error) {
	st, err := a.records.Settings().Get(ctx)
	if err != nil {
		return "", err
	}
	if st.ActiveBabyID != "" {
		b, err := a.records.Babies().Get(ctx, st.ActiveBabyID)
		if err == nil && !b.Deleted {
			return b.ExternalID, nil
		}
	}
	list, err := a.records.ListBabies(ctx)
	if err != nil {
		return "", err
	}
	if len(list) == 1 {
		return list[0].ExternalID, nil
	}
	return "", errNoActiveBaby
}
