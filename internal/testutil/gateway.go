package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/wire"
)

// FakeGateway is an in-memory household server with fault injection. It
// applies the same last-write-wins guard as the real server.
type FakeGateway struct {
	mu         sync.Mutex
	households map[string]struct{}
	members    map[string]string
	records    map[string]map[string]wire.Record

	// Offline makes every call fail with common.ErrRemoteUnavailable.
	Offline bool
	// UpsertErr, when set, is consulted before each upsert.
	UpsertErr func(r wire.Record) error
	// QueryErr, when set, is consulted before each change query. A
	// *wire.SkippedRecords result is returned together with the records.
	QueryErr func(kind string) error
	// RegisterErr, when set, is consulted before each member registration.
	RegisterErr func(householdID, deviceID string) error
	// OnUpsert runs after a successful upsert, outside the lock.
	OnUpsert func(r wire.Record)

	Upserts int
	Queries int
	Pings   int
	Closed  bool
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		households: make(map[string]struct{}),
		members:    make(map[string]string),
		records:    make(map[string]map[string]wire.Record),
	}
}

func (g *FakeGateway) unavailable() error {
	if g.Offline {
		return fmt.Errorf("%w: fake offline", common.ErrRemoteUnavailable)
	}
	return nil
}

func (g *FakeGateway) Ping(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Pings++
	return g.unavailable()
}

// AddHousehold registers a household as if another device had created it.
func (g *FakeGateway) AddHousehold(id string) {
	g.mu.Lock()
	g.households[id] = struct{}{}
	g.mu.Unlock()
}

func (g *FakeGateway) CreateHousehold(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.unavailable(); err != nil {
		return err
	}
	g.households[id] = struct{}{}
	return nil
}

func (g *FakeGateway) FindHousehold(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.unavailable(); err != nil {
		return err
	}
	if _, ok := g.households[id]; !ok {
		return common.ErrNotFound
	}
	return nil
}

func (g *FakeGateway) RegisterMember(_ context.Context, householdID, deviceID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.unavailable(); err != nil {
		return "", err
	}
	if g.RegisterErr != nil {
		if err := g.RegisterErr(householdID, deviceID); err != nil {
			return "", err
		}
	}
	if _, ok := g.households[householdID]; !ok {
		return "", common.ErrNotFound
	}
	g.members[deviceID] = householdID
	return "mem_" + deviceID, nil
}

// MemberOf reports which household deviceID registered with.
func (g *FakeGateway) MemberOf(deviceID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.members[deviceID]
}

func (g *FakeGateway) UpsertEntity(_ context.Context, r wire.Record) (bool, error) {
	g.mu.Lock()
	if err := g.unavailable(); err != nil {
		g.mu.Unlock()
		return false, err
	}
	if g.UpsertErr != nil {
		if err := g.UpsertErr(r); err != nil {
			g.mu.Unlock()
			return false, err
		}
	}
	applied, err := g.put(r)
	if err == nil {
		g.Upserts++
	}
	hook := g.OnUpsert
	g.mu.Unlock()

	if err == nil && hook != nil {
		hook(r)
	}
	return applied, err
}

// Put stores r as if another device had pushed it.
func (g *FakeGateway) Put(r wire.Record) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.households[r.HouseholdID] = struct{}{}
	applied, _ := g.put(r)
	return applied
}

func (g *FakeGateway) put(r wire.Record) (bool, error) {
	if err := r.Validate(); err != nil {
		return false, err
	}
	if _, ok := g.households[r.HouseholdID]; !ok {
		return false, common.ErrNotFound
	}
	byID := g.records[r.Kind]
	if byID == nil {
		byID = make(map[string]wire.Record)
		g.records[r.Kind] = byID
	}
	cur, ok := byID[r.ExternalID]
	if ok && cur.HouseholdID != r.HouseholdID {
		return false, common.ErrHouseholdMismatch
	}
	if ok && cur.UpdatedAt >= r.UpdatedAt {
		return false, nil
	}
	byID[r.ExternalID] = cloneRecord(r)
	return true, nil
}

// Get returns the stored copy of a record.
func (g *FakeGateway) Get(kind, externalID string) (wire.Record, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.records[kind][externalID]
	return cloneRecord(r), ok
}

// HouseholdCount returns how many households exist.
func (g *FakeGateway) HouseholdCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.households)
}

// Count returns how many records of kind are stored.
func (g *FakeGateway) Count(kind string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records[kind])
}

func (g *FakeGateway) QueryChangedSince(_ context.Context, kind, householdID string, since int64) ([]wire.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.unavailable(); err != nil {
		return nil, err
	}
	var partial error
	if g.QueryErr != nil {
		if err := g.QueryErr(kind); err != nil {
			var skipped *wire.SkippedRecords
			if !errors.As(err, &skipped) {
				return nil, err
			}
			partial = err
		}
	}
	g.Queries++

	var out []wire.Record
	for _, r := range g.records[kind] {
		if r.HouseholdID == householdID && r.UpdatedAt > since {
			out = append(out, cloneRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt < out[j].UpdatedAt })
	return out, partial
}

func (g *FakeGateway) ArchiveHousehold(_ context.Context, householdID string) (wire.ArchiveLink, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.unavailable(); err != nil {
		return wire.ArchiveLink{}, err
	}
	if _, ok := g.households[householdID]; !ok {
		return wire.ArchiveLink{}, common.ErrNotFound
	}
	return wire.ArchiveLink{URL: "http://archive.invalid/" + householdID, Key: "archives/" + householdID + ".json"}, nil
}

func (g *FakeGateway) Close() error {
	g.mu.Lock()
	g.Closed = true
	g.mu.Unlock()
	return nil
}

func cloneRecord(r wire.Record) wire.Record {
	if r.Fields != nil {
		f := make(map[string]any, len(r.Fields))
		for k, v := range r.Fields {
			f[k] = v
		}
		r.Fields = f
	}
	return r
}
