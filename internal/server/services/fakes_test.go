package services

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/dbx"
	"github.com/dmitrijs2005/feedkeeper/internal/logging"
	"github.com/dmitrijs2005/feedkeeper/internal/server/config"
	"github.com/dmitrijs2005/feedkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/feedkeeper/internal/server/models"
	"github.com/dmitrijs2005/feedkeeper/internal/server/repositories/archives"
	"github.com/dmitrijs2005/feedkeeper/internal/server/repositories/households"
	"github.com/dmitrijs2005/feedkeeper/internal/server/repositories/members"
	"github.com/dmitrijs2005/feedkeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/feedkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

// memStore backs the fake repositories. Records follow the same guard as
// the SQL upsert.
type memStore struct {
	households map[string]*models.Household
	members    map[string]*models.Member
	records    map[string]*models.Record
	archives   map[string]*models.ArchiveObject

	listErr    error
	archiveErr error
}

func newMemStore() *memStore {
	return &memStore{
		households: make(map[string]*models.Household),
		members:    make(map[string]*models.Member),
		records:    make(map[string]*models.Record),
		archives:   make(map[string]*models.ArchiveObject),
	}
}

type fakeHouseholds struct{ s *memStore }

func (f fakeHouseholds) Create(_ context.Context, id string) (bool, error) {
	if _, ok := f.s.households[id]; ok {
		return false, nil
	}
	f.s.households[id] = &models.Household{ID: id, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	return true, nil
}

func (f fakeHouseholds) Get(_ context.Context, id string) (*models.Household, error) {
	h, ok := f.s.households[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return h, nil
}

type fakeMembers struct{ s *memStore }

func (f fakeMembers) Register(_ context.Context, m *models.Member) (*models.Member, error) {
	key := m.HouseholdID + "|" + m.DeviceID
	if cur, ok := f.s.members[key]; ok {
		return cur, nil
	}
	cp := *m
	f.s.members[key] = &cp
	return &cp, nil
}

func (f fakeMembers) ListByHousehold(_ context.Context, hh string) ([]*models.Member, error) {
	var out []*models.Member
	for _, m := range f.s.members {
		if m.HouseholdID == hh {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

type fakeRecords struct{ s *memStore }

func (f fakeRecords) Owner(_ context.Context, kind, id string) (string, error) {
	r, ok := f.s.records[kind+"|"+id]
	if !ok {
		return "", common.ErrNotFound
	}
	return r.HouseholdID, nil
}

func (f fakeRecords) Upsert(_ context.Context, r *models.Record) (bool, error) {
	key := r.Kind + "|" + r.ExternalID
	if cur, ok := f.s.records[key]; ok {
		if cur.HouseholdID != r.HouseholdID || r.UpdatedAt <= cur.UpdatedAt {
			return false, nil
		}
	}
	cp := *r
	f.s.records[key] = &cp
	return true, nil
}

func (f fakeRecords) ChangedSince(_ context.Context, kind, hh string, since int64) ([]*models.Record, error) {
	var out []*models.Record
	for _, r := range f.s.records {
		if r.Kind == kind && r.HouseholdID == hh && r.UpdatedAt > since {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt < out[j].UpdatedAt })
	return out, nil
}

func (f fakeRecords) ListHousehold(_ context.Context, hh string) ([]*models.Record, error) {
	if f.s.listErr != nil {
		return nil, f.s.listErr
	}
	var out []*models.Record
	for _, r := range f.s.records {
		if r.HouseholdID == hh {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].UpdatedAt < out[j].UpdatedAt
	})
	return out, nil
}

type fakeArchives struct{ s *memStore }

func (f fakeArchives) Create(_ context.Context, a *models.ArchiveObject) error {
	if f.s.archiveErr != nil {
		return f.s.archiveErr
	}
	cp := *a
	cp.UploadStatus = models.ArchivePending
	f.s.archives[a.StorageKey] = &cp
	return nil
}

func (f fakeArchives) MarkUploaded(_ context.Context, key string) error {
	a, ok := f.s.archives[key]
	if !ok {
		return common.ErrNotFound
	}
	a.UploadStatus = models.ArchiveCompleted
	return nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	s *memStore
}

func (m *fakeRepoManager) Households(dbx.DBTX) households.Repository { return fakeHouseholds{m.s} }
func (m *fakeRepoManager) Members(dbx.DBTX) members.Repository { return fakeMembers{m.s} }
func (m *fakeRepoManager) Records(dbx.DBTX) records.Repository { return fakeRecords{m.s} }
func (m *fakeRepoManager) Archives(dbx.DBTX) archives.Repository { return fakeArchives{m.s} }

func testConfig() *config.Config {
	return &config.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "x",
		S3RootPassword: "y",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "bucket",
		ArchiveLinkTTL: 10 * time.Minute,
	}
}

type fixture struct {
	svc   *HouseholdService
	store *memStore
	mock  sqlmock.Sqlmock
	db    *sql.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	store := newMemStore()
	svc := NewHouseholdService(db, &fakeRepoManager{s: store}, testConfig(), metrics.New(), logging.Nop())
	return &fixture{svc: svc, store: store, mock: mock, db: db}
}

func (f *fixture) expectTx(commit bool) {
	f.mock.ExpectBegin()
	if commit {
		f.mock.ExpectCommit()
	} else {
		f.mock.ExpectRollback()
	}
}
