package households

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresRepository(db), mock
}

const insertQ = `(?s)^INSERT\s+INTO\s+households\s*\(id\)\s*VALUES\s*\(\$1\)\s*ON\s+CONFLICT\s*\(id\)\s*DO\s+NOTHING\s*$`

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(insertQ).WithArgs("hh_1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertQ).WithArgs("hh_1").WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Create(context.Background(), "hh_1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(context.Background(), "hh_1")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(insertQ).WithArgs("hh_1").WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), "hh_1")
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db down`, err.Error())
}

func TestGet(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)^SELECT\s+id,\s*created_at\s+FROM\s+households\s+WHERE\s+id\s*=\s*\$1\s*$`
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q).WithArgs("hh_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("hh_1", at))
	mock.ExpectQuery(q).WithArgs("hh_2").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(q).WithArgs("hh_3").WillReturnError(errors.New("boom"))

	h, err := repo.Get(context.Background(), "hh_1")
	require.NoError(t, err)
	assert.Equal(t, "hh_1", h.ID)
	assert.Equal(t, at, h.CreatedAt)

	_, err = repo.Get(context.Background(), "hh_2")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.Get(context.Background(), "hh_3")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNotFound)
}
