package stash

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func item(id, baby string, createdAt int64) models.StashItem {
	return models.StashItem{
		Meta:      models.Meta{ExternalID: id, HouseholdID: "hh", UpdatedAt: createdAt},
		BabyID:    baby,
		CreatedAt: createdAt,
		VolumeMl:  90,
	}
}

func TestInsert_DefaultsStatusToStored(t *testing.T) {
	r := NewSQLiteRepository(testutil.NewSQLite(t))
	ctx := context.Background()

	it := item("s_1", "b_1", 100)
	require.NoError(t, r.Insert(ctx, &it))
	assert.Equal(t, models.StashStored, it.Status)

	got, err := r.Get(ctx, "s_1")
	require.NoError(t, err)
	assert.Equal(t, models.StashStored, got.Status)
	assert.Nil(t, got.ExpiresAt)
}

func TestListActive_NewestFirstWithStatusFilter(t *testing.T) {
	r := NewSQLiteRepository(testutil.NewSQLite(t))
	ctx := context.Background()
	for _, it := range []models.StashItem{item("s_1", "b_1", 100), item("s_2", "b_1", 300), item("s_3", "b_1", 200), item("s_4", "b_2", 400)} {
		require.NoError(t, r.Insert(ctx, &it))
	}
	_, err := r.Update(ctx, "s_3", models.StashPatch{Status: ptr(models.StashConsumed)}, 500)
	require.NoError(t, err)

	list, err := r.ListActive(ctx, models.StashFilter{BabyID: "b_1"})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "s_2", list[0].ExternalID)
	assert.Equal(t, "s_3", list[1].ExternalID)
	assert.Equal(t, "s_1", list[2].ExternalID)

	stored, err := r.ListActive(ctx, models.StashFilter{BabyID: "b_1", Status: models.StashStored})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestUpdateDeleteMerge(t *testing.T) {
	r := NewSQLiteRepository(testutil.NewSQLite(t))
	ctx := context.Background()
	it := item("s_1", "b_1", 100)
	require.NoError(t, r.Insert(ctx, &it))

	upd, err := r.Update(ctx, "s_1", models.StashPatch{VolumeMl: ptr(60.0), ExpiresAt: ptr(int64(9_999))}, 150)
	require.NoError(t, err)
	assert.Equal(t, 60.0, upd.VolumeMl)
	assert.EqualValues(t, 9_999, *upd.ExpiresAt)
	assert.EqualValues(t, 150, upd.UpdatedAt)

	del, err := r.SoftDelete(ctx, "s_1", 160)
	require.NoError(t, err)
	assert.True(t, del.Deleted)

	stale := item("s_1", "b_1", 100)
	stale.UpdatedAt = 160
	applied, err := r.UpsertFromRemote(ctx, stale)
	require.NoError(t, err)
	assert.False(t, applied, "stale live copy must not revive a newer tombstone")

	got, err := r.Get(ctx, "s_1")
	require.NoError(t, err)
	assert.True(t, got.Deleted)

	_, err = r.Update(ctx, "s_1", models.StashPatch{Notes: ptr("x")}, 200)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestChangedSinceBackfillPurge(t *testing.T) {
	r := NewSQLiteRepository(testutil.NewSQLite(t))
	ctx := context.Background()
	local := item("s_local", "b_1", 100)
	local.HouseholdID = ""
	require.NoError(t, r.Insert(ctx, &local))

	require.NoError(t, r.Purge(ctx, "s_local"))

	local = item("s_local2", "b_1", 100)
	local.HouseholdID = ""
	require.NoError(t, r.Insert(ctx, &local))
	n, err := r.BackfillHousehold(ctx, "hh", 50)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	changed, err := r.ChangedSince(ctx, 100)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.EqualValues(t, 101, changed[0].UpdatedAt)
	assert.Equal(t, "hh", changed[0].HouseholdID)

	require.ErrorIs(t, r.Purge(ctx, "s_local2"), common.ErrAlreadySynced)
}
