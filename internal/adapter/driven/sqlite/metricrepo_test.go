package sqlite

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/livebadge/internal/domain/model"
	"github.com/ericfisherdev/livebadge/internal/domain/port/driven"
)

func int64Ptr(v int64) *int64 { return &v }

func tableRecord(id string) model.MetricRecord {
	return model.MetricRecord{
		ID:               id,
		Endpoint:         "https://abc.supabase.co",
		PublicCredential: "sb_publishable_abc",
		Label:            "Records",
		Color:            "#4F46E5",
		Kind:             model.MetricKindTableCount,
		Table:            &model.TableRef{Schema: "analytics", Name: "events"},
		Protected:        true,
		CachedValue:      int64Ptr(1000),
		CreatedAt:        time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestMetricRepo_CreateAndGet(t *testing.T) {
	repo, _ := setupTestRepo(t, nil)
	ctx := context.Background()

	rec := tableRecord("m-1")
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.Get(ctx, "m-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)
}

func TestMetricRepo_GetMissing(t *testing.T) {
	repo, _ := setupTestRepo(t, nil)

	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMetricRepo_UserCountWithoutTableOrCache(t *testing.T) {
	repo, _ := setupTestRepo(t, nil)
	ctx := context.Background()

	rec := model.MetricRecord{
		ID:               "u-1",
		Endpoint:         "https://abc.supabase.co",
		PublicCredential: "anon",
		Label:            "Users",
		Color:            "#4F46E5",
		Kind:             model.MetricKindUserCount,
		Protected:        true,
	}
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.Get(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Table)
	assert.Nil(t, got.CachedValue)
	assert.False(t, got.CreatedAt.IsZero(), "zero CreatedAt is replaced on insert")
}

func TestMetricRepo_DuplicateID(t *testing.T) {
	repo, _ := setupTestRepo(t, nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, tableRecord("dup")))
	err := repo.Create(ctx, tableRecord("dup"))
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestMetricRepo_UpdateCachedValue(t *testing.T) {
	repo, _ := setupTestRepo(t, nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, tableRecord("m-1")))
	require.NoError(t, repo.UpdateCachedValue(ctx, "m-1", 1234))

	got, err := repo.Get(ctx, "m-1")
	require.NoError(t, err)
	require.NotNil(t, got.CachedValue)
	assert.Equal(t, int64(1234), *got.CachedValue)
	assert.Equal(t, "Records", got.Label, "other fields are untouched")
}

func TestMetricRepo_UpdateCachedValueMissing(t *testing.T) {
	repo, _ := setupTestRepo(t, nil)

	err := repo.UpdateCachedValue(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, driven.ErrMetricNotFound)
}

func TestMetricRepo_ConcurrentUpdatesLastWriteWins(t *testing.T) {
	repo, _ := setupTestRepo(t, nil)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, tableRecord("m-1")))

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			assert.NoError(t, repo.UpdateCachedValue(ctx, "m-1", v))
		}(int64(i))
	}
	wg.Wait()

	got, err := repo.Get(ctx, "m-1")
	require.NoError(t, err)
	require.NotNil(t, got.CachedValue)
	assert.GreaterOrEqual(t, *got.CachedValue, int64(0))
	assert.Less(t, *got.CachedValue, int64(10))
}

func TestMetricRepo_SealsCredential(t *testing.T) {
	repo, db := setupTestRepo(t, bytes.Repeat([]byte{0x01}, 32))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, tableRecord("m-1")))

	var raw string
	err := db.Reader.QueryRowContext(ctx, `SELECT public_credential FROM metrics WHERE id = ?`, "m-1").Scan(&raw)
	require.NoError(t, err)
	assert.NotEqual(t, "sb_publishable_abc", raw)

	got, err := repo.Get(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "sb_publishable_abc", got.PublicCredential)
}

func TestMetricRepo_Ping(t *testing.T) {
	repo, _ := setupTestRepo(t, nil)
	assert.NoError(t, repo.Ping(context.Background()))
}
