package postgres

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"vistoria/internal/app/server/config"
	"vistoria/internal/domain/inspection"
	"vistoria/internal/domain/sync"
)

// Тесты требуют живой PostgreSQL: VISTORIA_TEST_DATABASE_URI=postgres://...
func newTestRepo(t *testing.T) (*SyncRepository, *Storage) {
	t.Helper()
	dsn := os.Getenv("VISTORIA_TEST_DATABASE_URI")
	if dsn == "" {
		t.Skip("VISTORIA_TEST_DATABASE_URI is not set")
	}

	ctx := context.Background()
	storage, err := New(ctx, config.DBConfig{DatabaseURI: dsn, Migrations: "../../../../migrations"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	return NewSyncRepository(storage.Pool(), slog.New(slog.NewTextHandler(io.Discard, nil))), storage
}

func newRecord(empresa, vistoriador string) *inspection.Inspection {
	rec := inspection.NewInspection(empresa, vistoriador, "imovel-1", inspection.TipoEntrada)
	rec.Checklist = map[string]string{"pintura": "ok"}
	return rec
}

func staticPhotos(urls []string, undone *bool) sync.PhotoResolver {
	return func(context.Context) ([]string, func(), error) {
		return urls, func() { *undone = true }, nil
	}
}

func TestSyncRepository_CommitIsIdempotent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	rec := newRecord("emp-"+uuid.NewString(), "vist-1")

	var undone bool
	first, err := repo.Commit(ctx, rec, staticPhotos([]string{"https://cdn/a.jpg", "https://cdn/b.jpg"}, &undone))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.False(t, undone)

	resolved := false
	second, err := repo.Commit(ctx, rec, func(context.Context) ([]string, func(), error) {
		resolved = true
		return nil, func() {}, nil
	})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.False(t, resolved, "photos are not stored again for a duplicate")
	assert.Equal(t, first.CloudID, second.CloudID)
	assert.Equal(t, []string{"https://cdn/a.jpg", "https://cdn/b.jpg"}, second.PhotoURLs)
}

func TestSyncRepository_ClientIDOfAnotherOwner(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	rec := newRecord("emp-"+uuid.NewString(), "vist-1")

	var undone bool
	_, err := repo.Commit(ctx, rec, staticPhotos([]string{"https://cdn/a.jpg"}, &undone))
	require.NoError(t, err)

	foreign := *rec
	foreign.EmpresaID = "emp-" + uuid.NewString()
	commit, err := repo.Commit(ctx, &foreign, staticPhotos(nil, &undone))

	require.Error(t, err)
	assert.Nil(t, commit)
	assert.ErrorIs(t, err, sync.ErrClientIDTaken)
	assert.Equal(t, inspection.CodeValidation, inspection.CodeOf(err))
}

func TestSyncRepository_ResolveFailureRollsBack(t *testing.T) {
	repo, storage := newTestRepo(t)
	ctx := context.Background()
	rec := newRecord("emp-"+uuid.NewString(), "vist-1")

	_, err := repo.Commit(ctx, rec, func(context.Context) ([]string, func(), error) {
		return nil, nil, errors.New("disk full")
	})
	require.Error(t, err)

	var n int
	require.NoError(t, storage.Pool().QueryRow(ctx,
		`SELECT count(*) FROM inspections WHERE client_id = $1`, rec.ID).Scan(&n))
	assert.Zero(t, n)
}

func TestSyncRepository_PhotoInsertFailureUndoes(t *testing.T) {
	repo, storage := newTestRepo(t)
	ctx := context.Background()
	rec := newRecord("emp-"+uuid.NewString(), "vist-1")

	// NUL байт недопустим в TEXT, вставка фото падает после записи объектов
	var undone bool
	_, err := repo.Commit(ctx, rec, staticPhotos([]string{"https://cdn/\x00.jpg"}, &undone))
	require.Error(t, err)
	assert.True(t, undone)

	var n int
	require.NoError(t, storage.Pool().QueryRow(ctx,
		`SELECT count(*) FROM inspections WHERE client_id = $1`, rec.ID).Scan(&n))
	assert.Zero(t, n)
}

func TestSyncRepository_Status(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	empresa := "emp-" + uuid.NewString()

	var undone bool
	for i := 0; i < 3; i++ {
		_, err := repo.Commit(ctx, newRecord(empresa, "vist-1"), staticPhotos(nil, &undone))
		require.NoError(t, err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.RecordRun(ctx, &sync.SyncRun{
		ID: uuid.NewString(), VistoriadorID: "vist-1", EmpresaID: empresa,
		Processed: 3, Failed: 1, Duration: 200 * time.Millisecond, CreatedAt: now.Add(-time.Minute),
		Device: &sync.DeviceInfo{DeviceID: "dev-1", PendingCount: 4},
	}))
	require.NoError(t, repo.RecordRun(ctx, &sync.SyncRun{
		ID: uuid.NewString(), VistoriadorID: "vist-1", EmpresaID: empresa,
		Processed: 0, Failed: 0, Duration: 100 * time.Millisecond, CreatedAt: now,
		Device: &sync.DeviceInfo{DeviceID: "dev-2", PendingCount: 1},
	}))

	agg, err := repo.GetStatus(ctx, "vist-1", empresa, "")
	require.NoError(t, err)
	assert.Equal(t, 3, agg.SyncedCount)
	assert.Equal(t, 3, agg.Processed)
	assert.Equal(t, 1, agg.Failed)
	assert.InDelta(t, 150, agg.AvgDurationMs, 0.001)
	require.NotNil(t, agg.LastSyncAt)
	assert.WithinDuration(t, now, *agg.LastSyncAt, time.Millisecond)
	require.NotNil(t, agg.Device)
	assert.Equal(t, "dev-2", agg.Device.DeviceID)

	agg, err = repo.GetStatus(ctx, "vist-1", empresa, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, agg.Device)
	assert.Equal(t, 4, agg.Device.PendingCount)

	empty, err := repo.GetStatus(ctx, "vist-1", "emp-"+uuid.NewString(), "")
	require.NoError(t, err)
	assert.Zero(t, empty.SyncedCount)
	assert.Nil(t, empty.LastSyncAt)
	assert.Nil(t, empty.Device)
}
