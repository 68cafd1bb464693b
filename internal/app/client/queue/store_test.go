package queue

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vistoria/internal/domain/inspection"
)

func newRecord(id string) *inspection.Inspection {
	rec := inspection.NewInspection("empresa-1", "vistoriador-1", "imovel-"+id, inspection.TipoEntrada)
	rec.ID = id
	rec.Fotos = []inspection.Photo{{URI: "/fotos/" + id + ".jpg", Descricao: "fachada"}}
	rec.Checklist = map[string]string{"portas": "ok"}
	return rec
}

// stores прогоняет одни и те же проверки на обеих реализациях
func stores(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "queue.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStore_EnqueueAndGetPending(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			for _, id := range []string{"c", "a", "b"} {
				require.NoError(t, s.Enqueue(ctx, newRecord(id)))
			}

			pending, err := s.GetPending(ctx)
			require.NoError(t, err)
			require.Len(t, pending, 3)
			assert.Equal(t, "c", pending[0].ID)
			assert.Equal(t, "a", pending[1].ID)
			assert.Equal(t, "b", pending[2].ID)
			assert.Equal(t, inspection.StatusPending, pending[0].Status)
			assert.Equal(t, "fachada", pending[0].Fotos[0].Descricao)
			assert.Equal(t, "ok", pending[0].Checklist["portas"])
		})
	}
}

func TestStore_EnqueueDuplicate(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			require.NoError(t, s.Enqueue(ctx, newRecord("a")))
			err := s.Enqueue(ctx, newRecord("a"))

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDuplicateID)
			var storageError *StorageError
			assert.ErrorAs(t, err, &storageError)
		})
	}
}

func TestStore_MarkSyncedIsIdempotent(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			require.NoError(t, s.Enqueue(ctx, newRecord("a")))

			first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
			require.NoError(t, s.MarkSynced(ctx, "a", "cloud-1", first, "https://cdn/a.jpg"))
			require.NoError(t, s.MarkSynced(ctx, "a", "cloud-2", first.Add(time.Hour), "https://cdn/other.jpg"))

			rec, err := s.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, inspection.StatusSynced, rec.Status)
			assert.Equal(t, "cloud-1", rec.CloudID)
			require.NotNil(t, rec.SyncedAt)
			assert.True(t, first.Equal(*rec.SyncedAt))
			assert.Equal(t, "https://cdn/a.jpg", rec.Fotos[0].URI)
			assert.Equal(t, "fachada", rec.Fotos[0].Descricao)

			pending, err := s.GetPending(ctx)
			require.NoError(t, err)
			assert.Empty(t, pending)
		})
	}
}

func TestStore_MarkErrorAndRetry(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			require.NoError(t, s.Enqueue(ctx, newRecord("a")))
			require.NoError(t, s.Enqueue(ctx, newRecord("b")))

			require.NoError(t, s.MarkError(ctx, "a", "timeout"))
			require.NoError(t, s.MarkError(ctx, "a", "timeout again"))

			failed, err := s.GetFailed(ctx)
			require.NoError(t, err)
			require.Len(t, failed, 1)
			assert.Equal(t, "timeout again", failed[0].LastError)

			pending, err := s.GetPending(ctx)
			require.NoError(t, err)
			assert.Len(t, pending, 2)

			require.NoError(t, s.ResetToPending(ctx, "a"))
			require.NoError(t, s.ResetToPending(ctx, "a"))
			rec, err := s.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, inspection.StatusPending, rec.Status)

			require.NoError(t, s.MarkError(ctx, "a", "boom"))
			require.NoError(t, s.MarkSynced(ctx, "a", "cloud-a", time.Now()))
			rec, err = s.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, inspection.StatusSynced, rec.Status)
			assert.Empty(t, rec.LastError)
		})
	}
}

func TestStore_SyncedIsImmutable(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			require.NoError(t, s.Enqueue(ctx, newRecord("a")))
			require.NoError(t, s.MarkSynced(ctx, "a", "cloud-a", time.Now()))

			assert.ErrorIs(t, s.MarkError(ctx, "a", "late failure"), inspection.ErrInvalidTransition)
			assert.ErrorIs(t, s.ResetToPending(ctx, "a"), inspection.ErrInvalidTransition)

			rec, err := s.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, inspection.StatusSynced, rec.Status)
		})
	}
}

func TestStore_UnknownID(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			assert.ErrorIs(t, s.MarkSynced(ctx, "missing", "c", time.Now()), ErrNotFound)
			assert.ErrorIs(t, s.MarkError(ctx, "missing", "x"), ErrNotFound)
			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_CountsAndClearAll(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			for _, id := range []string{"a", "b", "c", "d"} {
				require.NoError(t, s.Enqueue(ctx, newRecord(id)))
			}
			syncedAt := time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)
			require.NoError(t, s.MarkSynced(ctx, "a", "cloud-a", syncedAt.Add(-time.Minute)))
			require.NoError(t, s.MarkSynced(ctx, "b", "cloud-b", syncedAt))
			require.NoError(t, s.MarkError(ctx, "c", "500"))

			c, err := s.Counts(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, c.Pending)
			assert.Equal(t, 1, c.Error)
			assert.Equal(t, 2, c.Synced)
			require.NotNil(t, c.LastSyncedAt)
			assert.True(t, syncedAt.Equal(*c.LastSyncedAt))

			require.NoError(t, s.ClearAll(ctx))
			c, err = s.Counts(ctx)
			require.NoError(t, err)
			assert.Equal(t, Counts{}, c)
		})
	}
}

func TestStore_LastSyncedAtUsesSubsecondOrder(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			require.NoError(t, s.Enqueue(ctx, newRecord("a")))
			require.NoError(t, s.Enqueue(ctx, newRecord("b")))

			base := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
			later := base.Add(150 * time.Millisecond)
			require.NoError(t, s.MarkSynced(ctx, "a", "cloud-a", later))
			require.NoError(t, s.MarkSynced(ctx, "b", "cloud-b", base.Add(100*time.Millisecond)))

			c, err := s.Counts(ctx)
			require.NoError(t, err)
			require.NotNil(t, c.LastSyncedAt)
			assert.True(t, later.Equal(*c.LastSyncedAt), "got %s", c.LastSyncedAt)
		})
	}
}

func TestStore_ConcurrentMarksForDifferentIDs(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			const n = 20
			for i := 0; i < n; i++ {
				require.NoError(t, s.Enqueue(ctx, newRecord(fmt.Sprintf("r%02d", i))))
			}

			var wg sync.WaitGroup
			errs := make([]error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					id := fmt.Sprintf("r%02d", i)
					if i%2 == 0 {
						errs[i] = s.MarkSynced(ctx, id, "cloud-"+id, time.Now())
					} else {
						errs[i] = s.MarkError(ctx, id, "boom")
					}
				}()
			}
			wg.Wait()

			for _, err := range errs {
				assert.NoError(t, err)
			}
			c, err := s.Counts(ctx)
			require.NoError(t, err)
			assert.Equal(t, n/2, c.Synced)
			assert.Equal(t, n/2, c.Error)
			assert.Equal(t, 0, c.Pending)
		})
	}
}

func TestSQLiteStore_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "queue.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Enqueue(ctx, newRecord("A")))
	require.NoError(t, s.Enqueue(ctx, newRecord("B")))
	require.NoError(t, s.MarkSynced(ctx, "A", "cloud-A", time.Now(), "https://cdn/A.jpg"))
	// процесс "падает" до завершения обработки B
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	a, err := reopened.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, inspection.StatusSynced, a.Status)
	assert.Equal(t, "cloud-A", a.CloudID)
	assert.Equal(t, "https://cdn/A.jpg", a.Fotos[0].URI)

	b, err := reopened.Get(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, inspection.StatusPending, b.Status)
	assert.Empty(t, b.CloudID)
}

func TestResolvePhotos(t *testing.T) {
	fotos := []inspection.Photo{{URI: "/a.jpg", Descricao: "sala"}, {URI: "/b.jpg"}}

	assert.Equal(t, fotos, resolvePhotos(fotos, nil))
	assert.Equal(t, fotos, resolvePhotos(fotos, []string{"https://cdn/a.jpg"}))
	assert.Equal(t, []inspection.Photo{
		{URI: "https://cdn/a.jpg", Descricao: "sala"},
		{URI: "https://cdn/b.jpg"},
	}, resolvePhotos(fotos, []string{"https://cdn/a.jpg", "https://cdn/b.jpg"}))
}
