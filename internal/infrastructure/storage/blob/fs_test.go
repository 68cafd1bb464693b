package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func newStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir(), "https://photos.example/", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func TestFSStore_PutAndDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	obj, err := s.Put(ctx, "ab/abcdef.jpg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)
	assert.True(t, obj.Created)
	assert.Equal(t, "https://photos.example/ab/abcdef.jpg", obj.URL)

	data, err := os.ReadFile(filepath.Join(s.Root(), "ab", "abcdef.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	again, err := s.Put(ctx, "ab/abcdef.jpg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, obj.URL, again.URL)

	require.NoError(t, s.Delete(ctx, "ab/abcdef.jpg"))
	_, err = os.Stat(filepath.Join(s.Root(), "ab", "abcdef.jpg"))
	assert.True(t, os.IsNotExist(err))

	// повторное удаление не ошибка
	assert.NoError(t, s.Delete(ctx, "ab/abcdef.jpg"))
}

func TestFSStore_RejectsUnsafeKeys(t *testing.T) {
	s := newStore(t)

	for _, key := range []string{"", "../etc/passwd", "/abs.jpg", "a/../../b.jpg", `a\b.jpg`} {
		_, err := s.Put(context.Background(), key, "image/jpeg", []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestFSStore_CancelledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Put(ctx, "ab/x.jpg", "image/jpeg", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFSStore_EmptyRoot(t *testing.T) {
	_, err := NewFSStore("", "", slog.Default())
	assert.Error(t, err)
}
