// Package blob - файловое хранилище фотографий осмотров
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slog"

	"vistoria/internal/domain/sync"
)

var ErrInvalidKey = errors.New("invalid object key")

// FSStore хранит объекты в каталоге; ключи адресуются содержимым,
// поэтому существующий объект не перезаписывается
type FSStore struct {
	root      string
	publicURL string
	log       *slog.Logger
}

func NewFSStore(root, publicURL string, log *slog.Logger) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("photos dir is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create photos dir: %w", err)
	}
	return &FSStore{
		root:      root,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log.With(slog.String("component", "blob_store")),
	}, nil
}

// Root каталог хранилища
func (s *FSStore) Root() string {
	return s.root
}

func (s *FSStore) Put(ctx context.Context, key, _ string, data []byte) (sync.Object, error) {
	path, err := s.path(key)
	if err != nil {
		return sync.Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return sync.Object{}, err
	}

	obj := sync.Object{Key: key, URL: s.URL(key)}
	if _, err := os.Stat(path); err == nil {
		return obj, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return sync.Object{}, fmt.Errorf("create object dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return sync.Object{}, fmt.Errorf("write object %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return sync.Object{}, fmt.Errorf("write object %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return sync.Object{}, fmt.Errorf("sync object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return sync.Object{}, fmt.Errorf("write object %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return sync.Object{}, fmt.Errorf("write object %s: %w", key, err)
	}

	s.log.Debug("photo stored", slog.String("key", key), slog.Int("bytes", len(data)))
	obj.Created = true
	return obj, nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// URL публичный адрес объекта
func (s *FSStore) URL(key string) string {
	return s.publicURL + "/" + key
}

func (s *FSStore) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}
