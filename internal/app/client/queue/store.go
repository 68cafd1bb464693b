// Package queue хранит осмотры, созданные офлайн, до подтверждения сервером.
package queue

import (
	"context"
	"time"

	"vistoria/internal/domain/inspection"
)

// Store локальная очередь осмотров
type Store interface {
	// Enqueue добавляет запись в статусе pending; повторный id - ошибка
	Enqueue(ctx context.Context, rec *inspection.Inspection) error
	// GetPending возвращает записи pending и error в порядке добавления
	GetPending(ctx context.Context) ([]*inspection.Inspection, error)
	// GetFailed возвращает только записи со статусом error
	GetFailed(ctx context.Context) ([]*inspection.Inspection, error)
	Get(ctx context.Context, id string) (*inspection.Inspection, error)
	List(ctx context.Context, statuses ...inspection.Status) ([]*inspection.Inspection, error)
	// MarkSynced идемпотентна: повторный вызов для synced записи ничего не меняет
	MarkSynced(ctx context.Context, id, cloudID string, syncedAt time.Time, photoURLs ...string) error
	MarkError(ctx context.Context, id, message string) error
	// ResetToPending переводит error -> pending перед повторной отправкой
	ResetToPending(ctx context.Context, id string) error
	Counts(ctx context.Context) (Counts, error)
	// ClearAll удаляет все записи; только по явному действию пользователя
	ClearAll(ctx context.Context) error
	Close() error
}

// Counts агрегаты по статусам
type Counts struct {
	Pending      int
	Error        int
	Synced       int
	LastSyncedAt *time.Time
}

// resolvePhotos подставляет URL из ответа сервера вместо локальных путей.
// Сервер возвращает URL для всех фото в исходном порядке; при несовпадении
// количества фото остаются как есть.
func resolvePhotos(fotos []inspection.Photo, urls []string) []inspection.Photo {
	if len(urls) == 0 || len(urls) != len(fotos) {
		return fotos
	}
	resolved := make([]inspection.Photo, len(fotos))
	for i, f := range fotos {
		resolved[i] = inspection.Photo{URI: urls[i], Descricao: f.Descricao}
	}
	return resolved
}
