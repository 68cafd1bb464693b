package sync

import (
	"context"

	"vistoria/internal/domain/inspection"
)

// Repository хранилище синхронизированных осмотров
type Repository interface {
	// Commit сохраняет осмотр идемпотентно по client id. Для нового осмотра
	// вызывает resolve внутри транзакции; осмотр и его фото фиксируются вместе.
	// Для уже сохраненного возвращает прежний cloudId и Duplicate=true, если
	// владелец совпадает, иначе ошибку ClientIDTaken.
	Commit(ctx context.Context, rec *inspection.Inspection, resolve PhotoResolver) (*Commit, error)

	RecordRun(ctx context.Context, run *SyncRun) error

	GetStatus(ctx context.Context, vistoriadorID, empresaID, deviceID string) (*StatusAggregate, error)
}

// Object сохраненный объект хранилища фото
type Object struct {
	Key string
	URL string
	// Created - объект записан этим вызовом, а не существовал ранее
	Created bool
}

// BlobStore хранилище фотографий
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (Object, error)
	Delete(ctx context.Context, key string) error
}
