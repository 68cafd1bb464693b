package sync

import (
	"context"
	"time"
)

// Commit результат сохранения одного осмотра
type Commit struct {
	CloudID   string
	SyncedAt  time.Time
	PhotoURLs []string
	// Duplicate - осмотр с этим client id уже был сохранен раньше
	Duplicate bool
}

// PhotoResolver переносит фото осмотра в хранилище внутри транзакции.
// undo удаляет записанные объекты, если транзакция не зафиксирована.
type PhotoResolver func(ctx context.Context) (urls []string, undo func(), err error)

// SyncRun запись журнала обработанных пакетов
type SyncRun struct {
	ID            string
	VistoriadorID string
	EmpresaID     string
	Device        *DeviceInfo
	Processed     int
	Failed        int
	Duration      time.Duration
	CreatedAt     time.Time
}

// StatusAggregate агрегаты для статуса синхронизации
type StatusAggregate struct {
	LastSyncAt    *time.Time
	SyncedCount   int
	Processed     int
	Failed        int
	AvgDurationMs float64
	Device        *DeviceInfo
}

// ServiceConfig конфигурация сервиса синхронизации
type ServiceConfig struct {
	Workers        int
	MaxBatch       int
	StatusCacheTTL time.Duration
	// MaxPhotoBytes ограничение на размер одной фотографии после декодирования
	MaxPhotoBytes int
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Workers:        4,
		MaxBatch:       50,
		StatusCacheTTL: 10 * time.Second,
		MaxPhotoBytes:  15 << 20,
	}
}

// Результаты обработки осмотра для метрик
const (
	ResultSuccess   = "success"
	ResultDuplicate = "duplicate"
	ResultError     = "error"
)

// Recorder принимает метрики обработки пакетов
type Recorder interface {
	ItemProcessed(result string)
	BatchProcessed(size int, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ItemProcessed(string)              {}
func (nopRecorder) BatchProcessed(int, time.Duration) {}
