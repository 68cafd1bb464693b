package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"

	"vistoria/internal/app/client/batch"
	"vistoria/internal/app/client/queue"
	"vistoria/internal/app/client/retry"
	"vistoria/internal/domain/inspection"
)

var ErrSyncInProgress = errors.New("синхронизация уже выполняется")

// State состояние прохода синхронизации
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Uploader отправляет один осмотр на сервер
type Uploader interface {
	Upload(ctx context.Context, vistoriadorID, empresaID string, rec *inspection.Inspection) (*inspection.SyncReceipt, error)
}

// pendingReporter необязательный интерфейс Uploader-а: размер очереди уходит на сервер
type pendingReporter interface {
	ReportPending(n int)
}

// ProgressFunc получает человекочитаемые сообщения о ходе синхронизации
type ProgressFunc func(message string)

// AlertFunc канал пользовательских уведомлений (showAlerts)
type AlertFunc func(title, message string)

// NoRetries значение Options.MaxRetries для прохода без повторов
const NoRetries = -1

// Options параметры одного прохода.
// Нулевые BatchSize и MaxRetries означают значения из SyncConfig.
type Options struct {
	ShowAlerts bool
	ForceSync  bool
	MaxRetries int
	BatchSize  int
}

// SyncConfig конфигурация синхронизации
type SyncConfig struct {
	BatchSize      int
	Retry          retry.Policy
	RequestTimeout time.Duration
	// MinInterval - проход без ForceSync пропускается, если предыдущий закончился раньше
	MinInterval time.Duration
	Interval    time.Duration
}

// DefaultSyncConfig значения по умолчанию
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		BatchSize:      batch.DefaultSize,
		Retry:          retry.DefaultPolicy(),
		RequestTimeout: 20 * time.Second,
		MinInterval:    10 * time.Second,
		Interval:       time.Minute,
	}
}

// SyncResult результат прохода
type SyncResult struct {
	Success   bool          `json:"success"`
	Synced    int           `json:"synced"`
	Failed    int           `json:"failed"`
	Errors    []string      `json:"errors"`
	Skipped   bool          `json:"skipped,omitempty"`
	Duration  time.Duration `json:"duration"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
}

// SyncStatus снимок состояния очереди; вычисляется заново при каждом вызове
type SyncStatus struct {
	PendingCount int        `json:"pendingCount"`
	ErrorCount   int        `json:"errorCount"`
	SyncedCount  int        `json:"syncedCount"`
	LastSyncAt   *time.Time `json:"lastSyncAt,omitempty"`
	HasErrors    bool       `json:"hasErrors"`
	IsOnline     bool       `json:"isOnline"`
	State        State      `json:"state"`
}

// SyncService управляет синхронизацией очереди осмотров с сервером.
// Одновременно выполняется не более одного прохода.
type SyncService struct {
	store    queue.Store
	uploader Uploader
	log      *slog.Logger
	config   SyncConfig
	alerts   AlertFunc
	stats    *StatsStore
	now      func() time.Time
	sleep    retry.SleepFunc

	mu            sync.Mutex
	state         State
	lastCompleted time.Time
	online        atomic.Bool
}

type ServiceOption func(*SyncService)

// WithAlerts задает канал уведомлений для Options.ShowAlerts
func WithAlerts(alerts AlertFunc) ServiceOption {
	return func(s *SyncService) { s.alerts = alerts }
}

func WithStats(stats *StatsStore) ServiceOption {
	return func(s *SyncService) { s.stats = stats }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *SyncService) { s.now = now }
}

// WithRetrySleep подменяет ожидание между попытками
func WithRetrySleep(sleep retry.SleepFunc) ServiceOption {
	return func(s *SyncService) { s.sleep = sleep }
}

// NewSyncService создает новый сервис синхронизации
func NewSyncService(store queue.Store, uploader Uploader, config SyncConfig, log *slog.Logger, opts ...ServiceOption) *SyncService {
	if config.BatchSize <= 0 {
		config.BatchSize = batch.DefaultSize
	}
	s := &SyncService{
		store:    store,
		uploader: uploader,
		log:      log.With(slog.String("component", "sync")),
		config:   config,
		now:      time.Now,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stats == nil {
		s.stats, _ = NewStatsStore("")
	}
	return s
}

// DefaultOptions параметры прохода из конфигурации
func (s *SyncService) DefaultOptions() Options {
	return Options{
		MaxRetries: s.config.Retry.MaxRetries,
		BatchSize:  s.config.BatchSize,
	}
}

type passKind int

const (
	passPending passKind = iota
	passFailed
)

// AutoSync отправляет все осмотры pending и error.
// Ошибки отдельных осмотров попадают в SyncResult.Errors; error возвращается
// только если проход не удалось выполнить.
func (s *SyncService) AutoSync(ctx context.Context, vistoriadorID, empresaID string, opts Options, onProgress ProgressFunc) (*SyncResult, error) {
	return s.run(ctx, passPending, vistoriadorID, empresaID, opts, onProgress)
}

// RetryFailedInspections то же, что AutoSync, но только для осмотров со статусом error
func (s *SyncService) RetryFailedInspections(ctx context.Context, vistoriadorID, empresaID string, onProgress ProgressFunc, opts Options) (*SyncResult, error) {
	return s.run(ctx, passFailed, vistoriadorID, empresaID, opts, onProgress)
}

func (s *SyncService) run(ctx context.Context, kind passKind, vistoriadorID, empresaID string, opts Options, onProgress ProgressFunc) (*SyncResult, error) {
	progress := safeProgress(onProgress, s.log)

	lastCompleted, ok := s.begin()
	if !ok {
		progress("Синхронизация уже выполняется, запуск пропущен")
		return nil, ErrSyncInProgress
	}

	result := &SyncResult{
		StartTime: s.now(),
		Errors:    []string{},
	}

	state := StateFailed
	defer func() {
		s.finish(state, result)
	}()

	if kind == passPending && !opts.ForceSync && s.config.MinInterval > 0 &&
		!lastCompleted.IsZero() && result.StartTime.Sub(lastCompleted) < s.config.MinInterval {
		s.log.Debug("sync skipped, ran recently", slog.Time("last_completed", lastCompleted))
		progress("Синхронизация недавно выполнялась, пропуск")
		result.Success = true
		result.Skipped = true
		state = StateCompleted
		return result, nil
	}

	items, err := s.collect(ctx, kind, result)
	if err != nil {
		s.log.Error("failed to read queue", slog.String("error", err.Error()))
		progress(fmt.Sprintf("Ошибка чтения очереди: %v", err))
		result.Errors = append(result.Errors, err.Error())
		return result, fmt.Errorf("read queue: %w", err)
	}

	if len(items) == 0 {
		progress("Нет осмотров для синхронизации")
		result.Success = true
		state = StateCompleted
		return result, nil
	}

	if r, ok := s.uploader.(pendingReporter); ok {
		r.ReportPending(len(items))
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.config.BatchSize
	}
	policy := s.config.Retry
	switch {
	case opts.MaxRetries < 0:
		policy.MaxRetries = 0
	case opts.MaxRetries > 0:
		policy.MaxRetries = opts.MaxRetries
	}
	retryOpts := []retry.Option{}
	if s.sleep != nil {
		retryOpts = append(retryOpts, retry.WithSleep(s.sleep))
	}
	retrier := retry.New(policy, s.log, retryOpts...)

	s.log.Info("sync started",
		slog.Int("pending", len(items)),
		slog.Int("batch_size", batchSize),
		slog.Int("max_retries", policy.MaxRetries),
	)
	progress(fmt.Sprintf("Синхронизация %d осмотров", len(items)))

	summary := batch.Run(ctx, items, batch.Options{
		Size: batchSize,
		OnBatchStart: func(n, total, size int) {
			progress(fmt.Sprintf("Пакет %d/%d: %d осмотров", n, total, size))
		},
	}, func(ctx context.Context, rec *inspection.Inspection) error {
		return s.syncItem(ctx, retrier, vistoriadorID, empresaID, rec, progress)
	})

	for _, r := range summary.Results {
		if r.Err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", r.Item.ID, r.Err))
		}
	}
	result.Synced += summary.Succeeded
	result.Failed += summary.Failed
	result.Success = true
	state = StateCompleted

	msg := fmt.Sprintf("Синхронизация завершена: %d отправлено, %d с ошибками", result.Synced, result.Failed)
	progress(msg)
	if opts.ShowAlerts && s.alerts != nil {
		title := "Синхронизация завершена"
		if result.Failed > 0 {
			title = fmt.Sprintf("%d осмотров ожидают отправки", result.Failed)
		}
		s.safeAlert(title, msg)
	}

	return result, nil
}

// collect выбирает осмотры для прохода; для повтора ошибочных
// переводит их обратно в pending
func (s *SyncService) collect(ctx context.Context, kind passKind, result *SyncResult) ([]*inspection.Inspection, error) {
	if kind == passPending {
		return s.store.GetPending(ctx)
	}

	failed, err := s.store.GetFailed(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]*inspection.Inspection, 0, len(failed))
	for _, rec := range failed {
		if err := s.store.ResetToPending(ctx, rec.ID); err != nil {
			s.log.Error("failed to reset inspection", slog.String("id", rec.ID), slog.String("error", err.Error()))
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rec.ID, err))
			continue
		}
		rec.Status = inspection.StatusPending
		items = append(items, rec)
	}
	return items, nil
}

// syncItem отправляет один осмотр с повторами и записывает результат в очередь
func (s *SyncService) syncItem(ctx context.Context, retrier *retry.Retrier, vistoriadorID, empresaID string,
	rec *inspection.Inspection, progress ProgressFunc) error {
	log := s.log.With(slog.String("inspection_id", rec.ID))

	var receipt *inspection.SyncReceipt
	err := inspection.Validate(rec)
	if err == nil {
		receipt, err = retry.Do(ctx, retrier, func(ctx context.Context, attempt int) (*inspection.SyncReceipt, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
			defer cancel()
			return s.uploader.Upload(attemptCtx, vistoriadorID, empresaID, rec)
		})
	}

	if err != nil {
		if markErr := s.store.MarkError(ctx, rec.ID, err.Error()); markErr != nil {
			log.Error("failed to mark inspection as error", slog.String("error", markErr.Error()))
			progress(fmt.Sprintf("Осмотр %s: ошибка сохранения статуса", rec.ID))
			return fmt.Errorf("%w; mark error: %v", err, markErr)
		}
		progress(fmt.Sprintf("Осмотр %s не отправлен: %v", rec.ID, err))
		return err
	}

	if err := s.store.MarkSynced(ctx, rec.ID, receipt.CloudID, receipt.SyncedAt, receipt.PhotoURLs...); err != nil {
		// запись остается pending и уйдет в следующем проходе; сервер вернет тот же cloudId
		log.Error("failed to mark inspection as synced", slog.String("cloud_id", receipt.CloudID), slog.String("error", err.Error()))
		progress(fmt.Sprintf("Осмотр %s отправлен, но статус не сохранен", rec.ID))
		return fmt.Errorf("save sync result: %w", err)
	}

	if receipt.Duplicate {
		log.Debug("inspection was already synced", slog.String("cloud_id", receipt.CloudID))
	}
	progress(fmt.Sprintf("Осмотр %s синхронизирован", rec.ID))
	return nil
}

// begin переводит сервис в Running; false - проход уже идет
func (s *SyncService) begin() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return time.Time{}, false
	}
	s.state = StateRunning
	return s.lastCompleted, true
}

func (s *SyncService) finish(state State, result *SyncResult) {
	result.EndTime = s.now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	if !result.Skipped {
		if err := s.stats.Record(result); err != nil {
			s.log.Warn("failed to save sync stats", slog.String("error", err.Error()))
		}
		s.log.Info("sync finished",
			slog.Bool("success", result.Success),
			slog.Int("synced", result.Synced),
			slog.Int("failed", result.Failed),
			slog.Duration("duration", result.Duration),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if state == StateCompleted && !result.Skipped {
		s.lastCompleted = result.EndTime
	}
}

// GetSyncStatus снимок очереди; сеть не используется
func (s *SyncService) GetSyncStatus(ctx context.Context) (*SyncStatus, error) {
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count queue: %w", err)
	}

	return &SyncStatus{
		PendingCount: counts.Pending,
		ErrorCount:   counts.Error,
		SyncedCount:  counts.Synced,
		LastSyncAt:   counts.LastSyncedAt,
		HasErrors:    counts.Error > 0,
		IsOnline:     s.online.Load(),
		State:        s.State(),
	}, nil
}

// ClearQueue удаляет все записи очереди; недоступно во время прохода
func (s *SyncService) ClearQueue(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return ErrSyncInProgress
	}
	if err := s.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	s.log.Warn("sync queue cleared")
	return nil
}

// SetOnline запоминает состояние сети; true - произошел переход офлайн -> онлайн
func (s *SyncService) SetOnline(online bool) bool {
	was := s.online.Swap(online)
	return online && !was
}

// State текущее состояние
func (s *SyncService) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsSyncing проверяет, идет ли проход
func (s *SyncService) IsSyncing() bool {
	return s.State() == StateRunning
}

// GetStats возвращает статистику синхронизации
func (s *SyncService) GetStats() SyncStats {
	return s.stats.Get()
}

// ResetStats сбрасывает статистику синхронизации
func (s *SyncService) ResetStats() error {
	return s.stats.Reset()
}

// Config текущая конфигурация
func (s *SyncService) Config() SyncConfig {
	return s.config
}

func (s *SyncService) safeAlert(title, message string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("alert callback panicked", slog.Any("panic", r))
		}
	}()
	s.alerts(title, message)
}

// safeProgress оборачивает колбэк: nil допустим, паника не выходит наружу,
// вызовы из параллельных элементов пакета сериализуются
func safeProgress(fn ProgressFunc, log *slog.Logger) ProgressFunc {
	if fn == nil {
		return func(string) {}
	}
	var mu sync.Mutex
	return func(message string) {
		mu.Lock()
		defer mu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				log.Warn("progress callback panicked", slog.Any("panic", r))
			}
		}()
		fn(message)
	}
}
