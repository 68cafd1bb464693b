package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"vistoria/internal/app/client/config"
	"vistoria/internal/app/client/queue"
	"vistoria/internal/app/client/remote"
	"vistoria/internal/app/client/retry"
	"vistoria/internal/domain/inspection"
	"vistoria/internal/domain/sync"
)

// App связывает очередь, HTTP клиент и сервис синхронизации
type App struct {
	config   *config.Config
	log      *slog.Logger
	store    queue.Store
	remote   *remote.Client
	sync     *SyncService
	monitor  *Monitor
	deviceID string

	ctx    context.Context
	cancel context.CancelFunc
	wg     gosync.WaitGroup

	mu       gosync.RWMutex
	progress ProgressFunc
	alerts   AlertFunc
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	deviceID, err := loadOrCreateDeviceID(cfg.DeviceIDPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка идентификатора устройства: %w", err)
	}

	store, err := queue.NewSQLiteStore(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия очереди: %w", err)
	}

	stats, err := NewStatsStore(cfg.StatsPath)
	if err != nil {
		log.Warn("Не удалось загрузить статистику синхронизации", "error", err)
		stats = &StatsStore{path: cfg.StatsPath}
	}

	rc := remote.NewClient(cfg, deviceID, log)
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		config:   cfg,
		log:      log,
		store:    store,
		remote:   rc,
		monitor:  NewMonitor(rc, cfg.Sync.ProbeInterval, cfg.Sync.RequestTimeout, log),
		deviceID: deviceID,
		ctx:      ctx,
		cancel:   cancel,
	}
	app.sync = NewSyncService(store, rc, syncConfig(cfg.Sync), log,
		WithStats(stats),
		WithAlerts(app.alert),
	)

	return app, nil
}

func syncConfig(c config.Sync) SyncConfig {
	return SyncConfig{
		BatchSize: c.BatchSize,
		Retry: retry.Policy{
			MaxRetries:   c.MaxRetries,
			InitialDelay: c.InitialDelay,
			MaxDelay:     c.MaxDelay,
			Factor:       c.BackoffFactor,
		},
		RequestTimeout: c.RequestTimeout,
		MinInterval:    c.MinInterval,
		Interval:       c.Interval,
	}
}

// SetProgressHandler подписка UI на сообщения о ходе синхронизации
func (a *App) SetProgressHandler(fn ProgressFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.progress = fn
}

// SetAlertHandler подписка UI на уведомления (Options.ShowAlerts)
func (a *App) SetAlertHandler(fn AlertFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = fn
}

func (a *App) progressHandler() ProgressFunc {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.progress
}

func (a *App) alert(title, message string) {
	a.mu.RLock()
	fn := a.alerts
	a.mu.RUnlock()
	if fn != nil {
		fn(title, message)
	}
}

// CreateInspectionRequest данные нового осмотра
type CreateInspectionRequest struct {
	ImovelID    string
	Tipo        inspection.Tipo
	Fotos       []inspection.Photo
	Checklist   map[string]string
	Observacoes string
}

// CreateInspection создает осмотр офлайн и ставит его в очередь
func (a *App) CreateInspection(ctx context.Context, req CreateInspectionRequest) (*inspection.Inspection, error) {
	if a.config.VistoriadorID == "" || a.config.EmpresaID == "" {
		return nil, fmt.Errorf("не заданы VISTORIADOR_ID и EMPRESA_ID")
	}

	rec := inspection.NewInspection(a.config.EmpresaID, a.config.VistoriadorID, req.ImovelID, req.Tipo)
	if req.Fotos != nil {
		rec.Fotos = req.Fotos
	}
	if req.Checklist != nil {
		rec.Checklist = req.Checklist
	}
	rec.Observacoes = req.Observacoes

	if err := inspection.Validate(rec); err != nil {
		return nil, err
	}
	if err := a.store.Enqueue(ctx, rec); err != nil {
		return nil, err
	}

	a.log.Info("inspection queued", slog.String("id", rec.ID), slog.String("tipo", string(rec.Tipo)))
	return rec, nil
}

// ListInspections записи очереди с фильтром по статусу
func (a *App) ListInspections(ctx context.Context, statuses ...inspection.Status) ([]*inspection.Inspection, error) {
	return a.store.List(ctx, statuses...)
}

// GetInspection одна запись очереди
func (a *App) GetInspection(ctx context.Context, id string) (*inspection.Inspection, error) {
	return a.store.Get(ctx, id)
}

// DefaultOptions параметры прохода из конфигурации
func (a *App) DefaultOptions() Options {
	return a.sync.DefaultOptions()
}

// Sync выполняет проход синхронизации и ждет результата
func (a *App) Sync(ctx context.Context, opts Options, onProgress ProgressFunc) (*SyncResult, error) {
	return a.sync.AutoSync(ctx, a.config.VistoriadorID, a.config.EmpresaID, opts, onProgress)
}

// RetryFailed повторяет только осмотры со статусом error
func (a *App) RetryFailed(ctx context.Context, opts Options, onProgress ProgressFunc) (*SyncResult, error) {
	return a.sync.RetryFailedInspections(ctx, a.config.VistoriadorID, a.config.EmpresaID, onProgress, opts)
}

// TriggerSync запускает проход в фоне; результат приходит через progress
func (a *App) TriggerSync(opts Options) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if _, err := a.Sync(a.ctx, opts, a.progressHandler()); err != nil && !errors.Is(err, ErrSyncInProgress) {
			a.log.Error("background sync failed", slog.String("error", err.Error()))
		}
	}()
}

// GetStatus локальный снимок состояния очереди
func (a *App) GetStatus(ctx context.Context) (*SyncStatus, error) {
	return a.sync.GetSyncStatus(ctx)
}

// Probe проверяет связь с сервером и возвращает снимок с актуальным isOnline
func (a *App) Probe(ctx context.Context) (*SyncStatus, error) {
	if err := a.CheckConnection(ctx); err != nil {
		a.log.Debug("server unreachable", slog.String("error", err.Error()))
	}
	return a.GetStatus(ctx)
}

// GetServerStatus статус синхронизации с точки зрения сервера
func (a *App) GetServerStatus(ctx context.Context) (*sync.StatusResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Sync.RequestTimeout)
	defer cancel()
	return a.remote.Status(ctx, a.config.VistoriadorID, a.config.EmpresaID)
}

// ClearQueue удаляет все данные очереди (явное действие пользователя)
func (a *App) ClearQueue(ctx context.Context) error {
	return a.sync.ClearQueue(ctx)
}

// CheckConnection проверяет доступность сервера
func (a *App) CheckConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.config.Sync.RequestTimeout)
	defer cancel()

	err := a.remote.HealthCheck(ctx)
	a.sync.SetOnline(err == nil)
	return err
}

// Stats статистика проходов
func (a *App) Stats() SyncStats {
	return a.sync.GetStats()
}

// ResetStats сбрасывает статистику синхронизации
func (a *App) ResetStats() error {
	return a.sync.ResetStats()
}

// Config конфигурация клиента
func (a *App) Config() *config.Config {
	return a.config
}

// DeviceID идентификатор устройства
func (a *App) DeviceID() string {
	return a.deviceID
}

// Run запускает автоматическую синхронизацию: по таймеру и при появлении сети.
// Блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interval := a.config.Sync.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	a.log.Info("Запуск автоматической синхронизации", "interval", interval)

	reconnected := make(chan struct{}, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.monitor.Run(ctx, func(online bool) {
			if a.sync.SetOnline(online) {
				select {
				case reconnected <- struct{}{}:
				default:
				}
			}
		})
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("Автоматическая синхронизация остановлена")
			return nil
		case <-reconnected:
			a.log.Info("connection restored, starting sync")
			opts := a.sync.DefaultOptions()
			opts.ForceSync = true
			a.runBackground(ctx, opts)
		case <-ticker.C:
			status, err := a.sync.GetSyncStatus(ctx)
			if err == nil && !status.IsOnline {
				a.log.Debug("offline, periodic sync skipped")
				continue
			}
			a.runBackground(ctx, a.sync.DefaultOptions())
		}
	}
}

func (a *App) runBackground(ctx context.Context, opts Options) {
	_, err := a.Sync(ctx, opts, a.progressHandler())
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInProgress):
		a.log.Debug("sync already running, trigger ignored")
	default:
		a.log.Error("Ошибка автоматической синхронизации", "error", err)
	}
}

// Shutdown ждет фоновые проходы и закрывает очередь
func (a *App) Shutdown() {
	a.log.Info("Завершение работы приложения...")
	a.cancel()
	a.wg.Wait()
	a.remote.Close()
	if err := a.store.Close(); err != nil {
		a.log.Error("Ошибка закрытия очереди", "error", err)
	}
}

// loadOrCreateDeviceID читает идентификатор устройства или создает новый
func loadOrCreateDeviceID(path string) (string, error) {
	if path == "" {
		return uuid.NewString(), nil
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", err
	}
	return id, nil
}
