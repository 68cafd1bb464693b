package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"vistoria/internal/domain/inspection"
)

// Servicer интерфейс сервиса синхронизации
type Servicer interface {
	// ProcessBatch сохраняет пакет осмотров; ошибки отдельных осмотров
	// возвращаются в ответе, error - только для пакета целиком
	ProcessBatch(ctx context.Context, req BatchSyncRequest) (*BatchSyncResponse, error)

	// GetStatus возвращает агрегированный статус синхронизации инспектора
	GetStatus(ctx context.Context, req StatusRequest) (*StatusResponse, error)
}

// Service реализация сервиса синхронизации
type Service struct {
	repo    Repository
	blobs   BlobStore
	log     *slog.Logger
	config  ServiceConfig
	status  *cache.Cache
	metrics Recorder
	now     func() time.Time
}

type ServiceOption func(*Service)

func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) { s.metrics = r }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService создает новый сервис синхронизации
func NewService(repo Repository, blobs BlobStore, log *slog.Logger, config ServiceConfig, opts ...ServiceOption) *Service {
	d := DefaultServiceConfig()
	if config.Workers <= 0 {
		config.Workers = d.Workers
	}
	if config.MaxBatch <= 0 {
		config.MaxBatch = d.MaxBatch
	}
	if config.MaxPhotoBytes <= 0 {
		config.MaxPhotoBytes = d.MaxPhotoBytes
	}

	s := &Service{
		repo:    repo,
		blobs:   blobs,
		log:     log.With(slog.String("component", "sync_service")),
		config:  config,
		status:  cache.New(config.StatusCacheTTL, 0),
		metrics: nopRecorder{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessBatch обрабатывает пакет осмотров устройства
func (s *Service) ProcessBatch(ctx context.Context, req BatchSyncRequest) (*BatchSyncResponse, error) {
	n := len(req.PendingInspections)
	if n == 0 {
		return nil, ErrEmptyBatch
	}
	if n > s.config.MaxBatch {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, n, s.config.MaxBatch)
	}

	start := s.now()
	log := s.log.With(
		slog.String("vistoriador_id", req.VistoriadorID),
		slog.String("empresa_id", req.EmpresaID),
	)

	results := make([]*ItemResult, n)
	failures := make([]*ItemError, n)

	var g errgroup.Group
	g.SetLimit(s.config.Workers)
	for i := range req.PendingInspections {
		payload := req.PendingInspections[i]
		g.Go(func() error {
			results[i], failures[i] = s.processItem(ctx, req, payload)
			return nil
		})
	}
	_ = g.Wait()

	resp := &BatchSyncResponse{
		Success: true,
		Data: BatchSyncData{
			SyncResults: make([]ItemResult, 0, n),
			Errors:      make([]ItemError, 0),
		},
	}
	for i := 0; i < n; i++ {
		if failures[i] != nil {
			resp.Data.Errors = append(resp.Data.Errors, *failures[i])
			continue
		}
		resp.Data.SyncResults = append(resp.Data.SyncResults, *results[i])
	}

	duration := s.now().Sub(start)
	resp.Data.DurationMs = duration.Milliseconds()

	run := &SyncRun{
		ID:            uuid.NewString(),
		VistoriadorID: req.VistoriadorID,
		EmpresaID:     req.EmpresaID,
		Device:        req.DeviceInfo,
		Processed:     len(resp.Data.SyncResults),
		Failed:        len(resp.Data.Errors),
		Duration:      duration,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.RecordRun(ctx, run); err != nil {
		log.Warn("failed to record sync run", slog.String("error", err.Error()))
	}

	s.invalidateStatus(req.VistoriadorID, req.EmpresaID)
	s.metrics.BatchProcessed(n, duration)

	log.Info("batch processed",
		slog.Int("size", n),
		slog.Int("synced", run.Processed),
		slog.Int("failed", run.Failed),
		slog.Duration("duration", duration),
	)

	return resp, nil
}

func (s *Service) processItem(ctx context.Context, req BatchSyncRequest, payload InspectionPayload) (*ItemResult, *ItemError) {
	fail := func(err error) (*ItemResult, *ItemError) {
		s.metrics.ItemProcessed(ResultError)
		code := inspection.CodeOf(err)
		msg := err.Error()
		if code == inspection.CodeInternal {
			s.log.Error("failed to commit inspection",
				slog.String("inspection_id", payload.ID),
				slog.String("error", err.Error()),
			)
			msg = "internal error, retry later"
		}
		return nil, &ItemError{InspectionID: payload.ID, Error: msg, Code: code}
	}

	rec := payload.ToInspection()
	if rec.VistoriadorID == "" {
		rec.VistoriadorID = req.VistoriadorID
	}
	if rec.EmpresaID == "" {
		rec.EmpresaID = req.EmpresaID
	}
	if rec.VistoriadorID != req.VistoriadorID || rec.EmpresaID != req.EmpresaID {
		return fail(&inspection.DomainError{
			Err:     ErrOwnerMismatch,
			Message: "vistoriadorId/empresaId do not match the batch",
			Code:    inspection.CodeValidation,
		})
	}
	if err := inspection.Validate(rec); err != nil {
		return fail(err)
	}

	photos, err := decodePhotos(payload.Fotos, s.config.MaxPhotoBytes)
	if err != nil {
		return fail(err)
	}

	commit, err := s.repo.Commit(ctx, rec, s.resolver(rec.ID, photos))
	if err != nil {
		var de *inspection.DomainError
		if !errors.As(err, &de) {
			err = fmt.Errorf("commit %s: %w", rec.ID, err)
		}
		return fail(err)
	}

	result := ResultSuccess
	if commit.Duplicate {
		result = ResultDuplicate
	}
	s.metrics.ItemProcessed(result)

	return &ItemResult{
		LocalID:   rec.ID,
		CloudID:   commit.CloudID,
		Status:    StatusSuccess,
		SyncedAt:  commit.SyncedAt,
		PhotoURLs: commit.PhotoURLs,
		Duplicate: commit.Duplicate,
	}, nil
}

// GetStatus возвращает статус синхронизации; ответ кэшируется до следующего пакета
func (s *Service) GetStatus(ctx context.Context, req StatusRequest) (*StatusResponse, error) {
	key := statusKey(req.VistoriadorID, req.EmpresaID) + strconv.Quote(req.DeviceID)
	if cached, ok := s.status.Get(key); ok {
		resp := cached.(StatusResponse)
		return &resp, nil
	}

	agg, err := s.repo.GetStatus(ctx, req.VistoriadorID, req.EmpresaID, req.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("get sync status: %w", err)
	}

	resp := StatusResponse{
		LastSyncTimestamp: agg.LastSyncAt,
		SyncedCount:       agg.SyncedCount,
		ErrorCount:        agg.Failed,
		AverageSyncTimeMs: agg.AvgDurationMs,
		DeviceInfo:        agg.Device,
	}
	if total := agg.Processed + agg.Failed; total > 0 {
		resp.SyncSuccessRate = float64(agg.Processed) / float64(total)
	}
	if agg.Device != nil {
		resp.PendingCount = agg.Device.PendingCount
	}

	if s.config.StatusCacheTTL > 0 {
		s.status.SetDefault(key, resp)
	}
	return &resp, nil
}

// statusKey префикс ключа кэша инспектора. Части в кавычках: ключ однозначно
// делится на части при любых символах в id.
func statusKey(vistoriadorID, empresaID string) string {
	return strconv.Quote(empresaID) + strconv.Quote(vistoriadorID)
}

// invalidateStatus сбрасывает кэш статуса инспектора по всем устройствам
func (s *Service) invalidateStatus(vistoriadorID, empresaID string) {
	s.status.DeleteExpired()
	prefix := statusKey(vistoriadorID, empresaID)
	for key := range s.status.Items() {
		if strings.HasPrefix(key, prefix) {
			s.status.Delete(key)
		}
	}
}
