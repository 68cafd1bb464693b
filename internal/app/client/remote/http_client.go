// Package remote - HTTP клиент эндпоинта синхронизации
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"

	"vistoria/internal/app/client/config"
	"vistoria/internal/app/client/retry"
	"vistoria/internal/domain/inspection"
	"vistoria/internal/domain/sync"
)

const (
	batchPath  = "/api/sync/batch"
	statusPath = "/api/sync/status"
	healthPath = "/api/v1/health"
)

// Client отправляет осмотры на сервер. Таймаут одной попытки задает
// вызывающий через контекст.
type Client struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	userAgent string
	photos    *PhotoEncoder
	device    sync.DeviceInfo
	pending   atomic.Int64
}

func NewClient(cfg *config.Config, deviceID string, log *slog.Logger) *Client {
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &Client{
		client:    client,
		log:       log.With(slog.String("component", "remote")),
		baseURL:   cfg.BaseURL(),
		userAgent: "Vistoria-Client/1.0",
		photos:    NewPhotoEncoder(cfg.PhotosDir),
		device: sync.DeviceInfo{
			DeviceID:   deviceID,
			DeviceName: cfg.DeviceName,
			Platform:   "cli",
			AppVersion: "1.0.0",
		},
	}
}

// ReportPending запоминает размер очереди, который уйдет с ближайшим пакетом
func (c *Client) ReportPending(n int) {
	c.pending.Store(int64(n))
}

// Close закрывает простаивающие соединения
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// HealthCheck проверяет доступность сервера
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, healthPath, nil)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, nil)
}

// Upload отправляет один осмотр и возвращает подтверждение сервера.
// Повторная отправка уже сохраненного осмотра возвращает тот же cloudId.
func (c *Client) Upload(ctx context.Context, vistoriadorID, empresaID string, rec *inspection.Inspection) (*inspection.SyncReceipt, error) {
	fotos, err := c.photos.Encode(rec.Fotos)
	if err != nil {
		return nil, classify(fmt.Errorf("prepare photos for %s: %w", rec.ID, err))
	}

	resp, err := c.SendBatch(ctx, sync.BatchSyncRequest{
		PendingInspections: []sync.InspectionPayload{sync.ToPayload(rec, fotos)},
		VistoriadorID:      vistoriadorID,
		EmpresaID:          empresaID,
	})
	if err != nil {
		return nil, err
	}

	return receiptFor(rec.ID, resp)
}

// SendBatch отправляет пакет целиком. Ошибки отдельных осмотров
// возвращаются в теле ответа, а не как error.
func (c *Client) SendBatch(ctx context.Context, req sync.BatchSyncRequest) (*sync.BatchSyncResponse, error) {
	if len(req.PendingInspections) == 0 {
		return nil, ErrEmptyBatch
	}
	if req.DeviceInfo == nil {
		device := c.device
		device.PendingCount = int(c.pending.Load())
		req.DeviceInfo = &device
	}

	resp, err := c.doRequest(ctx, http.MethodPost, batchPath, req)
	if err != nil {
		return nil, err
	}

	var out sync.BatchSyncResponse
	if err := c.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	if !out.Success && out.Error != "" {
		return nil, fmt.Errorf("batch rejected: %s", out.Error)
	}

	return &out, nil
}

// Status запрашивает агрегированный статус на сервере
func (c *Client) Status(ctx context.Context, vistoriadorID, empresaID string) (*sync.StatusResponse, error) {
	q := url.Values{}
	q.Set("vistoriadorId", vistoriadorID)
	q.Set("empresaId", empresaID)
	if c.device.DeviceID != "" {
		q.Set("deviceId", c.device.DeviceID)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, statusPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var out sync.StatusResponse
	if err := c.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func receiptFor(id string, resp *sync.BatchSyncResponse) (*inspection.SyncReceipt, error) {
	for _, r := range resp.Data.SyncResults {
		if r.LocalID != id {
			continue
		}
		return &inspection.SyncReceipt{
			CloudID:   r.CloudID,
			SyncedAt:  r.SyncedAt,
			PhotoURLs: r.PhotoURLs,
			Duplicate: r.Duplicate,
		}, nil
	}

	for _, e := range resp.Data.Errors {
		if e.InspectionID != id {
			continue
		}
		return nil, classify(&ItemError{InspectionID: id, Code: e.Code, Message: e.Error})
	}

	return nil, fmt.Errorf("%w %s", ErrMissingResult, id)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, retry.Permanent(fmt.Errorf("ошибка маршалинга тела запроса: %w", err))
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("ошибка создания запроса: %w", err))
	}

	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("сервер недоступен: %w", err)
	}

	c.log.Debug("request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	return resp, nil
}

func (c *Client) parseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(&StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))})
	}

	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("ошибка разбора ответа: %w", err)
	}
	return nil
}
