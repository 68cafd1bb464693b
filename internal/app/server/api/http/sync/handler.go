package sync

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"vistoria/internal/domain/sync"
)

type Handler struct {
	service      sync.Servicer
	log          *slog.Logger
	middleware   huma.Middlewares
	maxBodyBytes int64
}

// NewHandler; maxBodyBytes ограничивает тело пакета (0 - значение huma по умолчанию)
func NewHandler(service sync.Servicer, log *slog.Logger, middleware huma.Middlewares, maxBodyBytes int64) *Handler {
	return &Handler{
		service:      service,
		log:          log.With(slog.String("component", "sync_handler")),
		middleware:   middleware,
		maxBodyBytes: maxBodyBytes,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.batchSyncOp(), h.batchSync)
	huma.Register(api, h.getStatusOp(), h.getStatus)
}

func (h *Handler) batchSync(ctx context.Context, input *batchSyncInput) (*batchSyncOutput, error) {
	resp, err := h.service.ProcessBatch(ctx, input.Body)
	switch {
	case errors.Is(err, sync.ErrEmptyBatch), errors.Is(err, sync.ErrBatchTooLarge):
		return nil, huma.Error400BadRequest(err.Error())
	case err != nil:
		h.log.Error("batch sync failed", slog.String("error", err.Error()))
		return nil, huma.Error500InternalServerError("internal error, retry later")
	}

	return &batchSyncOutput{Body: *resp}, nil
}

func (h *Handler) getStatus(ctx context.Context, input *getStatusInput) (*getStatusOutput, error) {
	status, err := h.service.GetStatus(ctx, sync.StatusRequest{
		VistoriadorID: input.VistoriadorID,
		EmpresaID:     input.EmpresaID,
		DeviceID:      input.DeviceID,
	})
	if err != nil {
		h.log.Error("get sync status failed", slog.String("error", err.Error()))
		return nil, huma.Error500InternalServerError("internal error, retry later")
	}

	return &getStatusOutput{Body: GetStatusResponse{Success: true, Data: *status}}, nil
}
