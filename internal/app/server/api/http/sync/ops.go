package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) batchSyncOp() huma.Operation {
	return huma.Operation{
		OperationID:   "sync-batch",
		Method:        http.MethodPost,
		Path:          "/api/sync/batch",
		Summary:       "Пакетная синхронизация осмотров",
		Description:   "Сохраняет пакет осмотров устройства. Ошибки отдельных осмотров возвращаются в data.errors с кодом 200",
		Tags:          []string{"sync"},
		MaxBodyBytes:  h.maxBodyBytes,
		DefaultStatus: http.StatusOK,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) getStatusOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-status",
		Method:      http.MethodGet,
		Path:        "/api/sync/status",
		Summary:     "Статус синхронизации",
		Description: "Агрегированный статус синхронизации инспектора",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
