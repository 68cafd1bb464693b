package sync

import (
	"vistoria/internal/domain/sync"
)

type batchSyncInput struct {
	Body sync.BatchSyncRequest
}

type batchSyncOutput struct {
	Body sync.BatchSyncResponse
}

type getStatusInput struct {
	VistoriadorID string `query:"vistoriadorId" required:"true" minLength:"1" doc:"Inspector id"`
	EmpresaID     string `query:"empresaId" required:"true" minLength:"1" doc:"Tenant id"`
	DeviceID      string `query:"deviceId" doc:"Restrict device info to this device"`
}

type getStatusOutput struct {
	Body GetStatusResponse
}

// GetStatusResponse конверт ответа статуса
type GetStatusResponse struct {
	Success bool                `json:"success"`
	Data    sync.StatusResponse `json:"data"`
}
