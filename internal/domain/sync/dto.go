package sync

import (
	"time"

	"vistoria/internal/domain/inspection"
)

// DTO (Data Transfer Objects) для API синхронизации

// BatchSyncRequest пакет осмотров от устройства
type BatchSyncRequest struct {
	PendingInspections []InspectionPayload `json:"pendingInspections" minItems:"1" doc:"Inspections to persist, keyed by client id"`
	VistoriadorID      string              `json:"vistoriadorId" minLength:"1" example:"vist-42"`
	EmpresaID          string              `json:"empresaId" minLength:"1" example:"emp-7"`
	DeviceInfo         *DeviceInfo         `json:"deviceInfo,omitempty"`
}

// InspectionPayload осмотр в формате передачи
type InspectionPayload struct {
	ID            string            `json:"id" minLength:"1" doc:"Stable client-generated id, used as idempotency key"`
	EmpresaID     string            `json:"empresaId,omitempty" doc:"Defaults to the batch empresaId"`
	VistoriadorID string            `json:"vistoriadorId,omitempty" doc:"Defaults to the batch vistoriadorId"`
	ImovelID      string            `json:"imovelId"`
	Tipo          inspection.Tipo   `json:"tipo" example:"entrada"`
	Fotos         []string          `json:"fotos" doc:"Photo data URIs or already remote URLs"`
	Checklist     map[string]string `json:"checklist,omitempty"`
	Observacoes   string            `json:"observacoes,omitempty"`
	CreatedAt     time.Time         `json:"createdAt" format:"date-time"`
	Status        inspection.Status `json:"status,omitempty" example:"pending"`
}

// BatchSyncResponse ответ на пакет: HTTP 200 даже при ошибках отдельных осмотров
type BatchSyncResponse struct {
	Success bool          `json:"success"`
	Data    BatchSyncData `json:"data"`
	Error   string        `json:"error,omitempty"`
}

type BatchSyncData struct {
	SyncResults []ItemResult `json:"syncResults"`
	Errors      []ItemError  `json:"errors"`
	DurationMs  int64        `json:"durationMs"`
}

// ItemResult успешно сохраненный осмотр
type ItemResult struct {
	LocalID   string    `json:"localId"`
	CloudID   string    `json:"cloudId"`
	Status    string    `json:"status" example:"success"`
	SyncedAt  time.Time `json:"syncedAt" format:"date-time"`
	PhotoURLs []string  `json:"photoUrls,omitempty"`
	Duplicate bool      `json:"duplicate,omitempty" doc:"Inspection was already synced earlier"`
}

// ItemError ошибка одного осмотра
type ItemError struct {
	InspectionID string `json:"inspectionId"`
	Error        string `json:"error"`
	Code         string `json:"code,omitempty" example:"validation"`
}

// DeviceInfo сведения об устройстве, присылаемые с пакетом
type DeviceInfo struct {
	DeviceID     string `json:"deviceId"`
	DeviceName   string `json:"deviceName,omitempty"`
	Platform     string `json:"platform,omitempty"`
	AppVersion   string `json:"appVersion,omitempty"`
	PendingCount int    `json:"pendingCount"`
}

// StatusRequest параметры запроса статуса
type StatusRequest struct {
	VistoriadorID string
	EmpresaID     string
	DeviceID      string
}

// StatusResponse агрегированный статус синхронизации на сервере
type StatusResponse struct {
	LastSyncTimestamp *time.Time  `json:"lastSyncTimestamp,omitempty" format:"date-time"`
	PendingCount      int         `json:"pendingCount"`
	SyncedCount       int         `json:"syncedCount"`
	ErrorCount        int         `json:"errorCount"`
	SyncSuccessRate   float64     `json:"syncSuccessRate" doc:"Share of items committed across all batches, 0..1"`
	AverageSyncTimeMs float64     `json:"averageSyncTimeMs"`
	DeviceInfo        *DeviceInfo `json:"deviceInfo,omitempty"`
}

// StatusSuccess значение ItemResult.Status
const StatusSuccess = "success"

// ToPayload переводит локальную запись в формат передачи; fotos - уже
// подготовленные URI (data: или https:)
func ToPayload(rec *inspection.Inspection, fotos []string) InspectionPayload {
	checklist := rec.Checklist
	if len(checklist) == 0 {
		checklist = nil
	}
	if fotos == nil {
		fotos = []string{}
	}
	return InspectionPayload{
		ID:            rec.ID,
		EmpresaID:     rec.EmpresaID,
		VistoriadorID: rec.VistoriadorID,
		ImovelID:      rec.ImovelID,
		Tipo:          rec.Tipo,
		Fotos:         fotos,
		Checklist:     checklist,
		Observacoes:   rec.Observacoes,
		CreatedAt:     rec.CreatedAt,
		Status:        rec.Status,
	}
}

// ToInspection переводит payload в доменную модель
func (p InspectionPayload) ToInspection() *inspection.Inspection {
	fotos := make([]inspection.Photo, 0, len(p.Fotos))
	for _, uri := range p.Fotos {
		fotos = append(fotos, inspection.Photo{URI: uri})
	}
	return &inspection.Inspection{
		ID:            p.ID,
		EmpresaID:     p.EmpresaID,
		VistoriadorID: p.VistoriadorID,
		ImovelID:      p.ImovelID,
		Tipo:          p.Tipo,
		Fotos:         fotos,
		Checklist:     p.Checklist,
		Observacoes:   p.Observacoes,
		CreatedAt:     p.CreatedAt,
		Status:        p.Status,
	}
}
