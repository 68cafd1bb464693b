package inspection

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Inspection - запись осмотра (vistoria), единица синхронизации
type Inspection struct {
	ID            string            `json:"id"`
	EmpresaID     string            `json:"empresaId"`
	VistoriadorID string            `json:"vistoriadorId"`
	ImovelID      string            `json:"imovelId"`
	Tipo          Tipo              `json:"tipo"`
	Fotos         []Photo           `json:"fotos"`
	Checklist     map[string]string `json:"checklist,omitempty"`
	Observacoes   string            `json:"observacoes,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	Status        Status            `json:"status"`
	CloudID       string            `json:"cloudId,omitempty"`
	SyncedAt      *time.Time        `json:"syncedAt,omitempty"`
	LastError     string            `json:"lastError,omitempty"`
}

// Photo ссылка на фото: локальный путь до синхронизации, URL после
type Photo struct {
	URI       string `json:"uri"`
	Descricao string `json:"descricao,omitempty"`
}

// IsRemote сообщает, что фото уже перенесено в облако
func (p Photo) IsRemote() bool {
	return strings.HasPrefix(p.URI, "http://") || strings.HasPrefix(p.URI, "https://")
}

// SyncReceipt подтверждение сервера о сохранении осмотра
type SyncReceipt struct {
	CloudID   string    `json:"cloudId"`
	SyncedAt  time.Time `json:"syncedAt"`
	PhotoURLs []string  `json:"photoUrls,omitempty"`
	Duplicate bool      `json:"duplicate,omitempty"`
}

// NewInspection создает новый осмотр в статусе pending с новым id
func NewInspection(empresaID, vistoriadorID, imovelID string, tipo Tipo) *Inspection {
	return &Inspection{
		ID:            uuid.NewString(),
		EmpresaID:     empresaID,
		VistoriadorID: vistoriadorID,
		ImovelID:      imovelID,
		Tipo:          tipo,
		Fotos:         []Photo{},
		Checklist:     map[string]string{},
		CreatedAt:     time.Now().UTC(),
		Status:        StatusPending,
	}
}

// Clone возвращает глубокую копию записи
func (i *Inspection) Clone() *Inspection {
	if i == nil {
		return nil
	}
	c := *i
	c.Fotos = append([]Photo(nil), i.Fotos...)
	if i.Checklist != nil {
		c.Checklist = make(map[string]string, len(i.Checklist))
		for k, v := range i.Checklist {
			c.Checklist[k] = v
		}
	}
	if i.SyncedAt != nil {
		t := *i.SyncedAt
		c.SyncedAt = &t
	}
	return &c
}

// PhotoURIs возвращает URI фото в порядке добавления
func (i *Inspection) PhotoURIs() []string {
	uris := make([]string, 0, len(i.Fotos))
	for _, f := range i.Fotos {
		uris = append(uris, f.URI)
	}
	return uris
}
