package inspection

import (
	"fmt"
	"strings"
)

const (
	MaxPhotos       = 50
	MaxObservacoes  = 4000
	MaxChecklistLen = 200
)

// Validate проверяет обязательные поля осмотра перед отправкой
func Validate(i *Inspection) error {
	if i == nil {
		return invalid("inspection is nil")
	}
	if strings.TrimSpace(i.ID) == "" {
		return invalid("id is required")
	}
	if strings.TrimSpace(i.EmpresaID) == "" {
		return invalid("empresaId is required")
	}
	if strings.TrimSpace(i.VistoriadorID) == "" {
		return invalid("vistoriadorId is required")
	}
	if strings.TrimSpace(i.ImovelID) == "" {
		return invalid("imovelId is required")
	}
	if !i.Tipo.IsValid() {
		return invalid(fmt.Sprintf("tipo %q must be one of entrada, saida, manutencao", i.Tipo))
	}
	if i.CreatedAt.IsZero() {
		return invalid("createdAt is required")
	}
	if len(i.Fotos) > MaxPhotos {
		return invalid(fmt.Sprintf("too many photos: %d > %d", len(i.Fotos), MaxPhotos))
	}
	for n, f := range i.Fotos {
		if strings.TrimSpace(f.URI) == "" {
			return invalid(fmt.Sprintf("foto %d has empty uri", n))
		}
	}
	if len(i.Observacoes) > MaxObservacoes {
		return invalid(fmt.Sprintf("observacoes exceeds %d characters", MaxObservacoes))
	}
	if len(i.Checklist) > MaxChecklistLen {
		return invalid(fmt.Sprintf("checklist exceeds %d items", MaxChecklistLen))
	}
	return nil
}

func invalid(msg string) error {
	return &DomainError{
		Err:     ErrInvalid,
		Message: msg,
		Code:    CodeValidation,
	}
}
