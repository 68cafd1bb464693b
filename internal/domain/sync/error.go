package sync

import (
	"errors"

	"vistoria/internal/domain/inspection"
)

var (
	ErrEmptyBatch    = errors.New("batch is empty")
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
	ErrOwnerMismatch = errors.New("inspection owner does not match batch")
	ErrInvalidPhoto  = errors.New("invalid photo")
	ErrClientIDTaken = errors.New("client id belongs to another owner")
)

// ClientIDTaken ошибка повторной отправки чужого осмотра: id уже сохранен
// для другого инспектора или компании
func ClientIDTaken(clientID string) error {
	return &inspection.DomainError{
		Err:     ErrClientIDTaken,
		Message: "inspection id " + clientID + " is already used by another owner",
		Code:    inspection.CodeValidation,
	}
}
