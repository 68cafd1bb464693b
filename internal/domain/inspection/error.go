package inspection

import "errors"

var (
	ErrNotFound          = errors.New("inspection not found")
	ErrInvalid           = errors.New("invalid inspection")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadySynced     = errors.New("inspection already synced")
)

// Коды ошибок, которые передаются клиенту в ответе синхронизации
const (
	CodeValidation    = "validation"
	CodeAlreadySynced = "already_synced"
	CodeNotFound      = "not_found"
	CodeInternal      = "internal"
)

type DomainError struct {
	Err     error
	Message string
	Code    string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// CodeOf возвращает код доменной ошибки или CodeInternal
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) && de.Code != "" {
		return de.Code
	}
	return CodeInternal
}
