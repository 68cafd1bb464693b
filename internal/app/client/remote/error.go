package remote

import (
	"errors"
	"fmt"
	"net/http"

	"vistoria/internal/app/client/retry"
	"vistoria/internal/domain/inspection"
)

var (
	ErrEmptyBatch      = errors.New("empty batch")
	ErrMissingResult   = errors.New("server response has no result for inspection")
	ErrPhotoUnreadable = errors.New("photo file cannot be read")
)

// StatusError ответ сервера с неуспешным HTTP статусом
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("сервер вернул статус %d: %s", e.StatusCode, e.Body)
}

// Temporary сообщает, что запрос имеет смысл повторить
func (e *StatusError) Temporary() bool {
	switch {
	case e.StatusCode >= 500:
		return true
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	}
	return false
}

// ItemError ошибка конкретного осмотра из ответа сервера
type ItemError struct {
	InspectionID string
	Code         string
	Message      string
}

func (e *ItemError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("осмотр %s отклонен (%s): %s", e.InspectionID, e.Code, e.Message)
	}
	return fmt.Sprintf("осмотр %s отклонен: %s", e.InspectionID, e.Message)
}

// Temporary ошибки валидации не исправятся повтором
func (e *ItemError) Temporary() bool {
	return e.Code != inspection.CodeValidation
}

// classify помечает неповторяемые ошибки для retry
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *StatusError
	if errors.As(err, &se) && !se.Temporary() {
		return retry.Permanent(err)
	}
	var ie *ItemError
	if errors.As(err, &ie) && !ie.Temporary() {
		return retry.Permanent(err)
	}
	if errors.Is(err, ErrPhotoUnreadable) || errors.Is(err, inspection.ErrInvalid) {
		return retry.Permanent(err)
	}
	return err
}
