package retry

import "errors"

// PermanentError помечает ошибку, которую нет смысла повторять
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent оборачивает err как неповторяемую
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent проверяет наличие метки в цепочке ошибок
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
