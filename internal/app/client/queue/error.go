package queue

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateID = errors.New("inspection id already queued")
	ErrNotFound    = errors.New("inspection not found in queue")
	ErrClosed      = errors.New("queue store is closed")
)

// StorageError ошибка локального хранилища
type StorageError struct {
	Op  string
	ID  string
	Err error
}

func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("queue %s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("queue %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op, id string, err error) error {
	return &StorageError{Op: op, ID: id, Err: err}
}
