package services

import (
	"errors"
	"fmt"
)

// StorageError reports a backing store that was unreachable or refused an
// operation. Writes return it; reads log it and fall back to empty data.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// RecordError ties a decode failure to the record it came from.
type RecordError struct {
	Record string
	ID     string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Record, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
