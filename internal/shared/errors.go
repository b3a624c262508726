package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates caller supplied data violates a precondition.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientStock indicates a requested quantity exceeds stock on hand.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrFormat indicates a malformed or incomplete import document.
	ErrFormat = errors.New("invalid document format")
	// ErrStorage indicates the underlying store failed.
	ErrStorage = errors.New("storage failure")
)

// StorageError reports a store failure for an operation. Partial is set when
// the store may hold a partial write (the outcome of a commit is unknown).
type StorageError struct {
	Op      string
	Partial bool
	Err     error
}

func (e *StorageError) Error() string {
	if e.Partial {
		return fmt.Sprintf("%s: %s (write may have partially occurred): %v", e.Op, ErrStorage, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrStorage, e.Err)
}

// Unwrap exposes both ErrStorage and the driver error.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// WrapStorage converts err into a StorageError unless it already carries a
// ledger error, in which case it is returned untouched.
func WrapStorage(op string, err error, partial bool) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) {
		return err
	}
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return err
	}
	return &StorageError{Op: op, Partial: partial, Err: err}
}

// IsDomainError reports whether err is one of the recoverable ledger errors.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrFormat)
}

// NothingChanged reports whether a failed operation is known to have left
// the store untouched.
func NothingChanged(err error) bool {
	if err == nil {
		return true
	}
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return !storageErr.Partial
	}
	return true
}

// Validationf builds an ErrValidation with detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
