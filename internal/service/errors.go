package service

import (
	"errors"
	"fmt"

	"github.com/Leganyst/clinic-scheduling/internal/db"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
)

// ConflictError — конфликт с деталями для выбора решения оператором.
// errors.Is(err, ErrConflict) для него истинно.
type ConflictError struct {
	Message  string
	Impacted []ImpactedAppointment
	Booked   []BookedSlot
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Message
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// BatchError — пачка слотов не записалась и после повторов. Вставка
// пропускает дубликаты, поэтому операцию можно просто повторить.
type BatchError struct {
	Batch   int
	Created int64
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("slot batch %d failed after %d slots created: %v", e.Batch, e.Created, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// storeErr переводит ошибки репозиториев в ошибки сервиса.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case db.IsNotFound(err):
		return notFound(what)
	case db.IsDuplicate(err):
		return conflict("%s already exists", what)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
