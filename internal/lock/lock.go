package lock

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrLockNotAcquired = errors.New("slot lock not acquired")

// Locker guards critical sections per slot. It narrows the window for
// concurrent bookings; the conditional status update stays the source of truth.
type Locker interface {
	WithSlotLock(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error
}
