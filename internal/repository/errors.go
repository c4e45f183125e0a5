// Package repository implements MySQL persistence for the waiting room
// and the ticketing domain.  This file defines error values shared
// across repositories.  Sentinel values let higher layers such as the
// gate, the allocator and the handlers distinguish failure scenarios
// without inspecting driver-specific errors: not-found conditions map
// to HTTP 404, conflicts to 409 and lock timeouts to 503.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrUserNotFound is returned when a referenced user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrQueueNotFound is returned when no queue entry matches the given
// token.
var ErrQueueNotFound = errors.New("queue entry not found")

// ErrReservationNotFound is returned when a reservation id is unknown.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrSeatNotFound is returned when a seat id is not part of the
// catalog.
var ErrSeatNotFound = errors.New("seat not found")

// ErrLockTimeout is returned when an exclusive row lock or a named
// advisory lock could not be acquired within its timeout.  The
// attempt is abandoned; callers must not retry under the same lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// SeatAlreadyHeldError reports that a live hold already exists for the
// seat in the given round.  It is produced both by the advisory
// existence pre-check and by the unique-index violation mapping, so a
// losing writer in a true race observes the same error either way.
type SeatAlreadyHeldError struct {
	SeatID uint64
	Round  int64
}

func (e *SeatAlreadyHeldError) Error() string {
	return fmt.Sprintf("seat %d already held in round %d", e.SeatID, e.Round)
}

// IsSeatAlreadyHeld reports whether err wraps a SeatAlreadyHeldError.
func IsSeatAlreadyHeld(err error) bool {
	var target *SeatAlreadyHeldError
	return errors.As(err, &target)
}

// MySQL server error numbers the repositories care about.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
)

// isDuplicateEntry reports whether err is a unique-constraint
// violation.
func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}

// isLockWaitTimeout reports whether err is an InnoDB lock wait
// timeout.
func isLockWaitTimeout(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrLockWaitTimeout
}
