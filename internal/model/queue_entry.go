package model

import "time"

// QueueStatus is the lifecycle state of a queue entry.  WAITING entries
// form the FIFO line, ACTIVE entries are admitted to the sale, and
// EXPIRED entries have consumed their admission by completing a payment.
type QueueStatus string

const (
	QueueWaiting QueueStatus = "WAITING"
	QueueActive  QueueStatus = "ACTIVE"
	QueueExpired QueueStatus = "EXPIRED"
)

// CanTransitionTo reports whether the status may move to target.
// WAITING may become ACTIVE or EXPIRED, ACTIVE may only become
// EXPIRED, and EXPIRED is terminal.
func (s QueueStatus) CanTransitionTo(target QueueStatus) bool {
	switch s {
	case QueueWaiting:
		return target == QueueActive || target == QueueExpired
	case QueueActive:
		return target == QueueExpired
	default:
		return false
	}
}

// IsLive reports whether the entry still occupies a place in the
// waiting room (either in line or admitted).
func (s QueueStatus) IsLive() bool {
	return s == QueueWaiting || s == QueueActive
}

// QueueEntry represents one admission ticket in the waiting room.  A
// user owns at most one live entry at a time.  Position is a snapshot
// taken when the entry was created; the current position of a WAITING
// entry is always recomputed at read time from entered_at ordering.
//
// Fields:
//
//	ID          – primary key identifier.
//	UserID      – user who owns the entry.
//	Token       – opaque token returned to the client (unique).
//	Status      – WAITING, ACTIVE or EXPIRED.
//	Position    – position assigned at creation (0 for ACTIVE).
//	EnteredAt   – when the user joined the line.
//	ActivatedAt – when the entry became ACTIVE (nil while waiting).
//	UpdatedAt   – last modification timestamp.
type QueueEntry struct {
	ID          uint64      // queue_entries.id
	UserID      uint64      // queue_entries.user_id
	Token       string      // queue_entries.token
	Status      QueueStatus // queue_entries.status
	Position    int         // queue_entries.position
	EnteredAt   time.Time   // queue_entries.entered_at
	ActivatedAt *time.Time  // queue_entries.activated_at (nullable)
	UpdatedAt   time.Time   // queue_entries.updated_at
}

// IsWaiting reports whether the entry is still in line.
func (e *QueueEntry) IsWaiting() bool { return e.Status == QueueWaiting }

// IsActive reports whether the entry has been admitted.
func (e *QueueEntry) IsActive() bool { return e.Status == QueueActive }
