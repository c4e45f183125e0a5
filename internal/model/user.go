package model

import "time"

// User is the identity collaborator referenced by queue entries and
// reservations.  Accounts are created and authenticated by an external
// auth service; this application only reads them.
//
// Fields:
//
//	ID        – primary key identifier of the user.
//	Email     – unique email address.
//	Name      – display name shown in the round ranking.
//	CreatedAt – timestamp of creation.
type User struct {
	ID        uint64    // users.id
	Email     string    // users.email
	Name      string    // users.name
	CreatedAt time.Time // users.created_at
}
