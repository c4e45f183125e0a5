package utils // package utils provides small helpers shared across layers

import (
	"crypto/rand" // secure random bytes for payment session keys
	"encoding/hex"

	"github.com/google/uuid" // random UUIDs for queue tokens
)

// NewQueueToken returns the opaque token handed to a client when it
// joins the waiting room.  The token is a random UUID: unguessable,
// unique without coordination, and carrying no information about the
// user's position.
func NewQueueToken() string {
	return uuid.NewString()
}

// NewSessionKey returns a random hex string identifying a payment
// session.  32 random bytes give 64 hex characters.
func NewSessionKey() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(err)
	}
	return hex.EncodeToString(buf)
}
