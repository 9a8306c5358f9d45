package session

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// randomNonce returns the low 64 bits of a random UUID.
func randomNonce() int64 {
	u := uuid.New()
	return int64(binary.BigEndian.Uint64(u[8:]))
}
