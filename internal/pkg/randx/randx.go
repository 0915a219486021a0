/*
Package randx generates identifiers used by the server.
*/
package randx

import (
	"github.com/google/uuid"
)

// ConnectionID returns a fresh UUID v4 identifying one transport connection.
func ConnectionID() string {
	return uuid.NewString()
}

// MessageID returns a time-ordered UUID v7 for one relayed message, falling back to v4.
func MessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
