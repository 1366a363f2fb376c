package core

import (
	"errors"

	"github.com/auralabs/voicelink/internal/domain"
)

// Frame is a raw binary payload (e.g., audio frame).
type Frame []byte

// ConnID identifies one open duplex connection. It is generated on
// handshake and unrelated to call session ids.
type ConnID string

// ErrConnectionClosed is returned by a Transport once Close has been called.
var ErrConnectionClosed = errors.New("connection closed")

// Transport is the outbound half of a duplex connection.
// Owned by the adapter; the adapter must Close() it.
type Transport interface {
	TrySend(Frame) error
	Close()
}

// RoomSnapshot is a read-only view for APIs. Participants are copied,
// never the live set.
type RoomSnapshot struct {
	ID           domain.RoomID   `json:"id"`
	Name         domain.RoomName `json:"name"`
	Participants []string        `json:"participants"`
	Count        int             `json:"count"`
}
