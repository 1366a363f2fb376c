// Package domain contains entity without logic, just meta-data
package domain

type (
	RoomName string
	RoomID   string
)

const MaxRoomNameLen = 64

// Room is the control-plane record of a multi-party call room.
// Participant membership lives in the directory, not here.
type Room struct {
	ID   RoomID   `json:"id"`
	Name RoomName `json:"name"`
}
