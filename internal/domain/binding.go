package domain

// BindKind says whether a relay binding targets a 1:1 session or a room.
type BindKind int

const (
	BindNone BindKind = iota
	BindSession
	BindRoom
)

// Binding ties a live connection to the session or room it serves, so the
// relay can pick targeted recipients and disconnect can release membership.
type Binding struct {
	Kind      BindKind
	UserID    UserID
	SessionID SessionID
	RoomID    RoomID
}

// ScopeKey is the fan-out grouping key: connections sharing a key are
// relay peers of each other.
func (b Binding) ScopeKey() string {
	switch b.Kind {
	case BindSession:
		return "session:" + string(b.SessionID)
	case BindRoom:
		return "room:" + string(b.RoomID)
	default:
		return ""
	}
}
