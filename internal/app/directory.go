package app

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/auralabs/voicelink/internal/core"
	"github.com/auralabs/voicelink/internal/domain"
)

// roomState is the live participant set for one room. Its mutex
// linearizes membership changes per room; the directory map lock is
// never held while a room mutates.
type roomState struct {
	mu    sync.Mutex
	room  domain.Room
	parts map[domain.UserID]struct{}
	gone  bool
}

func (rs *roomState) snapshot() core.RoomSnapshot {
	out := make([]string, 0, len(rs.parts))
	for uid := range rs.parts {
		out = append(out, string(uid))
	}
	sort.Strings(out)
	return core.RoomSnapshot{
		ID:           rs.room.ID,
		Name:         rs.room.Name,
		Participants: out,
		Count:        len(out),
	}
}

// Directory is the in-memory store of 1:1 call sessions and rooms.
// All state is process-lifetime only.
type Directory struct {
	sessMu   sync.RWMutex
	sessions map[domain.SessionID]domain.CallSession

	roomMu sync.RWMutex
	rooms  map[domain.RoomID]*roomState
}

func NewDirectory() *Directory {
	return &Directory{
		sessions: make(map[domain.SessionID]domain.CallSession),
		rooms:    make(map[domain.RoomID]*roomState),
	}
}

func (d *Directory) CreateSession(caller, callee domain.UserID) domain.SessionID {
	d.sessMu.Lock()
	defer d.sessMu.Unlock()
	var id domain.SessionID
	for {
		id = domain.SessionID(uuid.NewString())
		if _, ok := d.sessions[id]; !ok {
			break
		}
	}
	d.sessions[id] = domain.CallSession{ID: id, CallerID: caller, CalleeID: callee}
	log.Info().Str("module", "app.directory").Str("session", string(id)).
		Str("caller", string(caller)).Str("callee", string(callee)).Msg("session created")
	return id
}

// EndSession removes the record. Ending an unknown or already-ended
// session is a no-op.
func (d *Directory) EndSession(id domain.SessionID) {
	d.sessMu.Lock()
	defer d.sessMu.Unlock()
	if _, ok := d.sessions[id]; !ok {
		return
	}
	delete(d.sessions, id)
	log.Info().Str("module", "app.directory").Str("session", string(id)).Msg("session ended")
}

func (d *Directory) GetSession(id domain.SessionID) (domain.CallSession, bool) {
	d.sessMu.RLock()
	defer d.sessMu.RUnlock()
	s, ok := d.sessions[id]
	return s, ok
}

func (d *Directory) CreateRoom(creator domain.UserID, name domain.RoomName) domain.RoomID {
	d.roomMu.Lock()
	defer d.roomMu.Unlock()
	var id domain.RoomID
	for {
		id = domain.RoomID(uuid.NewString())
		if _, ok := d.rooms[id]; !ok {
			break
		}
	}
	d.rooms[id] = &roomState{
		room:  domain.Room{ID: id, Name: name},
		parts: map[domain.UserID]struct{}{creator: {}},
	}
	log.Info().Str("module", "app.directory").Str("room", string(id)).
		Str("name", string(name)).Str("creator", string(creator)).Msg("room created")
	return id
}

// JoinRoom adds the user to the room. Joining twice is idempotent.
// Returns false if the room does not exist.
func (d *Directory) JoinRoom(user domain.UserID, id domain.RoomID) bool {
	d.roomMu.RLock()
	rs, ok := d.rooms[id]
	d.roomMu.RUnlock()
	if !ok {
		return false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.gone {
		return false
	}
	rs.parts[user] = struct{}{}
	log.Info().Str("module", "app.directory").Str("room", string(id)).Str("user", string(user)).Msg("joined room")
	return true
}

// LeaveRoom removes the user. When the last participant leaves, the room
// is deleted in the same operation and false is returned; the gone flag
// makes the emptiness check linearizable against concurrent joins.
// Removing a non-member still reports the post-state.
func (d *Directory) LeaveRoom(user domain.UserID, id domain.RoomID) bool {
	d.roomMu.RLock()
	rs, ok := d.rooms[id]
	d.roomMu.RUnlock()
	if !ok {
		return false
	}
	rs.mu.Lock()
	if rs.gone {
		rs.mu.Unlock()
		return false
	}
	delete(rs.parts, user)
	if len(rs.parts) == 0 {
		rs.gone = true
		rs.mu.Unlock()
		d.roomMu.Lock()
		delete(d.rooms, id)
		d.roomMu.Unlock()
		log.Info().Str("module", "app.directory").Str("room", string(id)).Msg("room deleted, last participant left")
		return false
	}
	rs.mu.Unlock()
	log.Info().Str("module", "app.directory").Str("room", string(id)).Str("user", string(user)).Msg("left room")
	return true
}

func (d *Directory) GetRoom(id domain.RoomID) (core.RoomSnapshot, bool) {
	d.roomMu.RLock()
	rs, ok := d.rooms[id]
	d.roomMu.RUnlock()
	if !ok {
		return core.RoomSnapshot{}, false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.gone {
		return core.RoomSnapshot{}, false
	}
	return rs.snapshot(), true
}

// IsParticipant reports whether the user is currently in the room.
func (d *Directory) IsParticipant(user domain.UserID, id domain.RoomID) bool {
	d.roomMu.RLock()
	rs, ok := d.rooms[id]
	d.roomMu.RUnlock()
	if !ok {
		return false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.gone {
		return false
	}
	_, in := rs.parts[user]
	return in
}

// ListRooms returns an unordered snapshot of all rooms.
func (d *Directory) ListRooms() []core.RoomSnapshot {
	d.roomMu.RLock()
	states := make([]*roomState, 0, len(d.rooms))
	for _, rs := range d.rooms {
		states = append(states, rs)
	}
	d.roomMu.RUnlock()

	out := make([]core.RoomSnapshot, 0, len(states))
	for _, rs := range states {
		rs.mu.Lock()
		if !rs.gone {
			out = append(out, rs.snapshot())
		}
		rs.mu.Unlock()
	}
	return out
}

func (d *Directory) RoomCount() int {
	d.roomMu.RLock()
	defer d.roomMu.RUnlock()
	return len(d.rooms)
}
