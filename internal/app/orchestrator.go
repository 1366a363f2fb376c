package app

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/auralabs/voicelink/internal/app/relay"
	"github.com/auralabs/voicelink/internal/core"
	"github.com/auralabs/voicelink/internal/domain"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRoomNotFound    = errors.New("room not found")
	ErrNotParty        = errors.New("user is not a party of the scope")
)

// Orchestrator wires inbound transport events to the registry, the
// directory and the relay engine. One instance serves all connections.
type Orchestrator struct {
	Registry  *Registry
	Directory *Directory
	Relay     *relay.Engine
	Policy    Policy

	// AllowUnbound enables the legacy broadcast fallback for
	// connections without a session/room binding.
	AllowUnbound bool
}

// OnConnect registers the transport under a fresh connection id.
func (o *Orchestrator) OnConnect(id core.ConnID, t core.Transport) error {
	return o.Registry.Register(id, t)
}

// Bind attaches a connection to the session or room it serves. The scope
// must exist and the user must be a party of it.
func (o *Orchestrator) Bind(id core.ConnID, b domain.Binding) error {
	switch b.Kind {
	case domain.BindSession:
		sess, ok := o.Directory.GetSession(b.SessionID)
		if !ok {
			return ErrSessionNotFound
		}
		if !sess.Party(b.UserID) {
			return ErrNotParty
		}
	case domain.BindRoom:
		if !o.Directory.IsParticipant(b.UserID, b.RoomID) {
			if _, ok := o.Directory.GetRoom(b.RoomID); !ok {
				return ErrRoomNotFound
			}
			return ErrNotParty
		}
	default:
		return ErrNotParty
	}
	if !o.Registry.Bind(id, b) {
		return ErrConnectionNotFound
	}
	return nil
}

// OnFrame runs one relay cycle for an inbound audio buffer. Bound
// connections relay to their scope peers; unbound ones broadcast only
// when the legacy fallback is enabled.
func (o *Orchestrator) OnFrame(id core.ConnID, pcm []byte) {
	var res relay.Result
	if _, ok := o.Registry.BindingOf(id); ok {
		res = o.Relay.RelayToPeers(id, pcm)
	} else if o.AllowUnbound {
		res = o.Relay.Broadcast(id, pcm)
	} else {
		log.Warn().Str("module", "app.orchestrator").Str("conn", string(id)).Msg("frame from unbound connection dropped")
		return
	}

	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(slow) {
		case KickMember:
			o.kick(slow)
		case DropFrame, NoAction:
		}
	}
}

// kick releases the slow connection's room membership and binding so it
// stops receiving fan-out.
func (o *Orchestrator) kick(id core.ConnID) {
	b, ok := o.Registry.BindingOf(id)
	if !ok {
		return
	}
	if b.Kind == domain.BindRoom {
		o.Directory.LeaveRoom(b.UserID, b.RoomID)
	}
	o.Registry.ClearBinding(id)
	log.Info().Str("module", "app.orchestrator").Str("conn", string(id)).Msg("kicked slow connection from scope")
}

// OnDisconnect tears down one connection: membership released, handle
// unregistered. Safe to call more than once per connection id.
func (o *Orchestrator) OnDisconnect(id core.ConnID) {
	if b, ok := o.Registry.BindingOf(id); ok && b.Kind == domain.BindRoom {
		o.Directory.LeaveRoom(b.UserID, b.RoomID)
	}
	o.Registry.Unregister(id)
	log.Info().Str("module", "app.orchestrator").Str("conn", string(id)).Msg("connection closed")
}
