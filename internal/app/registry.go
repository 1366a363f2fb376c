package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/auralabs/voicelink/internal/core"
	"github.com/auralabs/voicelink/internal/domain"
)

var (
	ErrDuplicateConnection = errors.New("duplicate connection id")
	ErrConnectionNotFound  = errors.New("connection not found")
)

type connEntry struct {
	Transport core.Transport
	Binding   domain.Binding
}

// Registry maps connection ids to live transport handles. It is the only
// component allowed to send on or enumerate those handles.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[core.ConnID]*connEntry)}
}

func (r *Registry) Register(id core.ConnID, t core.Transport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateConnection, id)
	}
	r.conns[id] = &connEntry{Transport: t}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("connection registered")
	return nil
}

// Unregister removes the connection. Calling it twice is fine; cleanup
// paths race on close and both must succeed.
func (r *Registry) Unregister(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return
	}
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("connection unregistered")
}

func (r *Registry) Send(id core.ConnID, f core.Frame) error {
	r.mu.RLock()
	e, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	return e.Transport.TrySend(f)
}

// ForEachOpen applies fn to a snapshot of the registered connections.
// fn runs outside the registry lock, so a slow transport never blocks
// registration or other fan-outs.
func (r *Registry) ForEachOpen(fn func(id core.ConnID, t core.Transport)) {
	r.mu.RLock()
	type snap struct {
		id core.ConnID
		t  core.Transport
	}
	out := make([]snap, 0, len(r.conns))
	for id, e := range r.conns {
		out = append(out, snap{id: id, t: e.Transport})
	}
	r.mu.RUnlock()

	for _, s := range out {
		fn(s.id, s.t)
	}
}

func (r *Registry) Bind(id core.ConnID, b domain.Binding) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	e.Binding = b
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("scope", b.ScopeKey()).Msg("connection bound")
	return true
}

func (r *Registry) BindingOf(id core.ConnID) (domain.Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok || e.Binding.Kind == domain.BindNone {
		return domain.Binding{}, false
	}
	return e.Binding, true
}

func (r *Registry) ClearBinding(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok {
		e.Binding = domain.Binding{}
	}
}

// PeersOf returns the other connections bound to the same session or room
// as id. Unbound connections have no peers.
func (r *Registry) PeersOf(id core.ConnID) []core.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return nil
	}
	key := e.Binding.ScopeKey()
	if key == "" {
		return nil
	}
	out := make([]core.ConnID, 0, len(r.conns))
	for other, oe := range r.conns {
		if other == id {
			continue
		}
		if oe.Binding.ScopeKey() == key {
			out = append(out, other)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
