package relay

import (
	"github.com/rs/zerolog/log"

	"github.com/auralabs/voicelink/internal/core"
)

// Roster is the registry view the engine needs: peer lookup and
// best-effort delivery. Implemented by app.Registry.
type Roster interface {
	PeersOf(id core.ConnID) []core.ConnID
	ForEachOpen(fn func(id core.ConnID, t core.Transport))
	Send(id core.ConnID, f core.Frame) error
}

// Result reports one fan-out: how many recipients got the frame and
// which ones a send failed for.
type Result struct {
	Delivered int
	Dropped   []core.ConnID
}

// Engine frames inbound PCM and delivers it per the relay policy.
// Delivery is best-effort: a dead recipient never aborts the loop and
// never surfaces to the sender.
type Engine struct {
	Roster     Roster
	SampleRate int
	Channels   int
}

func NewEngine(roster Roster, sampleRate, channels int) *Engine {
	return &Engine{Roster: roster, SampleRate: sampleRate, Channels: channels}
}

// RelayToPeers delivers the framed buffer to the connections sharing the
// sender's session/room scope.
func (e *Engine) RelayToPeers(from core.ConnID, pcm []byte) Result {
	frame := core.Frame(EncodeWAV(pcm, e.SampleRate, e.Channels))
	res := Result{}
	for _, peer := range e.Roster.PeersOf(from) {
		if err := e.Roster.Send(peer, frame); err != nil {
			log.Debug().Err(err).Str("module", "relay").
				Str("from", string(from)).Str("to", string(peer)).Msg("targeted send dropped")
			res.Dropped = append(res.Dropped, peer)
			continue
		}
		res.Delivered++
	}
	log.Debug().Str("module", "relay").Str("from", string(from)).
		Int("delivered", res.Delivered).Int("dropped", len(res.Dropped)).Msg("targeted fan-out")
	return res
}

// Broadcast delivers the framed buffer to every other open connection.
// Legacy degraded mode: audio leaks across unrelated calls whenever more
// than one conversation is live, so callers gate this behind config.
func (e *Engine) Broadcast(from core.ConnID, pcm []byte) Result {
	frame := core.Frame(EncodeWAV(pcm, e.SampleRate, e.Channels))
	res := Result{}
	e.Roster.ForEachOpen(func(id core.ConnID, t core.Transport) {
		if id == from {
			return
		}
		if err := t.TrySend(frame); err != nil {
			log.Debug().Err(err).Str("module", "relay").
				Str("from", string(from)).Str("to", string(id)).Msg("broadcast send dropped")
			res.Dropped = append(res.Dropped, id)
			return
		}
		res.Delivered++
	})
	log.Debug().Str("module", "relay").Str("from", string(from)).
		Int("delivered", res.Delivered).Int("dropped", len(res.Dropped)).Msg("broadcast fan-out")
	return res
}
