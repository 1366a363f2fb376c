package relay

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/auralabs/voicelink/internal/core"
)

type fakeTransport struct {
	frames []core.Frame
	fail   bool
}

func (t *fakeTransport) TrySend(f core.Frame) error {
	if t.fail {
		return core.ErrConnectionClosed
	}
	t.frames = append(t.frames, f)
	return nil
}

func (t *fakeTransport) Close() { t.fail = true }

// fakeRoster implements Roster over plain maps: every connection is a
// peer of every other one.
type fakeRoster struct {
	conns map[core.ConnID]*fakeTransport
}

func (r *fakeRoster) PeersOf(id core.ConnID) []core.ConnID {
	out := make([]core.ConnID, 0, len(r.conns))
	for other := range r.conns {
		if other != id {
			out = append(out, other)
		}
	}
	return out
}

func (r *fakeRoster) ForEachOpen(fn func(id core.ConnID, t core.Transport)) {
	for id, t := range r.conns {
		fn(id, t)
	}
}

func (r *fakeRoster) Send(id core.ConnID, f core.Frame) error {
	t, ok := r.conns[id]
	if !ok {
		return errors.New("no such conn")
	}
	return t.TrySend(f)
}

func newFakeRoster(n int) *fakeRoster {
	r := &fakeRoster{conns: make(map[core.ConnID]*fakeTransport)}
	for i := 0; i < n; i++ {
		r.conns[core.ConnID(fmt.Sprintf("conn-%d", i))] = &fakeTransport{}
	}
	return r
}

func TestRelayToPeersFramesAndExcludesSender(t *testing.T) {
	roster := newFakeRoster(3)
	e := NewEngine(roster, 48000, 1)

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	res := e.RelayToPeers("conn-0", pcm)

	if res.Delivered != 2 {
		t.Fatalf("delivered = %d, want 2", res.Delivered)
	}
	if len(roster.conns["conn-0"].frames) != 0 {
		t.Error("sender received its own frame")
	}

	want := EncodeWAV(pcm, 48000, 1)
	for id, tr := range roster.conns {
		if id == "conn-0" {
			continue
		}
		if len(tr.frames) != 1 {
			t.Fatalf("%s received %d frames, want 1", id, len(tr.frames))
		}
		if !bytes.Equal(tr.frames[0], want) {
			t.Errorf("%s received unframed or corrupted payload", id)
		}
	}
}

func TestRelaySurvivesDeadRecipient(t *testing.T) {
	roster := newFakeRoster(5)
	roster.conns["conn-2"].fail = true
	e := NewEngine(roster, 48000, 1)

	res := e.RelayToPeers("conn-0", []byte{0x01, 0x02})

	if res.Delivered != 3 {
		t.Errorf("delivered = %d, want 3 (sender and dead recipient excluded)", res.Delivered)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != "conn-2" {
		t.Errorf("dropped = %v, want [conn-2]", res.Dropped)
	}
	for id, tr := range roster.conns {
		if id == "conn-0" || id == "conn-2" {
			continue
		}
		if len(tr.frames) != 1 {
			t.Errorf("%s received %d frames, want 1", id, len(tr.frames))
		}
	}
}

func TestBroadcastExcludesSenderOnly(t *testing.T) {
	roster := newFakeRoster(4)
	e := NewEngine(roster, 48000, 1)

	res := e.Broadcast("conn-1", []byte{0x0a})

	if res.Delivered != 3 {
		t.Errorf("delivered = %d, want 3", res.Delivered)
	}
	if len(roster.conns["conn-1"].frames) != 0 {
		t.Error("sender received its own broadcast")
	}
}

func TestBroadcastSurvivesDeadRecipient(t *testing.T) {
	roster := newFakeRoster(3)
	roster.conns["conn-1"].fail = true
	e := NewEngine(roster, 48000, 1)

	res := e.Broadcast("conn-0", []byte{0x0a, 0x0b})

	if res.Delivered != 1 {
		t.Errorf("delivered = %d, want 1", res.Delivered)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != "conn-1" {
		t.Errorf("dropped = %v, want [conn-1]", res.Dropped)
	}
}
