package app

import (
	"bytes"
	"errors"
	"testing"

	"github.com/auralabs/voicelink/internal/app/relay"
	"github.com/auralabs/voicelink/internal/core"
	"github.com/auralabs/voicelink/internal/domain"
)

func newTestOrchestrator(allowUnbound bool) *Orchestrator {
	reg := NewRegistry()
	return &Orchestrator{
		Registry:     reg,
		Directory:    NewDirectory(),
		Relay:        relay.NewEngine(reg, 48000, 1),
		Policy:       DropPolicy{},
		AllowUnbound: allowUnbound,
	}
}

func bindToRoom(t *testing.T, o *Orchestrator, conn core.ConnID, user domain.UserID, room domain.RoomID) {
	t.Helper()
	if err := o.Bind(conn, domain.Binding{Kind: domain.BindRoom, UserID: user, RoomID: room}); err != nil {
		t.Fatalf("bind %s: %v", conn, err)
	}
}

func TestOnFrameTargeted(t *testing.T) {
	o := newTestOrchestrator(false)

	room := o.Directory.CreateRoom("alice", "Room A")
	o.Directory.JoinRoom("bob", room)

	ta, tb, tc := &stubTransport{}, &stubTransport{}, &stubTransport{}
	_ = o.OnConnect("ca", ta)
	_ = o.OnConnect("cb", tb)
	_ = o.OnConnect("cc", tc) // unrelated connection, stays unbound
	bindToRoom(t, o, "ca", "alice", room)
	bindToRoom(t, o, "cb", "bob", room)

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	o.OnFrame("ca", pcm)

	if len(tb.frames) != 1 {
		t.Fatalf("room peer received %d frames, want 1", len(tb.frames))
	}
	if len(ta.frames) != 0 {
		t.Error("sender received its own frame")
	}
	if len(tc.frames) != 0 {
		t.Error("audio leaked to a connection outside the room")
	}
	if want := relay.EncodeWAV(pcm, 48000, 1); !bytes.Equal(tb.frames[0], want) {
		t.Error("delivered frame is not the WAV-framed payload")
	}
}

func TestOnFrameUnboundDroppedByDefault(t *testing.T) {
	o := newTestOrchestrator(false)

	t1, t2 := &stubTransport{}, &stubTransport{}
	_ = o.OnConnect("c1", t1)
	_ = o.OnConnect("c2", t2)

	o.OnFrame("c1", []byte{0x01})

	if len(t2.frames) != 0 {
		t.Error("unbound frame was relayed despite fallback being disabled")
	}
}

func TestOnFrameBroadcastFallback(t *testing.T) {
	o := newTestOrchestrator(true)

	t1, t2, t3 := &stubTransport{}, &stubTransport{}, &stubTransport{}
	_ = o.OnConnect("c1", t1)
	_ = o.OnConnect("c2", t2)
	_ = o.OnConnect("c3", t3)

	o.OnFrame("c1", []byte{0x01})

	if len(t2.frames) != 1 || len(t3.frames) != 1 {
		t.Error("broadcast fallback did not reach every other connection")
	}
	if len(t1.frames) != 0 {
		t.Error("sender received its own broadcast")
	}
}

func TestBindValidation(t *testing.T) {
	o := newTestOrchestrator(false)
	_ = o.OnConnect("c1", &stubTransport{})

	room := o.Directory.CreateRoom("alice", "Room A")
	sess := o.Directory.CreateSession("alice", "bob")

	tests := []struct {
		name    string
		binding domain.Binding
		wantErr error
	}{
		{
			name:    "unknown session",
			binding: domain.Binding{Kind: domain.BindSession, UserID: "alice", SessionID: "ghost"},
			wantErr: ErrSessionNotFound,
		},
		{
			name:    "session outsider",
			binding: domain.Binding{Kind: domain.BindSession, UserID: "eve", SessionID: sess},
			wantErr: ErrNotParty,
		},
		{
			name:    "unknown room",
			binding: domain.Binding{Kind: domain.BindRoom, UserID: "alice", RoomID: "ghost"},
			wantErr: ErrRoomNotFound,
		},
		{
			name:    "room outsider",
			binding: domain.Binding{Kind: domain.BindRoom, UserID: "eve", RoomID: room},
			wantErr: ErrNotParty,
		},
		{
			name:    "no scope",
			binding: domain.Binding{UserID: "alice"},
			wantErr: ErrNotParty,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := o.Bind("c1", tt.binding); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := o.Bind("c1", domain.Binding{Kind: domain.BindRoom, UserID: "alice", RoomID: room}); err != nil {
		t.Errorf("valid room bind failed: %v", err)
	}
	if err := o.Bind("c1", domain.Binding{Kind: domain.BindSession, UserID: "bob", SessionID: sess}); err != nil {
		t.Errorf("valid session bind failed: %v", err)
	}
}

func TestOnDisconnectReleasesMembership(t *testing.T) {
	o := newTestOrchestrator(false)

	room := o.Directory.CreateRoom("alice", "Room A")
	o.Directory.JoinRoom("bob", room)

	_ = o.OnConnect("ca", &stubTransport{})
	bindToRoom(t, o, "ca", "alice", room)

	o.OnDisconnect("ca")

	if o.Registry.Len() != 0 {
		t.Error("connection still registered after disconnect")
	}
	snap, ok := o.Directory.GetRoom(room)
	if !ok {
		t.Fatal("room vanished while bob remains")
	}
	if snap.Count != 1 || snap.Participants[0] != "bob" {
		t.Errorf("room = %+v, want bob alone", snap)
	}

	o.OnDisconnect("ca") // second close event, must be a no-op
}

func TestOnDisconnectDeletesEmptiedRoom(t *testing.T) {
	o := newTestOrchestrator(false)

	room := o.Directory.CreateRoom("alice", "Room A")
	_ = o.OnConnect("ca", &stubTransport{})
	bindToRoom(t, o, "ca", "alice", room)

	o.OnDisconnect("ca")

	if _, ok := o.Directory.GetRoom(room); ok {
		t.Error("room survived its last participant disconnecting")
	}
}

type fullTransport struct{}

func (fullTransport) TrySend(core.Frame) error { return core.ErrConnectionClosed }
func (fullTransport) Close()                   {}

func TestKickPolicyEvictsSlowRecipient(t *testing.T) {
	o := newTestOrchestrator(false)
	o.Policy = KickPolicy{}

	room := o.Directory.CreateRoom("alice", "Room A")
	o.Directory.JoinRoom("bob", room)

	_ = o.OnConnect("ca", &stubTransport{})
	_ = o.OnConnect("cb", fullTransport{})
	bindToRoom(t, o, "ca", "alice", room)
	bindToRoom(t, o, "cb", "bob", room)

	o.OnFrame("ca", []byte{0x01})

	if _, ok := o.Registry.BindingOf("cb"); ok {
		t.Error("slow recipient still bound after kick")
	}
	snap, _ := o.Directory.GetRoom(room)
	if snap.Count != 1 {
		t.Errorf("room count = %d after kick, want 1", snap.Count)
	}
}
