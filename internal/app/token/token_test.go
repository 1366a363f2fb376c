package token

import (
	"errors"
	"testing"
	"time"

	"github.com/auralabs/voicelink/internal/domain"
)

func roomBinding() domain.Binding {
	return domain.Binding{Kind: domain.BindRoom, UserID: "alice", RoomID: "r1"}
}

func TestIssueConsume(t *testing.T) {
	i := NewIssuer(30 * time.Second)

	tok, exp := i.Issue(roomBinding())
	if tok == "" {
		t.Fatal("empty token")
	}
	if !exp.After(time.Now()) {
		t.Error("expiry not in the future")
	}

	g, err := i.Consume(tok)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if g.Binding.Kind != domain.BindRoom || g.Binding.RoomID != "r1" || g.Binding.UserID != "alice" {
		t.Errorf("grant binding = %+v", g.Binding)
	}
}

func TestConsumeIsSingleUse(t *testing.T) {
	i := NewIssuer(30 * time.Second)
	tok, _ := i.Issue(roomBinding())

	if _, err := i.Consume(tok); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if _, err := i.Consume(tok); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("second consume err = %v, want ErrTokenNotFound", err)
	}
}

func TestConsumeUnknown(t *testing.T) {
	i := NewIssuer(30 * time.Second)
	if _, err := i.Consume("made-up"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("err = %v, want ErrTokenNotFound", err)
	}
}

func TestConsumeExpired(t *testing.T) {
	i := NewIssuer(30 * time.Second)

	now := time.Now()
	i.now = func() time.Time { return now }
	tok, _ := i.Issue(roomBinding())

	i.now = func() time.Time { return now.Add(31 * time.Second) }
	if _, err := i.Consume(tok); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
	// expired consume still removed it
	if _, err := i.Consume(tok); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("err = %v, want ErrTokenNotFound after removal", err)
	}
}

func TestIssueSweepsStaleGrants(t *testing.T) {
	i := NewIssuer(30 * time.Second)

	now := time.Now()
	i.now = func() time.Time { return now }
	stale, _ := i.Issue(roomBinding())

	i.now = func() time.Time { return now.Add(time.Minute) }
	i.Issue(roomBinding())

	if len(i.grants) != 1 {
		t.Errorf("grants = %d after sweep, want 1", len(i.grants))
	}
	if _, err := i.Consume(stale); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("stale token err = %v, want ErrTokenNotFound", err)
	}
}
