package app

import "github.com/auralabs/voicelink/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what to do with a recipient whose transport rejected a
// frame (full send buffer or closed socket).
type Policy interface {
	OnBackPressure(conn core.ConnID) BackpressureAction
}

// DropPolicy drops the frame for the slow recipient and moves on.
// The default: one slow listener never affects the rest of the call.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.ConnID) BackpressureAction { return DropFrame }

// KickPolicy evicts the slow recipient from its room instead; delivery
// pressure stops immediately.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(core.ConnID) BackpressureAction { return KickMember }
