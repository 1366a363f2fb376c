package domain

type SessionID string

// CallSession is a logical 1:1 call record. It is never linked to a
// transport connection; both sides may connect and disconnect freely
// while the session exists.
type CallSession struct {
	ID       SessionID `json:"sessionId"`
	CallerID UserID    `json:"callerId"`
	CalleeID UserID    `json:"calleeId"`
}

// Party reports whether uid is the caller or callee of the session.
func (s CallSession) Party(uid UserID) bool {
	return uid == s.CallerID || uid == s.CalleeID
}
