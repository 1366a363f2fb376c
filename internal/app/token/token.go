// Package token issues short-lived, single-use relay tokens. The control
// plane hands one to an authenticated caller; the transport-upgrade path
// consumes it, closing the unauthenticated media-path gap of the original
// design.
package token

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/auralabs/voicelink/internal/domain"
)

var (
	ErrTokenNotFound = errors.New("relay token not found")
	ErrTokenExpired  = errors.New("relay token expired")
)

// Grant is what a consumed token entitles: one connection bound to one
// session or room scope for one user.
type Grant struct {
	Binding   domain.Binding
	ExpiresAt time.Time
}

type Issuer struct {
	mu     sync.Mutex
	ttl    time.Duration
	grants map[string]Grant
	now    func() time.Time
}

func NewIssuer(ttl time.Duration) *Issuer {
	return &Issuer{
		ttl:    ttl,
		grants: make(map[string]Grant),
		now:    time.Now,
	}
}

// Issue mints a token for the binding. Stale grants are swept here so an
// abandoned token does not live past its TTL plus one Issue call.
func (i *Issuer) Issue(b domain.Binding) (string, time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	for tok, g := range i.grants {
		if now.After(g.ExpiresAt) {
			delete(i.grants, tok)
		}
	}

	tok := uuid.NewString()
	exp := now.Add(i.ttl)
	i.grants[tok] = Grant{Binding: b, ExpiresAt: exp}
	log.Info().Str("module", "app.token").Str("scope", b.ScopeKey()).
		Str("user", string(b.UserID)).Time("expires", exp).Msg("relay token issued")
	return tok, exp
}

// Consume validates and removes the token. A token is good for exactly
// one upgrade.
func (i *Issuer) Consume(tok string) (Grant, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	g, ok := i.grants[tok]
	if !ok {
		return Grant{}, ErrTokenNotFound
	}
	delete(i.grants, tok)
	if i.now().After(g.ExpiresAt) {
		return Grant{}, ErrTokenExpired
	}
	return g, nil
}
