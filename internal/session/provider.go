// Package session tracks the current identity for a request flow and owns
// the one place that observes the transition from anonymous to
// authenticated. Components that need identity receive it explicitly; there
// is no module-level current user.
package session

import (
	"context"
	"sync"
)

// Identity is an authenticated user. The zero value means anonymous.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

func (id Identity) Anonymous() bool { return id.UserID == "" }

// SignInHandler runs when an identity newly appears for a guest session.
// guestKey is the anonymous snapshot key that was active before sign-in.
type SignInHandler func(ctx context.Context, id Identity, guestKey string)

// Provider fires sign-in handlers exactly once per (guest session, user)
// transition. Token refreshes and repeat requests for an already
// authenticated session never reach SignedIn, so they never re-trigger the
// handlers.
type Provider struct {
	mu       sync.Mutex
	handlers []SignInHandler
	seen     map[transition]struct{}
}

type transition struct {
	guestKey string
	userID   string
}

func NewProvider() *Provider {
	return &Provider{seen: make(map[transition]struct{})}
}

// OnSignIn registers a handler for identity transitions. Registration is
// expected at wiring time, before traffic.
func (p *Provider) OnSignIn(h SignInHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

// SignedIn reports that id became active where previously no identity
// existed. Handlers run synchronously so the caller observes their effects
// (the merged cart) before responding. Returns false if this transition was
// already reported.
func (p *Provider) SignedIn(ctx context.Context, id Identity, guestKey string) bool {
	if id.Anonymous() {
		return false
	}

	key := transition{guestKey: guestKey, userID: id.UserID}
	p.mu.Lock()
	if _, dup := p.seen[key]; dup {
		p.mu.Unlock()
		return false
	}
	p.seen[key] = struct{}{}
	handlers := make([]SignInHandler, len(p.handlers))
	copy(handlers, p.handlers)
	p.mu.Unlock()

	for _, h := range handlers {
		h(ctx, id, guestKey)
	}
	return true
}

// Forget drops the transition record for a guest session, e.g. when a merge
// could not complete and must re-run on the next sign-in.
func (p *Provider) Forget(id Identity, guestKey string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.seen, transition{guestKey: guestKey, userID: id.UserID})
}

// Completed drops the transition record once the guest key's snapshot has
// been confirmed removed. The record only exists to suppress duplicate
// triggers while the snapshot could still double-apply; with the snapshot
// gone a re-fired handler is a no-op, so keeping the entry would only grow
// the map for the life of the process.
func (p *Provider) Completed(id Identity, guestKey string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.seen, transition{guestKey: guestKey, userID: id.UserID})
}
