package pos

import (
	"sync"

	"cafe-pos-service/internal/domain"
)

// Terminal is the counter state of one session. Its ledger is only touched
// through Do, which serialises concurrent requests of the same session.
type Terminal struct {
	mu     sync.Mutex
	ledger *Ledger
}

// Do runs fn with exclusive access to the session's ledger.
func (t *Terminal) Do(fn func(l *Ledger)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.ledger)
}

// Registry keeps one Terminal per live session. Nothing is persisted: a
// restart drops every cart.
type Registry struct {
	mu        sync.Mutex
	terminals map[string]*Terminal
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{terminals: make(map[string]*Terminal)}
}

// Terminal returns the terminal for sessionID, creating it on first use.
func (r *Registry) Terminal(sessionID string) *Terminal {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.terminals[sessionID]
	if !ok {
		t = &Terminal{ledger: NewLedger()}
		r.terminals[sessionID] = t
	}
	return t
}

// Drop forgets the terminal of sessionID and its cart.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.terminals, sessionID)
	r.mu.Unlock()
}

// Len is the number of live terminals.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.terminals)
}

// OnSessionChange drops the cart of a session that signed out. It matches
// the callback shape of identity.Provider.SubscribeSessionChanges.
func (r *Registry) OnSessionChange(session *domain.Session, signedIn bool) {
	if session == nil || signedIn {
		return
	}
	r.Drop(session.ID)
}
