// Package guard gates protected views on the session and discards results that arrive too late.
package guard

import (
	"sync"
	"sync/atomic"
)

// Authenticator reports whether a session is signed in.
type Authenticator interface {
	IsAuthenticated() bool
}

// State is the resolution of a protected view.
type State int

const (
	// Checking means the session has not been resolved yet; no redirect may be issued.
	Checking State = iota
	// Authorized means the protected content may render.
	Authorized
	// Redirecting means the viewer must be sent to the sign-in entry point.
	Redirecting
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Authorized:
		return "authorized"
	case Redirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// Guard tracks the resolution of one protected view.
type Guard struct {
	mu     sync.Mutex
	state  State
	target string
}

// New returns a guard in the Checking state that redirects to target.
func New(target string) *Guard {
	return &Guard{state: Checking, target: target}
}

// Resolve settles the guard once the session is known.
func (g *Guard) Resolve(authenticated bool) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if authenticated {
		g.state = Authorized
	} else {
		g.state = Redirecting
	}
	return g.state
}

// Check resolves the guard against a.
func (g *Guard) Check(a Authenticator) State {
	return g.Resolve(a != nil && a.IsAuthenticated())
}

// Reset returns the guard to Checking, e.g. while the session reloads.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Checking
}

// State returns the current resolution.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Target returns the sign-in entry point to redirect to.
func (g *Guard) Target() string {
	return g.target
}

// Ticket identifies one asynchronous request issued from a [Sequence].
type Ticket uint64

// Sequence hands out tickets so that only the latest request's result is applied.
//
// The zero value is ready to use.
type Sequence struct {
	n atomic.Uint64
}

// Next issues a ticket that supersedes every earlier one.
func (s *Sequence) Next() Ticket {
	return Ticket(s.n.Add(1))
}

// Valid reports whether t is still the latest ticket.
func (s *Sequence) Valid(t Ticket) bool {
	return s.n.Load() == uint64(t)
}

// Invalidate makes every outstanding ticket stale.
func (s *Sequence) Invalidate() {
	s.n.Add(1)
}
