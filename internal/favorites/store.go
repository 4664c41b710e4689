// Package favorites keeps the signed-in user's favorites in memory, in step with the backend.
//
// The collection is never edited locally: every confirmed add or remove is followed by a full
// reload. While signed out the collection is empty and mutations fail without a request.
package favorites

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cinex/internal/guard"
	"github.com/desertthunder/cinex/internal/models"
	"github.com/desertthunder/cinex/internal/services"
	"github.com/desertthunder/cinex/internal/shared"
)

// State is the lifecycle of the collection.
type State int

const (
	Idle State = iota
	Loading
	Loaded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Store is the favorites collection for the current session.
type Store struct {
	api    services.Favorites
	auth   guard.Authenticator
	logger *log.Logger
	seq    guard.Sequence

	mu      sync.RWMutex
	state   State
	loaded  bool
	entries []models.FavoriteEntry
	byMovie map[int]int
}

// NewStore creates an empty, idle store.
func NewStore(api services.Favorites, auth guard.Authenticator) *Store {
	return &Store{
		api:     api,
		auth:    auth,
		logger:  log.New(io.Discard),
		byMovie: make(map[int]int),
	}
}

// SetLogger sets the logger used for load diagnostics.
func (s *Store) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// OnAuthChange follows session transitions: sign-in reloads, sign-out empties.
// Both start from an empty collection, so a failed load never shows an earlier session's entries.
//
// Its signature matches auth.Listener.
func (s *Store) OnAuthChange(ctx context.Context, authenticated bool) {
	s.clear()
	if !authenticated {
		return
	}
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("failed to load favorites after sign-in", "error", err)
	}
}

// Refresh replaces the collection with the backend's.
//
// When signed out it empties the collection without a request. A result is dropped when a newer
// refresh or a sign-out happened while it was in flight.
func (s *Store) Refresh(ctx context.Context) error {
	if !s.auth.IsAuthenticated() {
		s.clear()
		return nil
	}

	s.mu.Lock()
	ticket := s.seq.Next()
	s.state = Loading
	s.mu.Unlock()

	entries, err := s.api.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seq.Valid(ticket) {
		s.logger.Debug("discarding stale favorites result", "ticket", ticket)
		if err != nil {
			return fmt.Errorf("failed to load favorites: %w", err)
		}
		return nil
	}
	if err != nil {
		s.state = s.settled()
		return fmt.Errorf("failed to load favorites: %w", err)
	}
	if !s.auth.IsAuthenticated() {
		s.reset()
		return nil
	}

	s.replace(entries)
	s.loaded = true
	s.state = Loaded
	s.logger.Debug("favorites loaded", "count", len(entries))
	return nil
}

// Add favorites movieID, then reloads.
//
// A failed reload after a confirmed add is logged, not returned.
func (s *Store) Add(ctx context.Context, movieID int) error {
	if !s.auth.IsAuthenticated() {
		return fmt.Errorf("%w: sign in to add favorites", shared.ErrNotAuthenticated)
	}

	if _, err := s.api.Add(ctx, movieID); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("favorite added but reload failed", "movie_id", movieID, "error", err)
	}
	return nil
}

// Remove unfavorites movieID, then reloads.
//
// The request addresses the backend favorite id when known and the movie id otherwise.
func (s *Store) Remove(ctx context.Context, movieID int) error {
	if !s.auth.IsAuthenticated() {
		return fmt.Errorf("%w: sign in to remove favorites", shared.ErrNotAuthenticated)
	}

	key, ok := s.FavoriteID(movieID)
	if !ok {
		key = movieID
	}

	if err := s.api.Remove(ctx, key); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("favorite removed but reload failed", "movie_id", movieID, "error", err)
	}
	return nil
}

// Toggle adds movieID when absent and removes it when present. It reports the new membership.
func (s *Store) Toggle(ctx context.Context, movieID int) (bool, error) {
	if s.IsFavorite(movieID) {
		return false, s.Remove(ctx, movieID)
	}
	return true, s.Add(ctx, movieID)
}

// IsFavorite reports whether movieID is in the collection.
func (s *Store) IsFavorite(movieID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byMovie[movieID]
	return ok
}

// FavoriteID returns the backend key for movieID's favorite.
func (s *Store) FavoriteID(movieID int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byMovie[movieID]
	if !ok {
		return 0, false
	}
	return s.entries[i].Key(), true
}

// Entries returns a copy of the collection in backend order.
func (s *Store) Entries() []models.FavoriteEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FavoriteEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of favorites.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// State returns the lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq.Invalidate()
	s.reset()
}

// reset empties the collection; callers hold mu.
func (s *Store) reset() {
	s.entries = nil
	s.byMovie = make(map[int]int)
	s.loaded = false
	s.state = Idle
}

// replace swaps in entries, dropping duplicate movie ids; callers hold mu.
func (s *Store) replace(entries []models.FavoriteEntry) {
	next := make([]models.FavoriteEntry, 0, len(entries))
	index := make(map[int]int, len(entries))
	for _, e := range entries {
		if _, dup := index[e.MovieID]; dup {
			continue
		}
		index[e.MovieID] = len(next)
		next = append(next, e)
	}
	s.entries = next
	s.byMovie = index
}

func (s *Store) settled() State {
	if s.loaded {
		return Loaded
	}
	return Idle
}
