package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cinex/internal/favorites"
	"github.com/desertthunder/cinex/internal/guard"
	"github.com/desertthunder/cinex/internal/models"
)

// moviesFetchedMsg carries one genre tab's movies.
type moviesFetchedMsg struct {
	ticket guard.Ticket
	genre  string
	movies []models.Movie
	err    error
}

// detailFetchedMsg carries a movie and its recommendations. A recommendations failure leaves recs empty.
type detailFetchedMsg struct {
	ticket  guard.Ticket
	details *models.MovieDetails
	recs    []models.Movie
	err     error
}

// authCheckedMsg resolves the favorites guard.
type authCheckedMsg struct {
	ticket        guard.Ticket
	authenticated bool
}

type favoritesLoadedMsg struct {
	ticket  guard.Ticket
	entries []models.FavoriteEntry
	err     error
}

type favoriteToggledMsg struct {
	movieID int
	title   string
	added   bool
	err     error
}

type loginResultMsg struct {
	username string
	err      error
}

func (m *Model) fetchMovies() tea.Cmd {
	ticket := m.browseSeq.Next()
	genre := models.GenreTabs[m.tab]
	m.browseLoading = true
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		movies, err := m.movies.ByGenre(m.ctx, genre)
		return moviesFetchedMsg{ticket: ticket, genre: genre, movies: movies, err: err}
	})
}

func (m *Model) fetchDetail(id int) tea.Cmd {
	ticket := m.detailSeq.Next()
	m.detailID = id
	m.detailLoading = true
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		details, err := m.movies.Movie(m.ctx, id)
		if err != nil {
			return detailFetchedMsg{ticket: ticket, err: err}
		}
		recs, err := m.movies.Recommendations(m.ctx, id)
		if err != nil {
			m.logger.Warn("failed to load recommendations", "movie_id", id, "error", err)
			recs = nil
		}
		return detailFetchedMsg{ticket: ticket, details: details, recs: recs}
	})
}

func (m *Model) checkAuth() tea.Cmd {
	ticket := m.favSeq.Next()
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return authCheckedMsg{ticket: ticket, authenticated: m.session.IsAuthenticated()}
	})
}

// loadFavorites reads the store, reloading it first when forced or not yet loaded.
func (m *Model) loadFavorites(force bool) tea.Cmd {
	ticket := m.favSeq.Next()
	m.favLoading = true
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		var err error
		if force || m.favorites.State() != favorites.Loaded {
			err = m.favorites.Refresh(m.ctx)
		}
		return favoritesLoadedMsg{ticket: ticket, entries: m.favorites.Entries(), err: err}
	})
}

func (m *Model) toggleFavorite(movieID int, title string) tea.Cmd {
	return func() tea.Msg {
		added, err := m.favorites.Toggle(m.ctx, movieID)
		return favoriteToggledMsg{movieID: movieID, title: title, added: added, err: err}
	}
}

func (m *Model) submitLogin() tea.Cmd {
	username, password := m.username.Value(), m.password.Value()
	m.submitting = true
	return func() tea.Msg {
		return loginResultMsg{username: username, err: m.session.Login(m.ctx, username, password)}
	}
}
