package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/cinex/internal/favorites"
	"github.com/desertthunder/cinex/internal/guard"
	"github.com/desertthunder/cinex/internal/models"
	"github.com/desertthunder/cinex/internal/services"
	"github.com/desertthunder/cinex/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	BrowseView ViewState = iota
	DetailView
	FavoritesView
	LoginView
)

// Session is the part of auth.Session the TUI drives.
type Session interface {
	guard.Authenticator
	Login(ctx context.Context, username, password string) error
	Logout() error
	User() *models.UserSummary
}

// Favorites is the part of favorites.Store the TUI reads and mutates.
type Favorites interface {
	Refresh(ctx context.Context) error
	Toggle(ctx context.Context, movieID int) (bool, error)
	IsFavorite(movieID int) bool
	Entries() []models.FavoriteEntry
	State() favorites.State
}

// Model is the main bubbletea model for the TUI application.
type Model struct {
	ctx       context.Context
	view      ViewState
	movies    services.Movies
	session   Session
	favorites Favorites
	guard     *guard.Guard
	logger    *log.Logger

	width  int
	height int

	tab           int
	browseList    list.Model
	browseSeq     guard.Sequence
	browseLoading bool

	detailID      int
	detail        *models.MovieDetails
	detailFrom    ViewState
	recList       list.Model
	detailSeq     guard.Sequence
	detailLoading bool

	favList    list.Model
	favSeq     guard.Sequence
	favLoading bool

	username   textinput.Model
	password   textinput.Model
	focus      int
	submitting bool
	returnTo   ViewState

	status  string
	failed  bool
	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, movies services.Movies, session Session, favs Favorites) *Model {
	username := textinput.New()
	username.Placeholder = "username"
	username.Prompt = "Username: "
	username.CharLimit = 150

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return &Model{
		ctx:        ctx,
		view:       BrowseView,
		movies:     movies,
		session:    session,
		favorites:  favs,
		guard:      guard.New("login"),
		logger:     log.New(io.Discard),
		browseList: newList(models.AllGenres, nil, 0, 0),
		recList:    newList("Recommended", nil, 0, 0),
		favList:    newList("Favorites", nil, 0, 0),
		username:   username,
		password:   password,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// SetLogger sets the logger used for background failures that are not shown on screen.
func (m *Model) SetLogger(l *log.Logger) {
	if l != nil {
		m.logger = l
	}
}

// ActiveView returns the view currently on screen.
func (m *Model) ActiveView() ViewState {
	return m.view
}

// Init initializes the TUI by fetching the first genre tab.
func (m *Model) Init() tea.Cmd {
	return m.fetchMovies()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.browseList.SetSize(msg.Width-4, msg.Height-10)
		m.favList.SetSize(msg.Width-4, msg.Height-8)
		m.recList.SetSize(msg.Width-4, max(msg.Height/3, 6))
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.forceQuit) {
			return m, tea.Quit
		}
		switch m.view {
		case BrowseView:
			return m.handleBrowseKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case FavoritesView:
			return m.handleFavoritesKeys(msg)
		case LoginView:
			return m.handleLoginKeys(msg)
		}

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case moviesFetchedMsg:
		if !m.browseSeq.Valid(msg.ticket) {
			return m, nil
		}
		m.browseLoading = false
		if msg.err != nil {
			m.logger.Warn("failed to load movies", "genre", msg.genre, "error", msg.err)
			m.setError("Could not load movies. Press r to retry.")
			msg.movies = nil
		}
		m.browseList = newList(trendingTitle(msg.genre), movieItems(msg.movies), m.width-4, m.height-10)
		return m, nil

	case detailFetchedMsg:
		if !m.detailSeq.Valid(msg.ticket) {
			return m, nil
		}
		m.detailLoading = false
		if msg.err != nil {
			m.logger.Warn("failed to load movie", "movie_id", m.detailID, "error", msg.err)
			m.detail = nil
			if errors.Is(msg.err, shared.ErrNotFound) {
				m.setError("Movie not found.")
			} else {
				m.setError("Could not load movie. Press r to retry.")
			}
			return m, nil
		}
		m.detail = msg.details
		m.recList = newList("Recommended", movieItems(msg.recs), m.width-4, max(m.height/3, 6))
		return m, nil

	case authCheckedMsg:
		if !m.favSeq.Valid(msg.ticket) {
			return m, nil
		}
		if m.guard.Resolve(msg.authenticated) == guard.Redirecting {
			m.setStatus("Sign in to see your favorites.")
			return m, m.enterLogin(FavoritesView)
		}
		return m, m.loadFavorites(false)

	case favoritesLoadedMsg:
		if !m.favSeq.Valid(msg.ticket) {
			return m, nil
		}
		m.favLoading = false
		if msg.err != nil {
			m.logger.Warn("failed to load favorites", "error", msg.err)
			m.setError("Could not load favorites. Press r to retry.")
		}
		m.favList = newList("Favorites", favoriteItems(msg.entries), m.width-4, m.height-8)
		return m, nil

	case favoriteToggledMsg:
		return m.handleToggled(msg)

	case loginResultMsg:
		return m.handleLoginResult(msg)
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case BrowseView:
		body = m.renderBrowse()
	case DetailView:
		body = m.renderDetail()
	case FavoritesView:
		body = m.renderFavorites()
	case LoginView:
		body = m.renderLogin()
	}
	return fmt.Sprintf("%s\n%s\n\n%s", m.renderHeader(), body, m.renderStatus())
}

func (m *Model) handleBrowseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.browseList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.browseList, cmd = m.browseList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.nextTab):
		m.tab = (m.tab + 1) % len(models.GenreTabs)
		return m, m.fetchMovies()
	case key.Matches(msg, m.keys.prevTab):
		m.tab = (m.tab + len(models.GenreTabs) - 1) % len(models.GenreTabs)
		return m, m.fetchMovies()
	case key.Matches(msg, m.keys.reload):
		m.clearStatus()
		return m, m.fetchMovies()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.browseList.SelectedItem().(movieItem); ok {
			return m, m.openDetail(item.movie.ID, BrowseView)
		}
		return m, nil
	case key.Matches(msg, m.keys.favorites):
		return m, m.enterFavorites()
	case key.Matches(msg, m.keys.login):
		if m.session.IsAuthenticated() {
			m.setStatus("Already signed in.")
			return m, nil
		}
		return m, m.enterLogin(BrowseView)
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	}

	var cmd tea.Cmd
	m.browseList, cmd = m.browseList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.detailSeq.Invalidate()
		m.detailLoading = false
		m.detail = nil
		m.clearStatus()
		m.view = m.detailFrom
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.clearStatus()
		return m, m.fetchDetail(m.detailID)
	case key.Matches(msg, m.keys.favorite):
		if m.detail == nil {
			return m, nil
		}
		if !m.session.IsAuthenticated() {
			m.setStatus("Sign in to manage favorites.")
			return m, m.enterLogin(DetailView)
		}
		return m, m.toggleFavorite(m.detail.ID, m.detail.Title)
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.recList.SelectedItem().(movieItem); ok {
			return m, m.openDetail(item.movie.ID, m.detailFrom)
		}
		return m, nil
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	}

	var cmd tea.Cmd
	m.recList, cmd = m.recList.Update(msg)
	return m, cmd
}

func (m *Model) handleFavoritesKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.guard.State() != guard.Authorized {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			return m, m.leaveFavorites()
		}
		return m, nil
	}
	if m.favList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.favList, cmd = m.favList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		return m, m.leaveFavorites()
	case key.Matches(msg, m.keys.reload):
		m.clearStatus()
		return m, m.loadFavorites(true)
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.favList.SelectedItem().(favoriteItem); ok {
			return m, m.openDetail(item.entry.MovieID, FavoritesView)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if item, ok := m.favList.SelectedItem().(favoriteItem); ok {
			return m, m.toggleFavorite(item.entry.MovieID, item.Title())
		}
		return m, nil
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	}

	var cmd tea.Cmd
	m.favList, cmd = m.favList.Update(msg)
	return m, cmd
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.resetLogin()
		m.clearStatus()
		if m.returnTo == DetailView {
			m.view = DetailView
		} else {
			m.view = BrowseView
		}
		return m, nil
	case key.Matches(msg, m.keys.nextField), key.Matches(msg, m.keys.prevField):
		return m, m.focusField(1 - m.focus)
	case key.Matches(msg, m.keys.submit):
		if m.submitting {
			return m, nil
		}
		if m.focus == 0 {
			return m, m.focusField(1)
		}
		m.setStatus("Signing in...")
		return m, m.submitLogin()
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleToggled(msg favoriteToggledMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, shared.ErrNotAuthenticated) {
			m.setStatus("Your session ended. Sign in again.")
			return m, m.enterLogin(m.view)
		}
		m.logger.Warn("failed to update favorites", "movie_id", msg.movieID, "error", msg.err)
		m.setError("Could not update favorites: " + strings.Join(services.UserMessages(msg.err), "; "))
		return m, nil
	}

	if msg.added {
		m.setStatus(fmt.Sprintf("Added %s to favorites.", msg.title))
	} else {
		m.setStatus(fmt.Sprintf("Removed %s from favorites.", msg.title))
	}
	if m.view == FavoritesView {
		m.favList.SetItems(favoriteItems(m.favorites.Entries()))
	}
	return m, nil
}

func (m *Model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	if msg.err != nil {
		m.password.Reset()
		m.setError(strings.Join(services.UserMessages(msg.err), "; "))
		return m, nil
	}

	m.resetLogin()
	m.setStatus(fmt.Sprintf("Signed in as %s.", strings.TrimSpace(msg.username)))
	switch m.returnTo {
	case FavoritesView:
		return m, m.enterFavorites()
	case DetailView:
		m.view = DetailView
	default:
		m.view = BrowseView
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case BrowseView:
		m.browseList, cmd = m.browseList.Update(msg)
	case DetailView:
		m.recList, cmd = m.recList.Update(msg)
	case FavoritesView:
		m.favList, cmd = m.favList.Update(msg)
	case LoginView:
		if m.focus == 0 {
			m.username, cmd = m.username.Update(msg)
		} else {
			m.password, cmd = m.password.Update(msg)
		}
	}
	return m, cmd
}

func (m *Model) openDetail(id int, from ViewState) tea.Cmd {
	m.view = DetailView
	m.detailFrom = from
	m.detail = nil
	m.clearStatus()
	return m.fetchDetail(id)
}

// enterFavorites puts the guard back in Checking and resolves it against the session.
func (m *Model) enterFavorites() tea.Cmd {
	m.view = FavoritesView
	m.guard.Reset()
	return m.checkAuth()
}

func (m *Model) leaveFavorites() tea.Cmd {
	m.favSeq.Invalidate()
	m.favLoading = false
	m.guard.Reset()
	m.view = BrowseView
	return nil
}

func (m *Model) enterLogin(returnTo ViewState) tea.Cmd {
	m.returnTo = returnTo
	m.view = LoginView
	m.submitting = false
	return m.focusField(0)
}

func (m *Model) logout() tea.Cmd {
	if !m.session.IsAuthenticated() {
		m.setStatus("Not signed in.")
		return nil
	}
	if err := m.session.Logout(); err != nil {
		m.logger.Warn("failed to clear stored tokens", "error", err)
	}
	m.setStatus("Signed out.")
	if m.view == FavoritesView {
		return m.enterFavorites()
	}
	return nil
}

func (m *Model) focusField(i int) tea.Cmd {
	m.focus = i
	if i == 0 {
		m.password.Blur()
		return m.username.Focus()
	}
	m.username.Blur()
	return m.password.Focus()
}

func (m *Model) resetLogin() {
	m.username.Reset()
	m.password.Reset()
	m.username.Blur()
	m.password.Blur()
	m.focus = 0
	m.submitting = false
}

func (m *Model) busy() bool {
	switch m.view {
	case BrowseView:
		return m.browseLoading
	case DetailView:
		return m.detailLoading
	case FavoritesView:
		return m.favLoading || m.guard.State() == guard.Checking
	}
	return false
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.failed = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.failed = true
}

func (m *Model) clearStatus() {
	m.status = ""
	m.failed = false
}

func trendingTitle(genre string) string {
	if models.IsAllGenres(genre) {
		return "Trending"
	}
	return "Trending • " + genre
}

func (m *Model) renderHeader() string {
	who := "signed out"
	if m.session.IsAuthenticated() {
		who = "signed in"
		if u := m.session.User(); u != nil && u.Username != "" {
			who = "signed in as " + u.Username
		}
	}
	return styles.title.Render("cinex") + "  " + styles.help.Render(who)
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.failed {
		return styles.err.Render(m.status)
	}
	return styles.ok.Render(m.status)
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(models.GenreTabs))
	for i, name := range models.GenreTabs {
		if i == m.tab {
			tabs[i] = styles.activeTab.Render(name)
		} else {
			tabs[i] = styles.tab.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderBrowse() string {
	helpView := m.help.ShortHelpView([]key.Binding{
		m.keys.enter, m.keys.nextTab, m.keys.favorites, m.authKey(), m.keys.reload, m.keys.quit,
	})
	content := m.browseList.View()
	if m.browseLoading && len(m.browseList.Items()) == 0 {
		content = m.spinner.View() + " Loading movies..."
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", m.renderTabs(), content, helpView)
}

func (m *Model) renderDetail() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.favorite, m.keys.enter, m.keys.back, m.keys.quit})
	if m.detailLoading {
		return fmt.Sprintf("%s Loading movie...\n\n%s", m.spinner.View(), helpView)
	}
	if m.detail == nil {
		helpView = m.help.ShortHelpView([]key.Binding{m.keys.reload, m.keys.back, m.keys.quit})
		return fmt.Sprintf("%s\n\n%s", styles.warn.Render("No movie loaded."), helpView)
	}

	d := m.detail
	title := d.Title
	if y := d.Year(); y != 0 {
		title = fmt.Sprintf("%s (%d)", d.Title, y)
	}
	if m.favorites.IsFavorite(d.ID) {
		title += "  ♥"
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")
	if d.Tagline != "" {
		b.WriteString(styles.help.Render(d.Tagline) + "\n")
	}
	facts := []string{}
	if d.VoteAverage > 0 {
		facts = append(facts, fmt.Sprintf("★ %.1f (%d votes)", d.VoteAverage, d.VoteCount))
	}
	if d.Runtime > 0 {
		facts = append(facts, models.FormatRuntime(d.Runtime))
	}
	if names := d.GenreNames(); len(names) > 0 {
		facts = append(facts, strings.Join(names, ", "))
	}
	if len(facts) > 0 {
		b.WriteString(strings.Join(facts, " • ") + "\n")
	}
	if directors := d.Directors(); len(directors) > 0 {
		b.WriteString("Directed by " + strings.Join(directors, ", ") + "\n")
	}
	if d.Overview != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Width(max(m.width-4, 40)).Render(d.Overview) + "\n")
	}
	b.WriteString("\n")
	if len(m.recList.Items()) > 0 {
		b.WriteString(m.recList.View())
	} else {
		b.WriteString(styles.help.Render("No recommendations."))
	}
	return fmt.Sprintf("%s\n\n%s", b.String(), helpView)
}

func (m *Model) renderFavorites() string {
	switch m.guard.State() {
	case guard.Checking:
		return m.spinner.View() + " Checking session..."
	case guard.Redirecting:
		return styles.warn.Render("Redirecting to sign in...")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.remove, m.keys.reload, m.keys.back, m.keys.quit})
	if m.favLoading {
		return fmt.Sprintf("%s Loading favorites...\n\n%s", m.spinner.View(), helpView)
	}
	if len(m.favList.Items()) == 0 {
		return fmt.Sprintf("%s\n%s\n\n%s",
			styles.title.Render("Favorites"),
			"No favorites yet. Open a movie and press f to add it.",
			helpView,
		)
	}
	return fmt.Sprintf("%s\n\n%s", m.favList.View(), helpView)
}

func (m *Model) renderLogin() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.nextField, m.keys.submit, m.keys.back, m.keys.forceQuit})
	return fmt.Sprintf("%s\n%s\n%s\n\n%s",
		styles.title.Render("Sign in"),
		m.username.View(),
		m.password.View(),
		helpView,
	)
}

func (m *Model) authKey() key.Binding {
	if m.session.IsAuthenticated() {
		return m.keys.logout
	}
	return m.keys.login
}
