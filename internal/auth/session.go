package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cinex/internal/models"
	"github.com/desertthunder/cinex/internal/services"
	"github.com/desertthunder/cinex/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	loginPath    = "/auth/login/"
	registerPath = "/auth/register/"
	refreshPath  = "/auth/token/refresh/"
	userPath     = "/auth/user/"
	tokenType    = "Bearer"
)

// TokenStore persists the token pair across restarts.
//
// Save writes both tokens or neither. Load returns nil without error when nothing is stored.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
	Clear() error
}

var _ services.Credentials = (*Session)(nil)

// Listener observes authentication transitions.
type Listener func(ctx context.Context, authenticated bool)

type subscription struct {
	id int
	fn Listener
}

// Session is the authentication state for the current user.
type Session struct {
	anon   *services.APIService
	client *services.APIService
	store  TokenStore
	logger *log.Logger
	group  singleflight.Group

	mu        sync.RWMutex
	token     *oauth2.Token
	user      *models.UserSummary
	listeners []subscription
	nextSubID int
}

// NewSession creates a signed-out session. Call [Session.Load] to restore persisted tokens.
func NewSession(api *services.APIService, store TokenStore) *Session {
	s := &Session{
		anon:   api.Anonymous(),
		store:  store,
		logger: log.New(io.Discard),
	}
	s.client = api.Anonymous()
	s.client.SetCredentials(s)
	return s
}

// SetLogger sets the logger used for session transitions.
func (s *Session) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Client returns an API client that authenticates with this session.
func (s *Session) Client() *services.APIService {
	return s.client
}

// Subscribe registers l for auth transitions and returns a function that removes it.
func (s *Session) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.listeners = append(s.listeners, subscription{id: id, fn: l})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) notify(ctx context.Context, authenticated bool) {
	s.mu.RLock()
	subs := make([]subscription, len(s.listeners))
	copy(subs, s.listeners)
	s.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(ctx, authenticated)
	}
}

// Load restores the persisted token pair. Listeners are told when a session was restored.
func (s *Session) Load(ctx context.Context) error {
	tok, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load tokens: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return nil
	}
	if tok.TokenType == "" {
		tok.TokenType = tokenType
	}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()

	s.logger.Debug("session restored")
	s.notify(ctx, true)
	return nil
}

// IsAuthenticated reports whether an access token is present. Expiry is not checked.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != nil && s.token.AccessToken != ""
}

// Token returns a copy of the current token pair, or nil when signed out.
func (s *Session) Token() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil || s.token.AccessToken == "" {
		return nil
	}
	tok := *s.token
	return &tok
}

// User returns the cached user summary, or nil.
func (s *Session) User() *models.UserSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User    *models.UserSummary `json:"user"`
	Access  string              `json:"access"`
	Refresh string              `json:"refresh"`
}

// Login exchanges credentials for a token pair and signs in.
//
// On any failure the previous session state is left untouched.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if err := validateLogin(username, password); err != nil {
		return err
	}

	var resp loginResponse
	req := loginRequest{Username: strings.TrimSpace(username), Password: password}
	if err := s.anon.SendJSON(ctx, http.MethodPost, loginPath, req, &resp); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if resp.Access == "" || resp.Refresh == "" {
		return fmt.Errorf("%w: %w: login response without tokens", shared.ErrAuthFailed, shared.ErrDecode)
	}

	tok := &oauth2.Token{AccessToken: resp.Access, RefreshToken: resp.Refresh, TokenType: tokenType}

	s.mu.Lock()
	if err := s.store.Save(tok); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: failed to persist tokens: %w", shared.ErrAuthFailed, err)
	}
	s.token = tok
	s.user = resp.User
	s.mu.Unlock()

	s.logger.Info("signed in", "username", req.Username)
	s.notify(ctx, true)
	return nil
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// Register creates an account. It never signs in.
//
// Input is validated locally first; a [*ValidationError] means no request was made.
func (s *Session) Register(ctx context.Context, username, email, password, confirm string) (*models.UserSummary, error) {
	if err := ValidateRegistration(username, email, password, confirm); err != nil {
		return nil, err
	}

	req := registerRequest{
		Username:  NormalizeUsername(username),
		Email:     strings.TrimSpace(email),
		Password:  password,
		Password2: confirm,
	}

	var raw json.RawMessage
	if err := s.anon.SendJSON(ctx, http.MethodPost, registerPath, req, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRegisterFailed, err)
	}

	user := decodeRegisteredUser(raw)
	if user.Username == "" {
		user.Username = req.Username
	}
	if user.Email == "" {
		user.Email = req.Email
	}

	s.logger.Info("registered", "username", user.Username)
	return user, nil
}

// decodeRegisteredUser accepts a bare user summary or one wrapped under "user".
func decodeRegisteredUser(raw json.RawMessage) *models.UserSummary {
	var wrapped struct {
		User *models.UserSummary `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User
	}

	var user models.UserSummary
	_ = json.Unmarshal(raw, &user)
	return &user
}

// Logout signs out locally without contacting the backend.
//
// Memory is always cleared; a storage failure is returned after listeners have been told.
func (s *Session) Logout() error {
	err := s.clear(context.Background())
	if err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

// clear drops the session and notifies listeners when it was authenticated.
func (s *Session) clear(ctx context.Context) error {
	s.mu.Lock()
	wasAuthenticated := s.token != nil && s.token.AccessToken != ""
	err := s.store.Clear()
	s.token = nil
	s.user = nil
	s.mu.Unlock()

	if wasAuthenticated {
		s.logger.Info("signed out")
		s.notify(ctx, false)
	}
	return err
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Refresh exchanges the refresh token for a new access token.
//
// Concurrent calls share one exchange. Any failure signs the user out.
func (s *Session) Refresh(ctx context.Context) (*oauth2.Token, error) {
	v, err, joined := s.group.Do("refresh", func() (any, error) {
		return s.refresh(ctx)
	})
	if joined {
		s.logger.Debug("joined in-flight token refresh")
	}
	if err != nil {
		return nil, err
	}
	tok := *(v.(*oauth2.Token))
	return &tok, nil
}

func (s *Session) refresh(ctx context.Context) (*oauth2.Token, error) {
	s.mu.RLock()
	current := s.token
	s.mu.RUnlock()

	if current == nil || current.RefreshToken == "" {
		s.expire(ctx, "no refresh token")
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, shared.ErrNoRefreshToken)
	}

	var resp refreshResponse
	body := map[string]string{"refresh": current.RefreshToken}
	if err := s.anon.SendJSON(ctx, http.MethodPost, refreshPath, body, &resp); err != nil {
		s.expire(ctx, err.Error())
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	if resp.Access == "" {
		s.expire(ctx, "refresh response without access token")
		return nil, fmt.Errorf("%w: %w: refresh response without access token", shared.ErrRefreshFailed, shared.ErrDecode)
	}

	next := &oauth2.Token{AccessToken: resp.Access, RefreshToken: current.RefreshToken, TokenType: tokenType}
	if resp.Refresh != "" {
		next.RefreshToken = resp.Refresh
	}

	s.mu.Lock()
	if s.token != current {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: session changed during refresh: %w", shared.ErrRefreshFailed, shared.ErrNotAuthenticated)
	}
	if err := s.store.Save(next); err != nil {
		s.mu.Unlock()
		s.expire(ctx, err.Error())
		return nil, fmt.Errorf("%w: failed to persist tokens: %w", shared.ErrRefreshFailed, err)
	}
	s.token = next
	s.mu.Unlock()

	s.logger.Debug("access token refreshed")
	return next, nil
}

func (s *Session) expire(ctx context.Context, reason string) {
	s.logger.Warn("session expired", "reason", reason)
	if err := s.clear(ctx); err != nil {
		s.logger.Error("failed to clear tokens", "error", err)
	}
}

// FetchUser replaces the cached user summary with the backend's current one.
func (s *Session) FetchUser(ctx context.Context) (*models.UserSummary, error) {
	if !s.IsAuthenticated() {
		return nil, shared.ErrNotAuthenticated
	}

	var user models.UserSummary
	if err := s.client.GetJSON(ctx, userPath, &user); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.token != nil {
		s.user = &user
	}
	s.mu.Unlock()

	u := user
	return &u, nil
}
