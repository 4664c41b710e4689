package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/cinex/internal/services"
	"github.com/desertthunder/cinex/internal/shared"
	tu "github.com/desertthunder/cinex/internal/testing"
	"golang.org/x/oauth2"
)

type transitions struct {
	mu   sync.Mutex
	seen []bool
}

func (tr *transitions) listen(ctx context.Context, authenticated bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.seen = append(tr.seen, authenticated)
}

func (tr *transitions) get() []bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]bool(nil), tr.seen...)
}

func newSession(t *testing.T, fb *tu.FakeBackend, store TokenStore) *Session {
	t.Helper()
	return NewSession(services.NewAPIService(fb.URL, nil), store)
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Login", func(t *testing.T) {
		t.Run("Persists Both Tokens And Notifies", func(t *testing.T) {
			fb := tu.NewFakeBackend(t)
			store := tu.NewMemoryTokenStore(nil)
			s := newSession(t, fb, store)
			tr := &transitions{}
			s.Subscribe(tr.listen)

			if err := s.Login(ctx, tu.FakeUsername, tu.FakePassword); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !s.IsAuthenticated() {
				t.Error("expected session to be authenticated")
			}
			stored := store.Stored()
			if stored == nil || stored.AccessToken == "" || stored.RefreshToken == "" {
				t.Fatalf("expected both tokens persisted, got %+v", stored)
			}
			if stored.RefreshToken != fb.RefreshToken() {
				t.Errorf("expected refresh %q, got %q", fb.RefreshToken(), stored.RefreshToken)
			}
			if u := s.User(); u == nil || u.Username != tu.FakeUsername {
				t.Errorf("unexpected user %+v", u)
			}
			if got := tr.get(); len(got) != 1 || !got[0] {
				t.Errorf("expected one signed-in transition, got %v", got)
			}
		})

		t.Run("Rejected Credentials Leave State Untouched", func(t *testing.T) {
			fb := tu.NewFakeBackend(t)
			store := tu.NewMemoryTokenStore(nil)
			s := newSession(t, fb, store)

			err := s.Login(ctx, tu.FakeUsername, "wrong-password")
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
			apiErr, ok := services.AsAPIError(err)
			if !ok || apiErr.Status != http.StatusUnauthorized {
				t.Fatalf("expected 401 APIError, got %v", err)
			}
			if apiErr.Detail != "No active account found with the given credentials" {
				t.Errorf("unexpected detail %q", apiErr.Detail)
			}
			if s.IsAuthenticated() {
				t.Error("expected session to stay signed out")
			}
			if store.Saves != 0 {
				t.Errorf("expected no writes, got %d", store.Saves)
			}
		})

		t.Run("Failure Keeps Existing Session", func(t *testing.T) {
			fb := tu.NewFakeBackend(t)
			store := tu.NewMemoryTokenStore(nil)
			s := newSession(t, fb, store)

			if err := s.Login(ctx, tu.FakeUsername, tu.FakePassword); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			before := s.Token()

			if err := s.Login(ctx, tu.FakeUsername, "nope"); err == nil {
				t.Fatal("expected error")
			}
			after := s.Token()
			if after == nil || after.AccessToken != before.AccessToken {
				t.Errorf("expected token %q to survive, got %+v", before.AccessToken, after)
			}
			if store.Stored().AccessToken != before.AccessToken {
				t.Error("expected persisted token to survive")
			}
		})

		t.Run("Network Failure", func(t *testing.T) {
			store := tu.NewMemoryTokenStore(nil)
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("dial tcp: connection refused"))}
			s := NewSession(services.NewAPIService("http://example.com", client), store)

			err := s.Login(ctx, "a", "b")
			if !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
			msgs := services.UserMessages(err)
			if len(msgs) != 1 || msgs[0] != "Network Error: Please check your internet connection." {
				t.Errorf("unexpected messages %v", msgs)
			}
		})

		t.Run("Empty Fields Skip The Backend", func(t *testing.T) {
			fb := tu.NewFakeBackend(t)
			s := newSession(t, fb, tu.NewMemoryTokenStore(nil))

			var verr *ValidationError
			if err := s.Login(ctx, " ", "x"); !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
			if fb.TotalCalls() != 0 {
				t.Errorf("expected no backend calls, got %d", fb.TotalCalls())
			}
		})

		t.Run("Storage Failure Leaves State Untouched", func(t *testing.T) {
			fb := tu.NewFakeBackend(t)
			store := tu.NewMemoryTokenStore(nil)
			store.FailSave = true
			s := newSession(t, fb, store)

			if err := s.Login(ctx, tu.FakeUsername, tu.FakePassword); err == nil {
				t.Fatal("expected error")
			}
			if s.IsAuthenticated() {
				t.Error("expected session to stay signed out")
			}
		})
	})

	t.Run("Register", func(t *testing.T) {
		t.Run("Validation Happens Before Any Request", func(t *testing.T) {
			tests := []struct {
				name                              string
				username, email, password, confirm string
				want                              string
			}{
				{"Empty Username", "", "a@b.c", "password1", "password1", "please fill in all fields"},
				{"Empty Confirm", "bob", "a@b.c", "password1", "", "please fill in all fields"},
				{"Mismatch", "bob", "a@b.c", "password1", "password2", "passwords do not match"},
				{"Short", "bob", "a@b.c", "short", "short", "password must be at least 8 characters long"},
				{"Short And Mismatched", "bob", "a@b.c", "short", "shorter", "passwords do not match"},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					fb := tu.NewFakeBackend(t)
					s := newSession(t, fb, tu.NewMemoryTokenStore(nil))

					_, err := s.Register(ctx, tt.username, tt.email, tt.password, tt.confirm)
					var verr *ValidationError
					if !errors.As(err, &verr) {
						t.Fatalf("expected ValidationError, got %v", err)
					}
					if verr.Message != tt.want {
						t.Errorf("expected %q, got %q", tt.want, verr.Message)
					}
					if !errors.Is(err, shared.ErrInvalidInput) {
						t.Error("expected ErrInvalidInput")
					}
					if fb.TotalCalls() != 0 {
						t.Errorf("expected no backend calls, got %d", fb.TotalCalls())
					}
				})
			}
		})

		t.Run("Creates Account Without Signing In", func(t *testing.T) {
			fb := tu.NewFakeBackend(t)
			store := tu.NewMemoryTokenStore(nil)
			s := newSession(t, fb, store)
			tr := &transitions{}
			s.Subscribe(tr.listen)

			user, err := s.Register(ctx, "  bob   the builder ", "bob@example.com", "longenough", "longenough")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if user.Username != "bob_the_builder" {
				t.Errorf("expected normalized username, got %q", user.Username)
			}
			if s.IsAuthenticated() || store.Saves != 0 || len(tr.get()) != 0 {
				t.Error("expected registration to leave the session signed out")
			}
		})

		t.Run("Field Errors From Backend", func(t *testing.T) {
			fb := tu.NewFakeBackend(t)
			s := newSession(t, fb, tu.NewMemoryTokenStore(nil))

			_, err := s.Register(ctx, tu.FakeUsername, "other@example.com", "longenough", "longenough")
			if !errors.Is(err, shared.ErrRegisterFailed) {
				t.Errorf("expected ErrRegisterFailed, got %v", err)
			}
			msgs := services.UserMessages(err)
			if len(msgs) != 1 || msgs[0] != "username: A user with that username already exists." {
				t.Errorf("unexpected messages %v", msgs)
			}
		})
	})

	t.Run("Logout", func(t *testing.T) {
		fb := tu.NewFakeBackend(t)
		store := tu.NewMemoryTokenStore(nil)
		s := newSession(t, fb, store)
		tr := &transitions{}
		s.Subscribe(tr.listen)

		if err := s.Login(ctx, tu.FakeUsername, tu.FakePassword); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		calls := fb.TotalCalls()

		if err := s.Logout(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.IsAuthenticated() || s.Token() != nil || s.User() != nil {
			t.Error("expected session to be cleared")
		}
		if store.Stored() != nil {
			t.Error("expected persisted tokens to be cleared")
		}
		if fb.TotalCalls() != calls {
			t.Error("expected logout not to contact the backend")
		}
		if got := tr.get(); len(got) != 2 || got[1] {
			t.Errorf("expected signed-in then signed-out, got %v", got)
		}

		t.Run("Twice Is Quiet", func(t *testing.T) {
			if err := s.Logout(); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := tr.get(); len(got) != 2 {
				t.Errorf("expected no further transitions, got %v", got)
			}
		})

		t.Run("Storage Failure Still Clears Memory", func(t *testing.T) {
			if err := s.Login(ctx, tu.FakeUsername, tu.FakePassword); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			store.FailClear = true
			defer func() { store.FailClear = false }()

			if err := s.Logout(); err == nil {
				t.Error("expected storage error")
			}
			if s.IsAuthenticated() {
				t.Error("expected memory to be cleared")
			}
		})
	})

	t.Run("Load", func(t *testing.T) {
		t.Run("Restores Persisted Pair", func(t *testing.T) {
			fb := tu.NewFakeBackend(t)
			store := tu.NewMemoryTokenStore(&oauth2.Token{AccessToken: "a", RefreshToken: "r"})
			s := newSession(t, fb, store)
			tr := &transitions{}
			s.Subscribe(tr.listen)

			if err := s.Load(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			tok := s.Token()
			if tok == nil || tok.AccessToken != "a" || tok.TokenType != "Bearer" {
				t.Errorf("unexpected token %+v", tok)
			}
			if got := tr.get(); len(got) != 1 || !got[0] {
				t.Errorf("expected signed-in transition, got %v", got)
			}
		})

		t.Run("Empty Storage", func(t *testing.T) {
			fb := tu.NewFakeBackend(t)
			s := newSession(t, fb, tu.NewMemoryTokenStore(nil))
			if err := s.Load(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if s.IsAuthenticated() {
				t.Error("expected signed out")
			}
		})

		t.Run("Storage Error", func(t *testing.T) {
			fb := tu.NewFakeBackend(t)
			store := tu.NewMemoryTokenStore(nil)
			store.FailLoad = true
			s := newSession(t, fb, store)
			if err := s.Load(ctx); err == nil {
				t.Error("expected error")
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Retries A 401 With A New Access Token", func(t *testing.T) {
			fb := tu.NewFakeBackend(t)
			store := tu.NewMemoryTokenStore(nil)
			s := newSession(t, fb, store)
			if err := s.Login(ctx, tu.FakeUsername, tu.FakePassword); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			old := s.Token()
			fb.ExpireAccess()

			user, err := s.FetchUser(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if user.Username != tu.FakeUsername {
				t.Errorf("unexpected user %+v", user)
			}
			if n := fb.Calls("POST /auth/token/refresh/"); n != 1 {
				t.Errorf("expected 1 refresh, got %d", n)
			}
			if n := fb.Calls("GET /auth/user/"); n != 2 {
				t.Errorf("expected original request plus one retry, got %d", n)
			}
			tok := s.Token()
			if tok.AccessToken == old.AccessToken {
				t.Error("expected a new access token")
			}
			if tok.RefreshToken != old.RefreshToken {
				t.Error("expected refresh token to be kept when not rotated")
			}
			if store.Stored().AccessToken != tok.AccessToken {
				t.Error("expected new access token persisted")
			}
		})

		t.Run("Failure Signs Out", func(t *testing.T) {
			fb := tu.NewFakeBackend(t)
			store := tu.NewMemoryTokenStore(nil)
			s := newSession(t, fb, store)
			tr := &transitions{}
			s.Subscribe(tr.listen)
			if err := s.Login(ctx, tu.FakeUsername, tu.FakePassword); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			fb.ExpireAccess()
			fb.Configure(func(b *tu.FakeBackend) { b.FailRefresh = true })

			_, err := s.FetchUser(ctx)
			if !errors.Is(err, shared.ErrRefreshFailed) || !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected refresh failure, got %v", err)
			}
			if s.IsAuthenticated() || store.Stored() != nil {
				t.Error("expected forced sign-out")
			}
			if got := tr.get(); len(got) != 2 || got[1] {
				t.Errorf("expected signed-out transition, got %v", got)
			}
			if n := fb.Calls("GET /auth/user/"); n != 1 {
				t.Errorf("expected no retry after failed refresh, got %d", n)
			}
		})

		t.Run("Without Refresh Token", func(t *testing.T) {
			fb := tu.NewFakeBackend(t)
			s := newSession(t, fb, tu.NewMemoryTokenStore(&oauth2.Token{AccessToken: "a"}))
			s.Load(ctx)

			_, err := s.Refresh(ctx)
			if !errors.Is(err, shared.ErrNoRefreshToken) {
				t.Errorf("expected ErrNoRefreshToken, got %v", err)
			}
			if s.IsAuthenticated() {
				t.Error("expected forced sign-out")
			}
			if fb.TotalCalls() != 0 {
				t.Error("expected no backend calls")
			}
		})

		t.Run("Concurrent Calls Share One Exchange", func(t *testing.T) {
			var exchanges atomic.Int32
			entered := make(chan struct{}, 1)
			release := make(chan struct{})
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				exchanges.Add(1)
				select {
				case entered <- struct{}{}:
				default:
				}
				<-release
				w.Write([]byte(`{"access":"fresh","refresh":"rotated"}`))
			}))
			defer server.Close()

			store := tu.NewMemoryTokenStore(&oauth2.Token{AccessToken: "stale", RefreshToken: "r"})
			s := NewSession(services.NewAPIService(server.URL, nil), store)
			s.Load(ctx)

			var wg sync.WaitGroup
			results := make(chan *oauth2.Token, 5)
			call := func() {
				defer wg.Done()
				tok, err := s.Refresh(ctx)
				if err != nil {
					t.Errorf("expected no error, got %v", err)
					return
				}
				results <- tok
			}

			wg.Add(1)
			go call()
			<-entered
			for range 4 {
				wg.Add(1)
				go call()
			}
			time.Sleep(100 * time.Millisecond)
			close(release)
			wg.Wait()
			close(results)

			if n := exchanges.Load(); n != 1 {
				t.Errorf("expected 1 exchange, got %d", n)
			}
			for tok := range results {
				if tok.AccessToken != "fresh" || tok.RefreshToken != "rotated" {
					t.Errorf("unexpected token %+v", tok)
				}
			}
		})
	})

	t.Run("FetchUser Requires Session", func(t *testing.T) {
		fb := tu.NewFakeBackend(t)
		s := newSession(t, fb, tu.NewMemoryTokenStore(nil))
		if _, err := s.FetchUser(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if fb.TotalCalls() != 0 {
			t.Error("expected no backend calls")
		}
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		fb := tu.NewFakeBackend(t)
		s := newSession(t, fb, tu.NewMemoryTokenStore(nil))
		tr := &transitions{}
		cancel := s.Subscribe(tr.listen)
		cancel()

		if err := s.Login(ctx, tu.FakeUsername, tu.FakePassword); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tr.get()) != 0 {
			t.Error("expected no notifications after unsubscribe")
		}
	})
}
