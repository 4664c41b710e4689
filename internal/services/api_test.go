package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/cinex/internal/shared"
	tu "github.com/desertthunder/cinex/internal/testing"
	"golang.org/x/oauth2"
)

type stubCredentials struct {
	mu        sync.Mutex
	token     *oauth2.Token
	next      *oauth2.Token
	err       error
	refreshes int
}

func (s *stubCredentials) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *stubCredentials) Refresh(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	if s.err != nil {
		s.token = nil
		return nil, s.err
	}
	s.token = s.next
	return s.next, nil
}

func bearer(access string) *oauth2.Token {
	return &oauth2.Token{AccessToken: access, RefreshToken: "r-" + access, TokenType: "Bearer"}
}

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com/", customClient)

			if srv.BaseURL() != "http://example.com" {
				t.Errorf("expected baseURL 'http://example.com', got %s", srv.BaseURL())
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL", func(t *testing.T) {
			srv := NewAPIService("", nil)

			if srv.BaseURL() != "http://localhost:5000" {
				t.Errorf("expected default baseURL 'http://localhost:5000', got %s", srv.BaseURL())
			}
		})

		t.Run("With Nil Client", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil)

			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Successful Request With JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Path != "/test" {
					t.Errorf("expected path '/test', got %s", r.URL.Path)
				}
				if r.Header.Get("X-Request-Id") == "" {
					t.Error("expected X-Request-Id header")
				}
				if r.Header.Get("Accept") != "application/json" {
					t.Errorf("expected Accept application/json, got %q", r.Header.Get("Accept"))
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{"status": "success"})
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Get(context.Background(), "/test")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected status 200, got %d", resp.StatusCode)
			}
			if !resp.IsJSON {
				t.Error("expected response to be JSON")
			}
			if resp.JSONData == nil {
				t.Error("expected JSONData to be populated")
			}
		})

		t.Run("Successful Request With Non-JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.Write([]byte("plain text"))
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Get(context.Background(), "/test")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.IsJSON {
				t.Error("expected response to not be JSON")
			}
			if string(resp.Body) != "plain text" {
				t.Errorf("expected body 'plain text', got %s", string(resp.Body))
			}
		})

		t.Run("Non-2xx Is A Response Not An Error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Get(context.Background(), "/missing")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.OK() {
				t.Error("expected OK to be false")
			}
			if err := resp.Err(http.MethodGet, "/missing"); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil)
			_, err := srv.Get(context.Background(), "/test\x00invalid")

			if err == nil {
				t.Fatal("expected error for invalid URL")
			}
			if !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed")),
			}

			srv := NewAPIService("http://example.com", client)
			_, err := srv.Get(context.Background(), "/test")

			if err == nil {
				t.Fatal("expected error for failed request")
			}
			if !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected 'request failed' error, got %v", err)
			}
			if !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}

			apiErr, ok := AsAPIError(err)
			if !ok {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if !apiErr.Network() {
				t.Error("expected network error")
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			srv := NewAPIService("http://example.com", client)
			_, err := srv.Get(context.Background(), "/test")

			if err == nil {
				t.Fatal("expected error for failed body read")
			}
			if !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			srv := NewAPIService(server.URL, nil)
			_, err := srv.Get(ctx, "/test")

			if err == nil {
				t.Error("expected error for canceled context")
			}
		})

		t.Run("Response Headers Are Preserved", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Custom-Header", "test-value")
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Get(context.Background(), "/test")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.Headers.Get("X-Custom-Header") != "test-value" {
				t.Errorf("expected header 'test-value', got %s", resp.Headers.Get("X-Custom-Header"))
			}
		})
	})

	t.Run("Post", func(t *testing.T) {
		t.Run("Sends JSON Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST method, got %s", r.Method)
				}
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
				}

				body, _ := io.ReadAll(r.Body)
				if string(body) != `{"movie_id":5}` {
					t.Errorf("unexpected body %s", body)
				}
				w.WriteHeader(http.StatusCreated)
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			resp, err := srv.Post(context.Background(), "/test", []byte(`{"movie_id":5}`))

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusCreated {
				t.Errorf("expected status 201, got %d", resp.StatusCode)
			}
		})

		t.Run("Nil Body Omits Content-Type", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Content-Type") != "" {
					t.Errorf("expected no Content-Type, got %s", r.Header.Get("Content-Type"))
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			if _, err := srv.Post(context.Background(), "/test", nil); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	})

	t.Run("Delete And Patch", func(t *testing.T) {
		var methods []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			methods = append(methods, r.Method)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		srv := NewAPIService(server.URL, nil)
		if _, err := srv.Patch(context.Background(), "/x", []byte(`{}`)); err != nil {
			t.Fatalf("patch: %v", err)
		}
		if _, err := srv.Delete(context.Background(), "/x"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if strings.Join(methods, ",") != "PATCH,DELETE" {
			t.Errorf("expected PATCH,DELETE, got %v", methods)
		}
	})

	t.Run("Credentials", func(t *testing.T) {
		t.Run("Attaches Bearer Token When Present", func(t *testing.T) {
			var got string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			srv.SetCredentials(&stubCredentials{token: bearer("abc")})
			if _, err := srv.Get(context.Background(), "/test"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != "Bearer abc" {
				t.Errorf("expected 'Bearer abc', got %q", got)
			}
		})

		t.Run("Omits Header Without Token", func(t *testing.T) {
			var got []string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = append(got, r.Header.Get("Authorization"))
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			srv.Get(context.Background(), "/no-credentials")

			srv.SetCredentials(&stubCredentials{})
			srv.Get(context.Background(), "/nil-token")

			for i, h := range got {
				if h != "" {
					t.Errorf("request %d: expected no Authorization header, got %q", i, h)
				}
			}
		})

		t.Run("Anonymous Copy Drops Credentials", func(t *testing.T) {
			var got string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			creds := &stubCredentials{token: bearer("abc")}
			srv.SetCredentials(creds)

			anon := srv.Anonymous()
			anon.Get(context.Background(), "/test")

			if got != "" {
				t.Errorf("expected no Authorization header, got %q", got)
			}
			if srv.credentials != creds {
				t.Error("expected original service to keep its credentials")
			}
		})
	})

	t.Run("Refresh On 401", func(t *testing.T) {
		t.Run("Refreshes Once And Retries With New Token", func(t *testing.T) {
			var seen []string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth := r.Header.Get("Authorization")
				seen = append(seen, auth)
				if auth != "Bearer fresh" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				w.Write([]byte(`{"ok":true}`))
			}))
			defer server.Close()

			creds := &stubCredentials{token: bearer("stale"), next: bearer("fresh")}
			srv := NewAPIService(server.URL, nil)
			srv.SetCredentials(creds)

			resp, err := srv.Get(context.Background(), "/auth/favorites/")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected status 200 after retry, got %d", resp.StatusCode)
			}
			if creds.refreshes != 1 {
				t.Errorf("expected exactly one refresh, got %d", creds.refreshes)
			}
			if len(seen) != 2 || seen[0] != "Bearer stale" || seen[1] != "Bearer fresh" {
				t.Errorf("unexpected request sequence %v", seen)
			}
		})

		t.Run("Second 401 Is Returned Without Another Refresh", func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer server.Close()

			creds := &stubCredentials{token: bearer("stale"), next: bearer("also-stale")}
			srv := NewAPIService(server.URL, nil)
			srv.SetCredentials(creds)

			resp, err := srv.Get(context.Background(), "/test")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", resp.StatusCode)
			}
			if creds.refreshes != 1 {
				t.Errorf("expected exactly one refresh, got %d", creds.refreshes)
			}
			if calls != 2 {
				t.Errorf("expected 2 requests, got %d", calls)
			}
		})

		t.Run("Refresh Failure Surfaces An Error", func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
			}))
			defer server.Close()

			creds := &stubCredentials{token: bearer("stale"), err: shared.ErrRefreshFailed}
			srv := NewAPIService(server.URL, nil)
			srv.SetCredentials(creds)

			resp, err := srv.Get(context.Background(), "/auth/user/")
			if resp != nil {
				t.Error("expected nil response")
			}
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if calls != 1 {
				t.Errorf("expected no retry, got %d requests", calls)
			}
			if creds.Token() != nil {
				t.Error("expected credentials to be cleared by the failed refresh")
			}
		})

		t.Run("Unauthenticated 401 Does Not Refresh", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer server.Close()

			creds := &stubCredentials{}
			srv := NewAPIService(server.URL, nil)
			srv.SetCredentials(creds)

			resp, err := srv.Get(context.Background(), "/auth/user/")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", resp.StatusCode)
			}
			if creds.refreshes != 0 {
				t.Errorf("expected no refresh, got %d", creds.refreshes)
			}
		})
	})

	t.Run("SendJSON", func(t *testing.T) {
		t.Run("Round Trips Values", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var in map[string]string
				json.NewDecoder(r.Body).Decode(&in)
				json.NewEncoder(w).Encode(map[string]string{"echo": in["name"]})
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			var out map[string]string
			err := srv.SendJSON(context.Background(), http.MethodPost, "/echo", map[string]string{"name": "heat"}, &out)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if out["echo"] != "heat" {
				t.Errorf("expected echo 'heat', got %v", out)
			}
		})

		t.Run("Decode Failure", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`[1,2,3]`))
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			var out map[string]string
			err := srv.GetJSON(context.Background(), "/list", &out)
			if !errors.Is(err, shared.ErrDecode) {
				t.Errorf("expected ErrDecode, got %v", err)
			}
		})

		t.Run("Unencodable Input", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil)
			err := srv.SendJSON(context.Background(), http.MethodPost, "/x", make(chan int), nil)
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("Field Errors", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"username":["A user with that username already exists."]}`))
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil)
			err := srv.SendJSON(context.Background(), http.MethodPost, "/auth/register/", map[string]string{}, nil)

			apiErr, ok := AsAPIError(err)
			if !ok {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.Status != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", apiErr.Status)
			}
			msg, ok := apiErr.FieldMessage("username")
			if !ok || msg != "A user with that username already exists." {
				t.Errorf("unexpected field message %q", msg)
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})

	t.Run("Rate Limit", func(t *testing.T) {
		srv := NewAPIService("http://example.com", nil)
		srv.SetRateLimit(5)
		if srv.limiter == nil {
			t.Fatal("expected limiter to be set")
		}
		srv.SetRateLimit(0)
		if srv.limiter != nil {
			t.Error("expected limiter to be disabled")
		}
	})
}
