package services

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/desertthunder/cinex/internal/shared"
)

func TestAPIError(t *testing.T) {
	t.Run("Status Sentinels", func(t *testing.T) {
		tests := []struct {
			status int
			want   error
		}{
			{http.StatusUnauthorized, shared.ErrNotAuthenticated},
			{http.StatusNotFound, shared.ErrNotFound},
			{http.StatusBadGateway, shared.ErrServiceUnavailable},
			{http.StatusBadRequest, shared.ErrAPIRequest},
			{http.StatusForbidden, shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			err := newStatusError(http.MethodGet, "/x", tt.status, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
			}
		}
	})

	t.Run("Messages", func(t *testing.T) {
		t.Run("Field Keyed Payload", func(t *testing.T) {
			err := newStatusError(http.MethodPost, "/auth/register/", 400,
				[]byte(`{"username":["Taken."],"email":"Enter a valid email address.","password":["Too short.","Too common."]}`))

			want := []string{
				"email: Enter a valid email address.",
				"password: Too short.",
				"password: Too common.",
				"username: Taken.",
			}
			got := err.Messages()
			if strings.Join(got, "|") != strings.Join(want, "|") {
				t.Errorf("expected %v, got %v", want, got)
			}
		})

		t.Run("Detail Comes First", func(t *testing.T) {
			err := newStatusError(http.MethodPost, "/auth/login/", 401,
				[]byte(`{"detail":"No active account found with the given credentials"}`))

			got := err.Messages()
			if len(got) != 1 || got[0] != "No active account found with the given credentials" {
				t.Errorf("unexpected messages %v", got)
			}
			if len(err.Fields) != 0 {
				t.Errorf("expected no field errors, got %v", err.Fields)
			}
		})

		t.Run("Non-JSON Body", func(t *testing.T) {
			err := newStatusError(http.MethodGet, "/x", 502, []byte("<html>bad gateway</html>"))
			got := err.Messages()
			if len(got) != 1 || got[0] != "Error 502: An unexpected error occurred." {
				t.Errorf("unexpected messages %v", got)
			}
		})

		t.Run("Network", func(t *testing.T) {
			err := &APIError{Method: "GET", Path: "/x", Err: shared.ErrNetwork}
			got := err.Messages()
			if len(got) != 1 || !strings.HasPrefix(got[0], "Network Error") {
				t.Errorf("unexpected messages %v", got)
			}
		})
	})

	t.Run("UserMessages", func(t *testing.T) {
		if UserMessages(nil) != nil {
			t.Error("expected nil for nil error")
		}
		got := UserMessages(errors.New("boom"))
		if len(got) != 1 || got[0] != "boom" {
			t.Errorf("unexpected messages %v", got)
		}
	})
}
