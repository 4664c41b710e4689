// HTTP client wrapper: the single choke point for requests to the movie backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cinex/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "http://localhost:5000"

// Credentials supplies the bearer token for outgoing requests and renews it after a 401.
//
// Implemented by auth.Session, the sole owner of the persisted token pair.
type Credentials interface {
	// Token returns the current token pair, or nil when unauthenticated.
	Token() *oauth2.Token
	// Refresh exchanges the refresh token for a new access token.
	// Implementations clear the session when the exchange fails.
	Refresh(ctx context.Context) (*oauth2.Token, error)
}

// APIService issues requests against the backend base URL.
//
// Bearer credentials are attached when present, a 401 on an authenticated request triggers exactly
// one refresh-and-retry, and every failure is normalized into an [*APIError].
type APIService struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	credentials Credentials
	logger      *log.Logger
}

// NewAPIService creates a new API service instance for the movie backend.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     log.New(io.Discard),
	}
}

// BaseURL returns the backend base URL without a trailing slash.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// SetCredentials sets the token supplier used for authenticated requests.
func (a *APIService) SetCredentials(c Credentials) {
	a.credentials = c
}

// SetLogger sets the logger used for request tracing.
func (a *APIService) SetLogger(l *log.Logger) {
	if l != nil {
		a.logger = l
	}
}

// SetRateLimit limits outbound requests to rps per second. Zero or negative disables limiting.
func (a *APIService) SetRateLimit(rps float64) {
	if rps <= 0 {
		a.limiter = nil
		return
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	a.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Anonymous returns a copy that never attaches credentials nor attempts refreshes.
//
// Login, registration and the refresh exchange itself go through it.
func (a *APIService) Anonymous() *APIService {
	clone := *a
	clone.credentials = nil
	return &clone
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the status is 2xx.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns nil for a 2xx response and an [*APIError] describing the failure otherwise.
func (r *APIResponse) Err(method, path string) error {
	if r.OK() {
		return nil
	}
	return newStatusError(method, path, r.StatusCode, r.Body)
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPost, path, data)
}

// Patch performs a PATCH request with the given JSON data and returns the raw response.
func (a *APIService) Patch(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPatch, path, data)
}

// Delete performs a DELETE request and returns the raw response.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodDelete, path, nil)
}

// Do performs a request, returning the raw response for any HTTP status.
//
// A non-nil error means no usable response: a transport failure, or a 401 whose refresh failed.
func (a *APIService) Do(ctx context.Context, method, path string, body []byte) (*APIResponse, error) {
	var token *oauth2.Token
	if a.credentials != nil {
		token = a.credentials.Token()
	}

	resp, err := a.send(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || token == nil {
		return resp, nil
	}

	a.logger.Debug("access token rejected, refreshing", "method", method, "path", path)
	fresh, err := a.credentials.Refresh(ctx)
	if err != nil {
		a.logger.Warn("token refresh failed", "path", path, "error", err)
		apiErr := newStatusError(method, path, resp.StatusCode, resp.Body)
		apiErr.Err = err
		return nil, apiErr
	}

	return a.send(ctx, method, path, body, fresh)
}

// GetJSON performs a GET and decodes a 2xx JSON body into out.
func (a *APIService) GetJSON(ctx context.Context, path string, out any) error {
	return a.SendJSON(ctx, http.MethodGet, path, nil, out)
}

// SendJSON marshals in (when non-nil), performs the request and decodes a 2xx body into out (when non-nil).
func (a *APIService) SendJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: failed to encode request: %v", shared.ErrInvalidInput, err)
		}
		body = data
	}

	resp, err := a.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if err := resp.Err(method, path); err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", shared.ErrDecode, method, path, err)
	}
	return nil
}

func (a *APIService) send(ctx context.Context, method, path string, body []byte, token *oauth2.Token) (*APIResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, &APIError{Method: method, Path: path, Err: fmt.Errorf("%w: rate limiter: %w", shared.ErrNetwork, err)}
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", shared.ErrInvalidInput, err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", shared.GenerateID())
	if token != nil && token.AccessToken != "" {
		token.SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Method: method, Path: path, Err: fmt.Errorf("%w: request failed: %w", shared.ErrNetwork, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Method: method, Path: path, Err: fmt.Errorf("%w: failed to read response: %w", shared.ErrNetwork, err)}
	}

	a.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "dur", time.Since(start))

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}
