package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/cinex/internal/shared"
	"golang.org/x/oauth2"
)

// Storage keys for the token pair.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// TokenRepository persists the session token pair. It satisfies auth.TokenStore.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new TokenRepository with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Load returns the stored pair, or nil when no access token is stored.
func (r *TokenRepository) Load() (*oauth2.Token, error) {
	rows, err := r.db.Query(`SELECT key, value FROM session_tokens`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	tok := &oauth2.Token{TokenType: "Bearer"}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		switch key {
		case AccessTokenKey:
			tok.AccessToken = value
		case RefreshTokenKey:
			tok.RefreshToken = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tokens: %w", err)
	}

	if tok.AccessToken == "" {
		return nil, nil
	}
	return tok, nil
}

// Save replaces both tokens atomically.
func (r *TokenRepository) Save(tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" || tok.RefreshToken == "" {
		return fmt.Errorf("%w: both tokens are required", shared.ErrInvalidInput)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO session_tokens (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	return withTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(query, AccessTokenKey, tok.AccessToken, now); err != nil {
			return fmt.Errorf("failed to save access token: %w", err)
		}
		if _, err := tx.Exec(query, RefreshTokenKey, tok.RefreshToken, now); err != nil {
			return fmt.Errorf("failed to save refresh token: %w", err)
		}
		return nil
	})
}

// Clear removes both tokens.
func (r *TokenRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM session_tokens`); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

// UpdatedAt returns when the access token was last written.
func (r *TokenRepository) UpdatedAt() (time.Time, error) {
	var updated time.Time
	err := r.db.QueryRow(`SELECT updated_at FROM session_tokens WHERE key = ?`, AccessTokenKey).Scan(&updated)
	if err == sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("%w: no stored session", shared.ErrNotAuthenticated)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get token timestamp: %w", err)
	}
	return updated, nil
}
