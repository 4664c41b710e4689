package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// ResponseCache stores raw response bodies by request path. It satisfies services.Cache.
type ResponseCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewResponseCache creates a new ResponseCache with the given database connection
func NewResponseCache(db *sql.DB) *ResponseCache {
	return &ResponseCache{db: db, now: time.Now}
}

// Get returns the body for key when it was stored less than maxAge ago.
func (c *ResponseCache) Get(key string, maxAge time.Duration) ([]byte, bool, error) {
	var (
		body    []byte
		fetched time.Time
	)
	err := c.db.QueryRow(`SELECT body, fetched_at FROM response_cache WHERE key = ?`, key).Scan(&body, &fetched)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if c.now().Sub(fetched) >= maxAge {
		return nil, false, nil
	}
	return body, true, nil
}

// Put stores body under key, replacing any previous entry.
func (c *ResponseCache) Put(key string, body []byte) error {
	query := `
		INSERT INTO response_cache (key, body, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at
	`
	if _, err := c.db.Exec(query, key, body, c.now().UTC()); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Purge deletes entries older than maxAge and returns how many were removed. Zero removes everything.
func (c *ResponseCache) Purge(maxAge time.Duration) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if maxAge <= 0 {
		res, err = c.db.Exec(`DELETE FROM response_cache`)
	} else {
		res, err = c.db.Exec(`DELETE FROM response_cache WHERE fetched_at < ?`, c.now().Add(-maxAge).UTC())
	}
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged entries: %w", err)
	}
	return n, nil
}

// Count returns the number of cached entries.
func (c *ResponseCache) Count() (int, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM response_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}
