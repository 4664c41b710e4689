// Package repositories implements SQLite persistence for client-side state.
//
// Key Implementations:
//   - [TokenRepository] : the session token pair, written both-or-neither in one transaction
//   - [ResponseCache] : raw backend responses keyed by request path, expired by age
//
// Schemas live in the embedded migrations of the shared package.
package repositories
