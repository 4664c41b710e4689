// Package models defines the data exchanged with the movie backend and the client-side projections built from it.
//
// The package contains two categories of types:
//
// 1. Read-only projections from the backend:
//   - [Movie] : list entry returned by trending, search and recommendations
//   - [MovieDetails] : full record returned by the details endpoint
//   - [Genre] and the fixed [Genres] table used for genre tabs and search filters
//
// 2. Session-owned data:
//   - [UserSummary] : the signed-in user, replaced wholesale, never edited in place
//   - [FavoriteEntry] : one favorited movie, keyed by movie id within a user's collection
//
// [SearchParams] and [SearchFilter] describe a server-side search request and its client-side refinement.
package models
