// Package services talks to the movie backend over HTTP.
//
// # API Service
//
// [APIService] is the single choke point for backend requests. It attaches the bearer token
// supplied by its [Credentials], performs exactly one refresh-and-retry when an authenticated
// request comes back 401, stamps every request with an X-Request-Id and applies an optional
// outbound rate limit.
//
// # Errors
//
// Every failure is normalized into an [*APIError]. Transport failures have Status 0 and wrap
// [shared.ErrNetwork]; HTTP failures carry the status, field-keyed validation messages and a
// generic detail, and match a sentinel by status:
//   - [shared.ErrNotAuthenticated] : 401
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrServiceUnavailable] : 5xx
//   - [shared.ErrAPIRequest] : any other non-2xx
//
// Response shapes that cannot be decoded wrap [shared.ErrDecode].
//
// # Movies
//
// [MovieService] implements [Movies]: trending, genre filtering, details with a trending-list
// fallback, recommendations and search. Raw bodies go through an optional [Cache].
//
// # Favorites
//
// [FavoritesService] implements [Favorites]. [DecodeFavorites] accepts both listing shapes the
// backend emits and returns canonical [models.FavoriteEntry] values.
package services
