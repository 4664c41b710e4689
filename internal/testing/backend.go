package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/cinex/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// FakeBackend is an in-process movie backend with call counters and failure switches.
//
// Tokens are HS256 JWTs signed with [FakeSigningKey]; only the latest access token is accepted.
// Favorite ids start at 100 so they never collide with the fixture movie ids.
type FakeBackend struct {
	*httptest.Server

	mu        sync.Mutex
	calls     map[string]int
	users     map[string]fakeUser
	access    string
	refresh   string
	tokenSeq  int
	favorites []fakeFavorite
	nextFavID int

	// Movies is the trending list; Details overrides the details endpoint per id.
	Movies  []models.Movie
	Details map[int]models.MovieDetails

	// NestedFavorites switches the listing to {favorite_movies:[{id, movie:{...}}]}.
	NestedFavorites bool
	// TrendingArray serves trending as a bare array instead of {results}.
	TrendingArray bool
	// FailRefresh rejects every refresh exchange.
	FailRefresh bool
	// FavoritesStatus, when non-zero, is returned by every favorites endpoint.
	FavoritesStatus int
	// BeforeFavorites runs before a favorites listing is written, outside the lock.
	BeforeFavorites func()
}

type fakeUser struct {
	ID       int
	Username string
	Email    string
	Password string
}

type fakeFavorite struct {
	ID        int
	MovieID   int
	CreatedAt time.Time
}

// FakeSigningKey signs every token the fake backend issues.
var FakeSigningKey = []byte("cinex-test-secret")

// AccessLifetime is the exp offset stamped on fake access tokens.
const AccessLifetime = 5 * time.Minute

// Fixture users and movies.
const (
	FakeUsername = "alice"
	FakePassword = "password123"
	FakeEmail    = "alice@example.com"
)

// FakeMovies is the default trending list.
func FakeMovies() []models.Movie {
	return []models.Movie{
		{ID: 1, Title: "Arrival", ReleaseDate: "2016-11-11", VoteAverage: 7.6, GenreIDs: []int{18, 878}},
		{ID: 2, Title: "Heat", ReleaseDate: "1995-12-15", VoteAverage: 7.9, GenreIDs: []int{28, 80, 18}},
		{ID: 3, Title: "Paddington 2", ReleaseDate: "2017-11-10", VoteAverage: 7.5, GenreIDs: []int{35, 10751}},
		{ID: 4, Title: "The Thing", ReleaseDate: "1982-06-25", VoteAverage: 8.1, GenreIDs: []int{27, 878}},
	}
}

// NewFakeBackend starts a backend seeded with one user and [FakeMovies]. It is closed on test cleanup.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	fb := &FakeBackend{
		calls:     make(map[string]int),
		users:     map[string]fakeUser{FakeUsername: {ID: 1, Username: FakeUsername, Email: FakeEmail, Password: FakePassword}},
		nextFavID: 100,
		Movies:    FakeMovies(),
		Details:   make(map[int]models.MovieDetails),
	}

	mux := http.NewServeMux()
	fb.handle(mux, "POST /auth/login/", fb.login)
	fb.handle(mux, "POST /auth/register/", fb.register)
	fb.handle(mux, "POST /auth/token/refresh/", fb.refreshToken)
	fb.handle(mux, "GET /auth/user/", fb.authed(fb.user))
	fb.handle(mux, "GET /auth/favorites/", fb.authed(fb.listFavorites))
	fb.handle(mux, "POST /auth/favorites/", fb.authed(fb.addFavorite))
	fb.handle(mux, "DELETE /auth/favorites/{id}/", fb.authed(fb.removeFavorite))
	fb.handle(mux, "GET /movies/trending/", fb.trending)
	fb.handle(mux, "GET /movies/search", fb.search)
	fb.handle(mux, "GET /movies/{id}", fb.movie)
	fb.handle(mux, "GET /movies/{id}/recommendations/", fb.recommendations)

	fb.Server = httptest.NewServer(mux)
	t.Cleanup(fb.Close)
	return fb
}

// handle registers pattern as an exact match; counters stay keyed by the plain pattern.
func (fb *FakeBackend) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	route := pattern
	if strings.HasSuffix(route, "/") {
		route += "{$}"
	}
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.calls[pattern]++
		fb.mu.Unlock()
		h(w, r)
	})
}

// Configure mutates the switches under the backend lock.
func (fb *FakeBackend) Configure(fn func(*FakeBackend)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fn(fb)
}

// Calls returns how many requests hit pattern, e.g. "GET /auth/favorites/".
func (fb *FakeBackend) Calls(pattern string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls[pattern]
}

// TotalCalls returns the number of requests across all routes.
func (fb *FakeBackend) TotalCalls() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	total := 0
	for _, n := range fb.calls {
		total += n
	}
	return total
}

// ExpireAccess revokes the current access token so the next authenticated call gets a 401.
func (fb *FakeBackend) ExpireAccess() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.access = ""
}

// RefreshToken returns the refresh token the backend currently accepts.
func (fb *FakeBackend) RefreshToken() string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.refresh
}

// IssueTokens mints a fresh pair as if the user had logged in.
func (fb *FakeBackend) IssueTokens() (access, refresh string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.issue()
}

// SeedFavorite stores a favorite for movieID directly and returns its id.
func (fb *FakeBackend) SeedFavorite(movieID int) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.addLocked(movieID)
}

// FavoriteMovieIDs returns the backend's favorites in insertion order.
func (fb *FakeBackend) FavoriteMovieIDs() []int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	ids := make([]int, 0, len(fb.favorites))
	for _, f := range fb.favorites {
		ids = append(ids, f.MovieID)
	}
	return ids
}

func (fb *FakeBackend) issue() (string, string) {
	fb.tokenSeq++
	fb.access = mint("access", fb.tokenSeq, AccessLifetime)
	fb.refresh = mint("refresh", fb.tokenSeq, 24*time.Hour)
	return fb.access, fb.refresh
}

// mint signs a token shaped like the backend's: a token_type claim, the user id and a unique jti.
func mint(kind string, seq int, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"token_type": kind,
		"user_id":    1,
		"jti":        fmt.Sprintf("%s-%d", kind, seq),
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(FakeSigningKey)
	if err != nil {
		panic(err)
	}
	return signed
}

func (fb *FakeBackend) addLocked(movieID int) int {
	for _, f := range fb.favorites {
		if f.MovieID == movieID {
			return f.ID
		}
	}
	id := fb.nextFavID
	fb.nextFavID++
	fb.favorites = append(fb.favorites, fakeFavorite{ID: id, MovieID: movieID, CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)})
	return id
}

func (fb *FakeBackend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		valid := fb.access != "" && r.Header.Get("Authorization") == "Bearer "+fb.access
		fb.mu.Unlock()

		if !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}
		next(w, r)
	}
}

func (fb *FakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed request."})
		return
	}

	fields := map[string][]string{}
	if body.Username == "" {
		fields["username"] = []string{"This field may not be blank."}
	}
	if body.Password == "" {
		fields["password"] = []string{"This field may not be blank."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	fb.mu.Lock()
	u, ok := fb.users[body.Username]
	if !ok || u.Password != body.Password {
		fb.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	access, refresh := fb.issue()
	fb.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"user":    models.UserSummary{ID: u.ID, Username: u.Username, Email: u.Email},
		"access":  access,
		"refresh": refresh,
	})
}

func (fb *FakeBackend) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Password2 string `json:"password2"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed request."})
		return
	}
	if body.Password != body.Password2 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"password": {"Password fields didn't match."}})
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()

	if _, exists := fb.users[body.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {"A user with that username already exists."}})
		return
	}
	for _, u := range fb.users {
		if u.Email == body.Email {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"A user with that email already exists."}})
			return
		}
	}

	u := fakeUser{ID: len(fb.users) + 1, Username: body.Username, Email: body.Email, Password: body.Password}
	fb.users[u.Username] = u
	writeJSON(w, http.StatusCreated, models.UserSummary{ID: u.ID, Username: u.Username, Email: u.Email})
}

func (fb *FakeBackend) refreshToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	fb.mu.Lock()
	if fb.FailRefresh || body.Refresh == "" || body.Refresh != fb.refresh {
		fb.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	fb.tokenSeq++
	fb.access = mint("access", fb.tokenSeq, AccessLifetime)
	access := fb.access
	fb.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (fb *FakeBackend) user(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	u := fb.users[FakeUsername]
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, models.UserSummary{ID: u.ID, Username: u.Username, Email: u.Email})
}

func (fb *FakeBackend) listFavorites(w http.ResponseWriter, r *http.Request) {
	if fb.failFavorites(w) {
		return
	}
	if hook := fb.hook(); hook != nil {
		hook()
	}

	fb.mu.Lock()
	nested := fb.NestedFavorites
	favs := append([]fakeFavorite(nil), fb.favorites...)
	fb.mu.Unlock()

	out := make([]map[string]any, 0, len(favs))
	for _, f := range favs {
		m := fb.movieByID(f.MovieID)
		if nested {
			out = append(out, map[string]any{"id": f.ID, "movie": m, "created_at": f.CreatedAt})
			continue
		}
		out = append(out, map[string]any{
			"movie_id":     f.MovieID,
			"title":        m.Title,
			"overview":     m.Overview,
			"release_date": m.ReleaseDate,
			"poster_path":  m.PosterPath,
			"vote_average": m.VoteAverage,
			"created_at":   f.CreatedAt,
		})
	}

	if nested {
		writeJSON(w, http.StatusOK, map[string]any{"favorite_movies": out})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (fb *FakeBackend) addFavorite(w http.ResponseWriter, r *http.Request) {
	if fb.failFavorites(w) {
		return
	}

	var body struct {
		MovieID int `json:"movie_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.MovieID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"movie_id": {"A valid integer is required."}})
		return
	}

	fb.mu.Lock()
	id := fb.addLocked(body.MovieID)
	fb.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "movie_id": body.MovieID})
}

func (fb *FakeBackend) removeFavorite(w http.ResponseWriter, r *http.Request) {
	if fb.failFavorites(w) {
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i, f := range fb.favorites {
		if f.ID == id || f.MovieID == id {
			fb.favorites = append(fb.favorites[:i], fb.favorites[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (fb *FakeBackend) trending(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	movies := append([]models.Movie(nil), fb.Movies...)
	array := fb.TrendingArray
	fb.mu.Unlock()

	if array {
		writeJSON(w, http.StatusOK, movies)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": movies})
}

func (fb *FakeBackend) movie(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	fb.mu.Lock()
	details, ok := fb.Details[id]
	fb.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (fb *FakeBackend) recommendations(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))

	fb.mu.Lock()
	var out []models.Movie
	for _, m := range fb.Movies {
		if m.ID != id {
			out = append(out, m)
		}
	}
	fb.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (fb *FakeBackend) search(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("query"))
	year := r.URL.Query().Get("year")

	fb.mu.Lock()
	results := []models.Movie{}
	for _, m := range fb.Movies {
		if !strings.Contains(strings.ToLower(m.Title), q) {
			continue
		}
		if year != "" && !strings.HasPrefix(m.ReleaseDate, year) {
			continue
		}
		results = append(results, m)
	}
	fb.mu.Unlock()

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	writeJSON(w, http.StatusOK, map[string]any{
		"results":       results,
		"page":          max(page, 1),
		"total_pages":   1,
		"total_results": len(results),
	})
}

func (fb *FakeBackend) movieByID(id int) models.Movie {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, m := range fb.Movies {
		if m.ID == id {
			return m
		}
	}
	return models.Movie{ID: id, Title: fmt.Sprintf("Movie %d", id)}
}

func (fb *FakeBackend) failFavorites(w http.ResponseWriter) bool {
	fb.mu.Lock()
	status := fb.FavoritesStatus
	fb.mu.Unlock()
	if status == 0 {
		return false
	}
	writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
	return true
}

func (fb *FakeBackend) hook() func() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.BeforeFavorites
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
