package models

// UserSummary is the signed-in user as reported by the backend.
type UserSummary struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
