// Package session holds the signed-in state for one browser: a bearer
// token pair issued by the Market Intelligence API plus a cached profile
// snapshot. The browser itself only ever carries an opaque session ID in
// a cookie; tokens never leave the server process.
package session

import "time"

// Tier is the subscription level reported by the backend.
type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
	TierElite   Tier = "elite"
)

// User is the profile snapshot returned by the backend. It is a
// denormalized copy of server truth and may go stale; it is refreshed on
// login, registration and profile updates.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name,omitempty"`
	Tier      Tier      `json:"subscription_tier"`
	Active    bool      `json:"is_active"`
	Verified  bool      `json:"is_verified"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the full name when the user has set one, otherwise
// the email address.
func (u User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Email
}

// Session is the stored record for one signed-in browser.
type Session struct {
	ID string `json:"id"`

	// Tokens (access is sent on every authorized call, refresh mints new pairs)
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`

	User *User `json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
