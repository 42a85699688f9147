// Package api is the typed client for the SignalDeck intelligence backend.
// It signs requests with the caller's session tokens and refreshes an expired
// access token in-flight, so handlers never deal with token rotation.
package api

import (
	"time"
)

// Config is the slice of application configuration the client needs.
type Config interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
	GetSessionTTL() time.Duration
}

// Credentials is the sign-in form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

// Registration is the sign-up form. ConfirmPassword is checked locally and
// never sent to the backend.
type Registration struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=100"`
	ConfirmPassword string `json:"-" validate:"required,eqfield=Password"`
	FullName        string `json:"full_name,omitempty" validate:"max=100"`
}

// TokenPair is the backend's bearer token issue.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type refreshRequest struct {
	Token string `json:"token"`
}

type profileUpdate struct {
	FullName string `json:"full_name"`
}

// Digest is one generated run of the daily intelligence feed.
type Digest struct {
	GeneratedAt   time.Time    `json:"generated_at"`
	Items         []DigestItem `json:"items"`
	TotalItems    int          `json:"total_items"`
	MarketContext *string      `json:"market_context,omitempty"`
	VixRegime     *string      `json:"vix_regime,omitempty"`
}

// DigestItem is a single ranked signal in the feed. Most fields are optional
// because upstream analysers fill in what they can.
type DigestItem struct {
	ID              *int64    `json:"id,omitempty"`
	Symbol          *string   `json:"symbol,omitempty"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	Explanation     *string   `json:"explanation,omitempty"`
	HowToTrade      *string   `json:"how_to_trade,omitempty"`
	SentimentScore  *float64  `json:"sentiment_score,omitempty"`
	ConfidenceScore *float64  `json:"confidence_score,omitempty"`
	Priority        *string   `json:"priority,omitempty"`
	Category        *string   `json:"category,omitempty"`
	Source          *string   `json:"source,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// DigestQuery narrows a daily digest fetch. Zero values are omitted.
type DigestQuery struct {
	MaxItems      int
	HoursLookback int
}
