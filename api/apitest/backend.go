// Package apitest runs an in-process stand-in for the intelligence backend.
// It issues real HS256 access tokens and rotating refresh tokens, so client
// tests exercise the same wire behaviour the production service has, with
// knobs to expire tokens and slow down the refresh exchange.
package apitest

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

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/signaldeck/dashboard/api"
	"github.com/signaldeck/dashboard/internal/utils"
	"github.com/signaldeck/dashboard/session"
)

type account struct {
	id           int64
	email        string
	fullName     *string
	passwordHash []byte
	tier         session.Tier
	createdAt    time.Time
}

func (a *account) user() session.User {
	return session.User{
		ID:        a.id,
		Email:     a.email,
		FullName:  a.fullName,
		Tier:      a.tier,
		Active:    true,
		Verified:  true,
		CreatedAt: a.createdAt,
	}
}

// Backend is the fake service. All knobs are safe for concurrent use.
type Backend struct {
	t   *testing.T
	srv *httptest.Server

	mu            sync.Mutex
	signingKey    []byte
	accessTTL     time.Duration
	refreshDelay  time.Duration
	accounts      map[string]*account
	refreshTokens map[string]string
	nextID        int64
	loginCalls    int
	refreshCalls  int
}

// New starts the fake backend and registers its shutdown with t.
func New(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		t:             t,
		signingKey:    []byte(uuid.NewString()),
		accessTTL:     time.Hour,
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", b.handleRegister)
	mux.HandleFunc("POST /auth/login", b.handleLogin)
	mux.HandleFunc("POST /auth/refresh", b.handleRefresh)
	mux.HandleFunc("GET /auth/me", b.handleMe)
	mux.HandleFunc("PUT /auth/me", b.handleUpdateMe)
	mux.HandleFunc("GET /digest/daily", b.handleDigest)

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

// URL is the base URL clients should be pointed at.
func (b *Backend) URL() string {
	return b.srv.URL
}

// Seed registers an account without going through the HTTP surface.
func (b *Backend) Seed(email, password string) session.User {
	b.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		b.t.Fatalf("hash seed password: %v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.createAccount(email, hash, nil)
	return acc.user()
}

// RotateSigningKey invalidates every access token issued so far. Refresh
// tokens stay valid, which is exactly how a backend key roll looks to the
// client.
func (b *Backend) RotateSigningKey() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signingKey = []byte(uuid.NewString())
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshTokens = make(map[string]string)
}

// SetRefreshDelay makes the refresh exchange take at least d, so tests can
// pile concurrent requests onto one in-flight refresh.
func (b *Backend) SetRefreshDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshDelay = d
}

// RefreshCalls reports how many times the refresh endpoint was hit.
func (b *Backend) RefreshCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls
}

// LoginCalls reports how many times the login endpoint was hit.
func (b *Backend) LoginCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loginCalls
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		b.t.Errorf("hash password: %v", err)
		writeDetail(w, http.StatusInternalServerError, "Internal error")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.accounts[req.Email]; exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}

	var fullName *string
	if req.FullName != "" {
		fullName = &req.FullName
	}
	acc := b.createAccount(req.Email, hash, fullName)
	writeJSON(w, http.StatusCreated, acc.user())
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginCalls++

	acc, ok := b.accounts[req.Email]
	if !ok || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(req.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	writeJSON(w, http.StatusOK, b.issuePair(acc.email))
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	b.mu.Lock()
	b.refreshCalls++
	delay := b.refreshDelay
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	email, ok := b.refreshTokens[req.Token]
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	// One-shot tokens. The old refresh token dies with the exchange.
	delete(b.refreshTokens, req.Token)
	writeJSON(w, http.StatusOK, b.issuePair(email))
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	email, ok := b.authenticate(w, r)
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	acc, ok := b.accounts[email]
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, acc.user())
}

func (b *Backend) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	email, ok := b.authenticate(w, r)
	if !ok {
		return
	}

	var req struct {
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	acc, ok := b.accounts[email]
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	acc.fullName = nil
	if req.FullName != "" {
		acc.fullName = &req.FullName
	}
	writeJSON(w, http.StatusOK, acc.user())
}

func (b *Backend) handleDigest(w http.ResponseWriter, r *http.Request) {
	email, ok := b.authenticate(w, r)
	if !ok {
		return
	}

	maxItems := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("max_items")); err == nil && v > 0 {
		maxItems = v
	}
	lookback := 24 * time.Hour
	if v, err := strconv.Atoi(r.URL.Query().Get("hours_lookback")); err == nil && v > 0 {
		lookback = time.Duration(v) * time.Hour
	}

	b.mu.Lock()
	acc := b.accounts[email]
	if acc != nil && tierCap(acc.tier) < maxItems {
		maxItems = tierCap(acc.tier)
	}
	b.mu.Unlock()

	now := time.Now().UTC()
	items := make([]api.DigestItem, 0, maxItems)
	for _, item := range cannedItems(now) {
		if len(items) == maxItems {
			break
		}
		if now.Sub(item.CreatedAt) <= lookback {
			items = append(items, item)
		}
	}

	writeJSON(w, http.StatusOK, api.Digest{
		GeneratedAt:   now,
		Items:         items,
		TotalItems:    len(items),
		MarketContext: utils.Ptr("Markets steady ahead of the CPI print."),
		VixRegime:     utils.Ptr("normal"),
	})
}

// createAccount must be called with b.mu held.
func (b *Backend) createAccount(email string, hash []byte, fullName *string) *account {
	b.nextID++
	acc := &account{
		id:           b.nextID,
		email:        email,
		fullName:     fullName,
		passwordHash: hash,
		tier:         session.TierFree,
		createdAt:    time.Now().UTC(),
	}
	b.accounts[email] = acc
	return acc
}

// issuePair must be called with b.mu held.
func (b *Backend) issuePair(email string) api.TokenPair {
	refresh := uuid.NewString()
	b.refreshTokens[refresh] = email

	claims := jwt.MapClaims{
		"sub": email,
		"iat": jwt.NewNumericDate(time.Now()),
		"exp": jwt.NewNumericDate(time.Now().Add(b.accessTTL)),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.signingKey)
	if err != nil {
		b.t.Errorf("sign access token: %v", err)
	}

	return api.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}
}

func (b *Backend) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	const prefix = "Bearer "

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return "", false
	}

	b.mu.Lock()
	key := b.signingKey
	b.mu.Unlock()

	token, err := jwt.Parse(strings.TrimPrefix(header, prefix), func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return "", false
	}
	email, _ := claims["sub"].(string)
	if email == "" {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return "", false
	}
	return email, true
}

func tierCap(tier session.Tier) int {
	switch tier {
	case session.TierFree:
		return 10
	case session.TierPro:
		return 25
	default:
		return 50
	}
}

func cannedItems(now time.Time) []api.DigestItem {
	return []api.DigestItem{
		{
			ID:              utils.Ptr[int64](1),
			Symbol:          utils.Ptr("NVDA"),
			Title:           "NVDA: three desks lift price targets ahead of earnings",
			Summary:         "Sell-side targets moved up an average of 9% this morning.",
			Explanation:     utils.Ptr("Clustered upgrades into an earnings window usually precede elevated call volume."),
			HowToTrade:      utils.Ptr("Watch for confirmation above yesterday's high before sizing in."),
			SentimentScore:  utils.Ptr(0.62),
			ConfidenceScore: utils.Ptr(0.81),
			Priority:        utils.Ptr("high"),
			Category:        utils.Ptr("analyst_moves"),
			Source:          utils.Ptr("signaldeck.analysts"),
			CreatedAt:       now.Add(-2 * time.Hour),
		},
		{
			ID:              utils.Ptr[int64](2),
			Symbol:          utils.Ptr("AAPL"),
			Title:           "AAPL: unusual options activity in weekly calls",
			Summary:         "Call volume at the 2.5% OTM strike is running 4x the 20-day average.",
			SentimentScore:  utils.Ptr(0.35),
			ConfidenceScore: utils.Ptr(0.57),
			Priority:        utils.Ptr("medium"),
			Category:        utils.Ptr("options_flow"),
			Source:          utils.Ptr("signaldeck.flow"),
			CreatedAt:       now.Add(-6 * time.Hour),
		},
		{
			ID:              utils.Ptr[int64](3),
			Symbol:          utils.Ptr("SPY"),
			Title:           "SPY: breadth thinning under the index highs",
			Summary:         "Fewer than 40% of constituents closed above their 20-day average.",
			SentimentScore:  utils.Ptr(-0.28),
			ConfidenceScore: utils.Ptr(0.66),
			Priority:        utils.Ptr("low"),
			Category:        utils.Ptr("macro"),
			Source:          utils.Ptr("signaldeck.breadth"),
			CreatedAt:       now.Add(-30 * time.Hour),
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
