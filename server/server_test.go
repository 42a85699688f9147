package server_test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/signaldeck/dashboard/api"
	"github.com/signaldeck/dashboard/api/apitest"
	"github.com/signaldeck/dashboard/internal/config"
	"github.com/signaldeck/dashboard/server"
	"github.com/signaldeck/dashboard/session"
)

const (
	testEmail    = "trader@example.com"
	testPassword = "opensesame1"
)

// fixture runs the full stack: this server in front, the fake backend
// behind it, and a cookie-jar client standing in for the browser.
type fixture struct {
	backend  *apitest.Backend
	repo     *session.InMemoryRepo
	srv      *httptest.Server
	client   *http.Client
	noFollow *http.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := apitest.New(t)
	t.Setenv("API_BASE_URL", backend.URL())
	t.Setenv("ENV", "TEST")

	cfg := config.New()
	repo := session.NewInMemoryRepo()
	apiClient := api.New(cfg, repo)

	handler, err := server.New(cfg, repo, apiClient)
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &fixture{
		backend: backend,
		repo:    repo,
		srv:     srv,
		client:  &http.Client{Jar: jar},
		noFollow: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := f.client.Get(f.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) getNoFollow(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := f.noFollow.Get(f.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := f.client.PostForm(f.srv.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

// signUp registers through the real form and leaves the client signed in.
func (f *fixture) signUp(t *testing.T) {
	t.Helper()

	resp := f.postForm(t, "/signup", url.Values{
		"full_name":        {"Ada Trader"},
		"email":            {testEmail},
		"password":         {testPassword},
		"confirm_password": {testPassword},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Request.URL.Path)
}

func TestSignupLandsOnDashboard(t *testing.T) {
	f := newFixture(t)
	f.signUp(t)

	resp := f.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	page := body(t, resp)
	require.Contains(t, page, "Ada Trader")
	require.Contains(t, page, "NVDA")
	require.Equal(t, 1, f.backend.LoginCalls())
}

func TestSignupRejectsTakenEmail(t *testing.T) {
	f := newFixture(t)
	f.backend.Seed(testEmail, testPassword)

	resp := f.postForm(t, "/signup", url.Values{
		"email":            {testEmail},
		"password":         {testPassword},
		"confirm_password": {testPassword},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/signup", resp.Request.URL.Path)
	require.Contains(t, body(t, resp), "already registered")
}

func TestSignupRejectsPasswordMismatch(t *testing.T) {
	f := newFixture(t)

	resp := f.postForm(t, "/signup", url.Values{
		"email":            {testEmail},
		"password":         {testPassword},
		"confirm_password": {"somethingelse1"},
	})
	require.Equal(t, "/signup", resp.Request.URL.Path)
	require.Contains(t, body(t, resp), "passwords do not match")
	require.Equal(t, 0, f.backend.LoginCalls())
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.backend.Seed(testEmail, testPassword)

	resp := f.postForm(t, "/login", url.Values{
		"email":    {testEmail},
		"password": {testPassword},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Request.URL.Path)
}

func TestLoginWrongPasswordShowsFlash(t *testing.T) {
	f := newFixture(t)
	f.backend.Seed(testEmail, testPassword)

	resp := f.postForm(t, "/login", url.Values{
		"email":    {testEmail},
		"password": {"wrongwrong"},
	})
	require.Equal(t, "/login", resp.Request.URL.Path)

	page := body(t, resp)
	require.Contains(t, page, "Invalid email or password")
	// The typed email survives the bounce.
	require.Contains(t, page, testEmail)
}

func TestLoginReturnsToRequestedPage(t *testing.T) {
	f := newFixture(t)
	f.backend.Seed(testEmail, testPassword)

	resp := f.postForm(t, "/login", url.Values{
		"email":    {testEmail},
		"password": {testPassword},
		"from":     {"/profile"},
	})
	require.Equal(t, "/profile", resp.Request.URL.Path)
}

func TestLoginIgnoresOffsiteReturnPath(t *testing.T) {
	f := newFixture(t)
	f.backend.Seed(testEmail, testPassword)

	resp := f.postForm(t, "/login", url.Values{
		"email":    {testEmail},
		"password": {testPassword},
		"from":     {"https://evil.example.com/phish"},
	})
	require.Equal(t, "/dashboard", resp.Request.URL.Path)
}

// TestExpiredAccessTokenIsInvisible is the long way through the token
// rotation path: the page keeps working after the backend invalidates every
// access token, at the cost of exactly one refresh exchange.
func TestExpiredAccessTokenIsInvisible(t *testing.T) {
	f := newFixture(t)
	f.signUp(t)

	f.backend.RotateSigningKey()

	resp := f.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body(t, resp), "NVDA")
	require.Equal(t, 1, f.backend.RefreshCalls())

	// The rotated pair is persisted; the next page load needs no refresh.
	resp = f.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, f.backend.RefreshCalls())
}

func TestRejectedRefreshEndsSession(t *testing.T) {
	f := newFixture(t)
	f.signUp(t)

	f.backend.RotateSigningKey()
	f.backend.RevokeRefreshTokens()

	resp := f.getNoFollow(t, "/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?error=Session+expired", resp.Header.Get("Location"))

	// The session is gone; the guard now bounces straight to sign-in.
	resp = f.getNoFollow(t, "/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Location"), "/login")
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.signUp(t)

	resp := f.get(t, "/logout")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/login", resp.Request.URL.Path)

	resp = f.getNoFollow(t, "/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = f.get(t, "/logout") // logging out twice is harmless
	require.Equal(t, "/login", resp.Request.URL.Path)
}

func TestDashboardCategoryFilter(t *testing.T) {
	f := newFixture(t)
	f.signUp(t)

	resp := f.get(t, "/dashboard?category=options_flow")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	page := body(t, resp)
	require.Contains(t, page, "AAPL")
	require.NotContains(t, page, "NVDA:")
}

func TestProfileUpdate(t *testing.T) {
	f := newFixture(t)
	f.signUp(t)

	resp := f.postForm(t, "/profile", url.Values{
		"full_name": {"Grace Hopper"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/profile", resp.Request.URL.Path)

	page := body(t, resp)
	require.Contains(t, page, "Profile updated.")
	require.Contains(t, page, "Grace Hopper")

	// The dashboard greets by the new name from the session cache.
	resp = f.get(t, "/dashboard")
	require.Contains(t, body(t, resp), "Grace Hopper")
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Contains(t, body(t, resp), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body(t, resp), "signaldeck_api_retried_requests_total")
}

func TestStaticAssets(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/css/app.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/css"))

	resp = f.get(t, "/js/app.js")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.get(t, "/css/missing.css")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
