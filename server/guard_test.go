package server_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuardRedirectsAnonymousVisitors(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/dashboard", "/profile"} {
		resp := f.getNoFollow(t, path)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode, path)

		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/login", loc.Path)
		require.Equal(t, path, loc.Query().Get("from"))
	}
}

func TestGuardNeverRendersProtectedContent(t *testing.T) {
	f := newFixture(t)

	resp := f.getNoFollow(t, "/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.NotContains(t, body(t, resp), "NVDA")
}

func TestGuardAdmitsSignedInVisitors(t *testing.T) {
	f := newFixture(t)
	f.signUp(t)

	resp := f.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Request.URL.Path)
}

func TestGuardRedirectsStaleCookie(t *testing.T) {
	f := newFixture(t)
	f.signUp(t)

	// Drop the server-side record while the browser still holds the cookie.
	srvURL, err := url.Parse(f.srv.URL)
	require.NoError(t, err)
	for _, c := range f.client.Jar.Cookies(srvURL) {
		if c.Name == "signaldeck_session" {
			require.NoError(t, f.repo.Delete(context.Background(), c.Value))
		}
	}

	resp := f.getNoFollow(t, "/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/login", loc.Path)
}

func TestAuthPagesRedirectSignedInVisitors(t *testing.T) {
	f := newFixture(t)
	f.signUp(t)

	for _, path := range []string{"/login", "/signup"} {
		resp := f.getNoFollow(t, path)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		require.Equal(t, "/dashboard", resp.Header.Get("Location"), path)
	}
}

func TestAuthPagesServeAnonymousVisitors(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/login")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body(t, resp), "Sign in")

	resp = f.get(t, "/signup")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body(t, resp), "Create your account")
}

func TestIndexServesEveryone(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f.signUp(t)
	resp = f.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body(t, resp), "Dashboard")
}
