package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// sessionCookieName is the name of the cookie holding the session ID.
	// The ID is an opaque handle; the tokens it unlocks never leave the server.
	sessionCookieName = "signaldeck_session"
)

func (s *Server) SetSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string, ttl time.Duration) {
	isSecure := getScheme(r) == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// redirectWithError helper for form error redirects. The message and the
// typed email ride back to the form as query parameters.
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg, email string) {
	params := url.Values{}
	params.Set("error", errorMsg)
	if email != "" {
		params.Set("email", email)
	}
	if from := r.FormValue("from"); safeReturnPath(from) != "" {
		params.Set("from", from)
	}
	http.Redirect(w, r, path+"?"+params.Encode(), http.StatusSeeOther)
}

// safeReturnPath keeps post-login redirects on this site. Anything that is
// not a local absolute path is discarded.
func safeReturnPath(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") {
		return ""
	}
	return from
}
