package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/signaldeck/dashboard/session"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the request's session store
	ContextKeySession ContextKey = "session"
)

// RequireSession is middleware for pages that need a signed-in visitor. It
// only checks that a session with tokens exists; whether those tokens are
// still good is the backend's call, made when the page fetches data. Anyone
// without a session is sent to sign-in before any data is touched, with the
// original destination carried in the "from" parameter.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			store, ok := s.sessionFromRequest(r)
			if !ok || !store.IsAuthenticated(r.Context()) {
				s.redirectToLogin(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, store)
			next(w, r.WithContext(ctx))
		}
	}
}

// RedirectAuthenticated is middleware for pages that only make sense when
// signed out (sign-in, sign-up). Signed-in visitors go to the dashboard.
func (s *Server) RedirectAuthenticated() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if store, ok := s.sessionFromRequest(r); ok && store.IsAuthenticated(r.Context()) {
				http.Redirect(w, r, RouteDashboard, http.StatusSeeOther)
				return
			}
			next(w, r)
		}
	}
}

// sessionFromRequest binds a store to the session cookie. A false return
// means the browser sent no usable cookie; it says nothing about whether
// the session record still exists.
func (s *Server) sessionFromRequest(r *http.Request) (*session.Store, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	return session.Open(s.sessions, cookie.Value, s.sessionTTL), true
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := RouteLogin
	if r.URL.Path != "" && r.URL.Path != RouteIndex {
		target += "?from=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// SessionFromContext returns the store injected by RequireSession.
func SessionFromContext(ctx context.Context) (*session.Store, bool) {
	store, ok := ctx.Value(ContextKeySession).(*session.Store)
	return store, ok
}
