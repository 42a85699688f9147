package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/signaldeck/dashboard/session"
)

// LogoutHandler ends the session and returns the visitor to the sign-in
// page (GET /logout). Logout is local: the backend holds no session state,
// the abandoned tokens simply age out.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store, ok := s.sessionFromRequest(r); ok {
			if err := store.Clear(r.Context()); err != nil {
				log.Err(err).Str("session", store.ID()).Msg("Failed to clear session on logout")
			}
			s.api.ForgetSession(store.ID())
		}

		s.clearSessionCookie(w, r)
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
	}
}

// endSession is the involuntary flavour of logout, used when the backend has
// rejected the session's tokens mid-page. The record is already cleared by
// then; this drops the cookie and explains the bounce.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request, store *session.Store) {
	if err := store.Clear(r.Context()); err != nil {
		log.Err(err).Str("session", store.ID()).Msg("Failed to clear rejected session")
	}
	s.api.ForgetSession(store.ID())
	s.clearSessionCookie(w, r)
	http.Redirect(w, r, RouteLogin+"?error=Session+expired", http.StatusSeeOther)
}
