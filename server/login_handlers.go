package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/signaldeck/dashboard/api"
	"github.com/signaldeck/dashboard/internal/metrics"
	"github.com/signaldeck/dashboard/session"
)

// LoginPageData contains data for rendering the sign-in page
type LoginPageData struct {
	AppName string
	Error   string
	Email   string // Preserve email on error
	From    string // Where to land after sign-in
}

// LoginPageHandler displays the sign-in page (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	loginTmpl, err := ParseTemplate("login.html")
	if err != nil {
		panic("Failed to parse login template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := LoginPageData{
			AppName: s.config.GetAppName(),
			Error:   r.URL.Query().Get("error"),
			Email:   r.URL.Query().Get("email"),
			From:    safeReturnPath(r.URL.Query().Get("from")),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := loginTmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render login template")
			http.Error(w, "Failed to render login page", http.StatusInternalServerError)
		}
	}
}

// LoginSubmitHandler processes the sign-in form submission (POST /login)
func (s *Server) LoginSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		form := api.Credentials{
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
		}

		pair, err := s.api.Login(r.Context(), form)
		if err != nil {
			metrics.SignIns.WithLabelValues(metrics.OutcomeFailure).Inc()
			redirectWithError(w, r, RouteLogin, loginErrorMessage(err), form.Email)
			return
		}

		if err := s.establishSession(w, r, pair); err != nil {
			log.Err(err).Msg("Failed to establish session after sign-in")
			redirectWithError(w, r, RouteLogin, "Something went wrong, please try again", form.Email)
			return
		}
		metrics.SignIns.WithLabelValues(metrics.OutcomeSuccess).Inc()

		target := RouteDashboard
		if from := safeReturnPath(r.FormValue("from")); from != "" {
			target = from
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

// loginErrorMessage maps a sign-in failure to a message safe to show on the form
func loginErrorMessage(err error) string {
	var vErr *api.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	if errors.Is(err, api.ErrInvalidCredentials) {
		return "Invalid email or password"
	}
	return "Sign-in is unavailable right now, please try again"
}

// establishSession creates the server-side session record for a fresh token
// pair, loads the profile, and only then hands the browser its cookie. A
// session that cannot be fully built is discarded, never half-kept.
func (s *Server) establishSession(w http.ResponseWriter, r *http.Request, pair api.TokenPair) error {
	ctx := r.Context()

	store := session.New(s.sessions, s.sessionTTL)
	if err := store.Save(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return fmt.Errorf("[establishSession] save tokens: %w", err)
	}

	user, err := s.api.Me(ctx, store)
	if err != nil {
		s.discardSession(ctx, store)
		return fmt.Errorf("[establishSession] load profile: %w", err)
	}
	if err := store.SaveUser(ctx, user); err != nil {
		s.discardSession(ctx, store)
		return fmt.Errorf("[establishSession] save profile: %w", err)
	}

	s.SetSessionCookie(w, r, store.ID(), s.sessionTTL)
	return nil
}

func (s *Server) discardSession(ctx context.Context, store *session.Store) {
	if err := store.Clear(ctx); err != nil {
		log.Err(err).Str("session", store.ID()).Msg("Failed to discard session")
	}
	s.api.ForgetSession(store.ID())
}
