package server

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/signaldeck/dashboard/api"
	"github.com/signaldeck/dashboard/internal/metrics"
)

// SignupPageData contains data for rendering the sign-up page
type SignupPageData struct {
	AppName  string
	Error    string
	Email    string // Preserve email on error
	FullName string
}

// SignupPageHandler displays the sign-up page (GET /signup)
func (s *Server) SignupPageHandler() http.HandlerFunc {
	signupTmpl, err := ParseTemplate("signup.html")
	if err != nil {
		panic("Failed to parse signup template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := SignupPageData{
			AppName:  s.config.GetAppName(),
			Error:    r.URL.Query().Get("error"),
			Email:    r.URL.Query().Get("email"),
			FullName: r.URL.Query().Get("full_name"),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := signupTmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render signup template")
			http.Error(w, "Failed to render signup page", http.StatusInternalServerError)
		}
	}
}

// SignupSubmitHandler processes the sign-up form (POST /signup), then signs
// the new account in so the visitor lands on the dashboard with a live
// session.
func (s *Server) SignupSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		form := api.Registration{
			Email:           r.FormValue("email"),
			Password:        r.FormValue("password"),
			ConfirmPassword: r.FormValue("confirm_password"),
			FullName:        r.FormValue("full_name"),
		}

		if _, err := s.api.Register(r.Context(), form); err != nil {
			metrics.Signups.WithLabelValues(metrics.OutcomeFailure).Inc()
			redirectWithError(w, r, RouteSignup, signupErrorMessage(err), form.Email)
			return
		}
		metrics.Signups.WithLabelValues(metrics.OutcomeSuccess).Inc()

		pair, err := s.api.Login(r.Context(), api.Credentials{Email: form.Email, Password: form.Password})
		if err != nil {
			// The account exists; let the visitor sign in by hand.
			log.Err(err).Msg("Sign-in after registration failed")
			redirectWithError(w, r, RouteLogin, "Account created, please sign in", form.Email)
			return
		}

		if err := s.establishSession(w, r, pair); err != nil {
			log.Err(err).Msg("Failed to establish session after registration")
			redirectWithError(w, r, RouteLogin, "Account created, please sign in", form.Email)
			return
		}

		http.Redirect(w, r, RouteDashboard, http.StatusSeeOther)
	}
}

// signupErrorMessage maps a sign-up failure to a message safe to show on the form
func signupErrorMessage(err error) string {
	var vErr *api.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	if errors.Is(err, api.ErrEmailTaken) {
		return "That email is already registered"
	}
	return "Sign-up is unavailable right now, please try again"
}
