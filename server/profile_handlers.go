package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/signaldeck/dashboard/api"
	"github.com/signaldeck/dashboard/session"
)

// ProfilePageData contains data for rendering the account page
type ProfilePageData struct {
	AppName string
	User    session.User
	Saved   bool
	Error   string
}

// ProfilePageHandler displays the account page (GET /profile). It renders
// from the cached profile and only asks the backend when the cache is cold.
func (s *Server) ProfilePageHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("profile.html")
	if err != nil {
		panic("Failed to parse profile template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := SessionFromContext(r.Context())
		if !ok {
			s.redirectToLogin(w, r)
			return
		}

		user, ok := store.User(r.Context())
		if !ok {
			fetched, err := s.api.Me(r.Context(), store)
			if err != nil {
				if errors.Is(err, api.ErrUnauthorized) {
					s.endSession(w, r, store)
					return
				}
				log.Err(err).Msg("Failed to load profile")
				http.Error(w, "Failed to load profile", http.StatusInternalServerError)
				return
			}
			if err := store.SaveUser(r.Context(), fetched); err != nil {
				log.Err(err).Msg("Failed to cache profile")
			}
			user = fetched
		}

		data := ProfilePageData{
			AppName: s.config.GetAppName(),
			User:    user,
			Saved:   r.URL.Query().Get("saved") != "",
			Error:   r.URL.Query().Get("error"),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render profile template")
			http.Error(w, "Failed to render profile page", http.StatusInternalServerError)
		}
	}
}

// ProfileSubmitHandler saves the display name (POST /profile)
func (s *Server) ProfileSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := SessionFromContext(r.Context())
		if !ok {
			s.redirectToLogin(w, r)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		fullName := strings.TrimSpace(r.FormValue("full_name"))
		if len(fullName) > 100 {
			redirectWithError(w, r, RouteProfile, "Name must be at most 100 characters", "")
			return
		}

		user, err := s.api.UpdateProfile(r.Context(), store, fullName)
		if err != nil {
			if errors.Is(err, api.ErrUnauthorized) {
				s.endSession(w, r, store)
				return
			}
			log.Err(err).Msg("Failed to update profile")
			redirectWithError(w, r, RouteProfile, "Could not save your changes, please try again", "")
			return
		}

		if err := store.SaveUser(r.Context(), user); err != nil {
			log.Err(err).Msg("Failed to cache updated profile")
		}

		http.Redirect(w, r, RouteProfile+"?saved=1", http.StatusSeeOther)
	}
}
