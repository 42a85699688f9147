package server

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/signaldeck/dashboard/api"
	"github.com/signaldeck/dashboard/session"
)

// feedLookbackHours is the window the daily feed covers.
const feedLookbackHours = 24

// DashboardPageData contains data for rendering the signal feed
type DashboardPageData struct {
	AppName    string
	User       session.User
	Digest     api.Digest
	Category   string // Active category filter, empty for all
	Categories []string
	FeedError  string
}

// tierMaxItems maps a subscription tier to its feed depth.
func tierMaxItems(tier session.Tier) int {
	switch tier {
	case session.TierFree:
		return 10
	case session.TierPro:
		return 25
	default:
		return 50
	}
}

// DashboardHandler renders the daily signal feed (GET /dashboard)
func (s *Server) DashboardHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("dashboard.html")
	if err != nil {
		panic("Failed to parse dashboard template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := SessionFromContext(r.Context())
		if !ok {
			s.redirectToLogin(w, r)
			return
		}

		user, _ := store.User(r.Context())

		data := DashboardPageData{
			AppName:  s.config.GetAppName(),
			User:     user,
			Category: r.URL.Query().Get("category"),
		}

		digest, err := s.api.DailyDigest(r.Context(), store, api.DigestQuery{
			MaxItems:      tierMaxItems(user.Tier),
			HoursLookback: feedLookbackHours,
		})
		switch {
		case errors.Is(err, api.ErrUnauthorized):
			s.endSession(w, r, store)
			return
		case err != nil:
			log.Err(err).Msg("Failed to fetch daily digest")
			data.FeedError = "The signal feed is unavailable right now."
		default:
			data.Digest = filterDigest(digest, data.Category)
			data.Categories = digestCategories(digest)
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render dashboard template")
			http.Error(w, "Failed to render dashboard", http.StatusInternalServerError)
		}
	}
}

// filterDigest narrows the feed to one category. An empty category returns
// the feed untouched. TotalItems keeps the unfiltered count so the page can
// say "3 of 12 signals".
func filterDigest(digest api.Digest, category string) api.Digest {
	if category == "" {
		return digest
	}

	filtered := digest
	filtered.Items = nil
	for _, item := range digest.Items {
		if item.Category != nil && *item.Category == category {
			filtered.Items = append(filtered.Items, item)
		}
	}
	return filtered
}

// digestCategories lists the categories present in the feed, in feed order.
func digestCategories(digest api.Digest) []string {
	seen := make(map[string]bool)
	var categories []string
	for _, item := range digest.Items {
		if item.Category == nil || seen[*item.Category] {
			continue
		}
		seen[*item.Category] = true
		categories = append(categories, *item.Category)
	}
	return categories
}
