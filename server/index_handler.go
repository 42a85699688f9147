package server

import (
	"net/http"
)

// IndexHandler renders the home page
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("index.html")
	if err != nil {
		panic("Failed to parse index template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		signedIn := false
		if store, ok := s.sessionFromRequest(r); ok {
			signedIn = store.IsAuthenticated(r.Context())
		}

		data := map[string]interface{}{
			"AppName":  s.config.GetAppName(),
			"SignedIn": signedIn,
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		_ = tmpl.Execute(w, data)
	}
}
