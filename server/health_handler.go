package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

type healthResponse struct {
	Status  string `json:"status"`
	App     string `json:"app"`
	Env     string `json:"env"`
	Session string `json:"session_store"`
}

// HealthHandler reports process liveness and session store reachability
// (GET /healthz)
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:  "ok",
			App:     s.config.GetAppName(),
			Env:     s.env,
			Session: "ok",
		}

		status := http.StatusOK
		if pinger, ok := s.sessions.(interface{ Ping(context.Context) error }); ok {
			if err := pinger.Ping(r.Context()); err != nil {
				log.Err(err).Msg("Session store ping failed")
				resp.Status = "degraded"
				resp.Session = "unreachable"
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
