// Package metrics exposes Prometheus counters for the auth and API flows.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signaldeck",
		Subsystem: "auth",
		Name:      "sign_ins_total",
		Help:      "Sign-in attempts by outcome.",
	}, []string{"outcome"})

	Signups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signaldeck",
		Subsystem: "auth",
		Name:      "sign_ups_total",
		Help:      "Registration attempts by outcome.",
	}, []string{"outcome"})

	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signaldeck",
		Subsystem: "auth",
		Name:      "token_refreshes_total",
		Help:      "Token refresh attempts by outcome.",
	}, []string{"outcome"})

	RetriedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "signaldeck",
		Subsystem: "api",
		Name:      "retried_requests_total",
		Help:      "Requests replayed after a successful token refresh.",
	})
)

const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
