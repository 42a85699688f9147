package config

import "time"

type APIConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
}

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL returns the base URL of the backing Market Intelligence API
// (e.g., "https://api.signaldeck.io/api/v1")
func (API) GetAPIBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8000/api/v1")
}

func (API) GetAPITimeout() time.Duration {
	return 30 * time.Second
}
