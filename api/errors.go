package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized is returned when the backend rejects a bearer token
	// and the token could not be refreshed.
	ErrUnauthorized = errors.New("authorization rejected")

	// ErrSessionExpired is returned when the refresh token itself is
	// rejected. The session is cleared before this is reported.
	ErrSessionExpired = errors.New("session expired")

	// ErrEmailTaken is returned by Register when the address is already in use.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned by Login on a bad email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// StatusError carries a non-2xx backend response. Detail holds the
// human-readable message from the response body when one was sent.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// ValidationError reports a form field that failed local validation.
// No request is sent when one of these is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type errorBody struct {
	Detail string `json:"detail"`
}

func decodeStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return statusErr
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != "" {
		statusErr.Detail = parsed.Detail
	}
	return statusErr
}
