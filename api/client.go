package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/signaldeck/dashboard/session"
)

// Client is the typed surface over the backend REST API. Authenticated
// calls take the caller's session store; the client signs them and handles
// token rotation internally. Login, registration and the refresh exchange
// use a plain client because they carry no bearer token.
type Client struct {
	base       string
	plain      *http.Client
	authed     *http.Client
	refreshers *RefresherGroup
}

// New builds a Client against cfg's base URL. Sessions touched by the
// client are read from and written to repo.
func New(cfg Config, repo session.Repo) *Client {
	timeout := cfg.GetAPITimeout()

	c := &Client{
		base:  strings.TrimRight(cfg.GetAPIBaseURL(), "/"),
		plain: &http.Client{Timeout: timeout},
	}
	c.refreshers = newRefresherGroup(repo, cfg.GetSessionTTL(), c.exchangeRefreshToken)
	c.authed = &http.Client{
		Timeout:   timeout,
		Transport: &authTransport{base: http.DefaultTransport, refreshers: c.refreshers},
	}
	return c
}

// Register creates an account. The backend does not issue tokens here;
// callers follow up with Login.
func (c *Client) Register(ctx context.Context, form Registration) (session.User, error) {
	var user session.User
	if err := form.Validate(); err != nil {
		return user, err
	}

	err := c.do(ctx, c.plain, http.MethodPost, "/auth/register", nil, form, &user)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
			return user, ErrEmailTaken
		}
		return user, err
	}
	return user, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, form Credentials) (TokenPair, error) {
	var pair TokenPair
	if err := form.Validate(); err != nil {
		return pair, err
	}

	err := c.do(ctx, c.plain, http.MethodPost, "/auth/login", nil, form, &pair)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			return pair, ErrInvalidCredentials
		}
		return pair, err
	}
	return pair, nil
}

// Me fetches the profile of the session's user.
func (c *Client) Me(ctx context.Context, store *session.Store) (session.User, error) {
	var user session.User
	err := c.do(withStore(ctx, store), c.authed, http.MethodGet, "/auth/me", nil, nil, &user)
	return user, mapAuthErr(err)
}

// UpdateProfile changes the display name and returns the updated profile.
func (c *Client) UpdateProfile(ctx context.Context, store *session.Store, fullName string) (session.User, error) {
	var user session.User
	err := c.do(withStore(ctx, store), c.authed, http.MethodPut, "/auth/me", nil, profileUpdate{FullName: fullName}, &user)
	return user, mapAuthErr(err)
}

// DailyDigest fetches the ranked signal feed for the session's user.
func (c *Client) DailyDigest(ctx context.Context, store *session.Store, q DigestQuery) (Digest, error) {
	query := url.Values{}
	if q.MaxItems > 0 {
		query.Set("max_items", strconv.Itoa(q.MaxItems))
	}
	if q.HoursLookback > 0 {
		query.Set("hours_lookback", strconv.Itoa(q.HoursLookback))
	}

	var digest Digest
	err := c.do(withStore(ctx, store), c.authed, http.MethodGet, "/digest/daily", query, nil, &digest)
	return digest, mapAuthErr(err)
}

// ForgetSession releases per-session refresh state after logout.
func (c *Client) ForgetSession(sessionID string) {
	c.refreshers.Forget(sessionID)
}

func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) (TokenPair, error) {
	var pair TokenPair
	err := c.do(ctx, c.plain, http.MethodPost, "/auth/refresh", nil, refreshRequest{Token: refreshToken}, &pair)
	return pair, err
}

// do sends one JSON request and decodes the JSON response into out. Bodies
// are built from bytes.Reader so the transport can rewind them on retry.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, query url.Values, in, out any) error {
	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "[Client] encode request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return errors.Wrap(err, "[Client] build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return errors.Wrap(err, "[Client] send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeStatusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "[Client] decode response")
	}
	return nil
}

// mapAuthErr folds a lingering 401 into the package sentinel. It only fires
// after the transport has already tried a refresh, so at this point the
// session is gone.
func mapAuthErr(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return err
}
