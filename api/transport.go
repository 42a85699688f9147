package api

import (
	"context"
	"io"
	"net/http"

	"github.com/signaldeck/dashboard/internal/metrics"
	"github.com/signaldeck/dashboard/session"
)

type contextKey string

const storeContextKey contextKey = "sessionStore"

func withStore(ctx context.Context, store *session.Store) context.Context {
	return context.WithValue(ctx, storeContextKey, store)
}

func storeFrom(ctx context.Context) (*session.Store, bool) {
	store, ok := ctx.Value(storeContextKey).(*session.Store)
	return store, ok
}

// respReadLimit caps how much of a replaced response body is drained before
// the connection is reused.
const respReadLimit = 4096

// authTransport signs outgoing requests with the session's access token and
// retries once after a refresh when the backend answers 401. Login,
// registration and the refresh exchange itself go through a plain client,
// so they never pass through here.
type authTransport struct {
	base       http.RoundTripper
	refreshers *RefresherGroup
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	store, ok := storeFrom(req.Context())
	if !ok {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	sent, _ := store.AccessToken(ctx)

	resp, err := t.send(req, sent, false)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Another request may have rotated the pair while this one was on the
	// wire. If the stored token already differs from the one we sent,
	// retry with it instead of refreshing again.
	if current, ok := store.AccessToken(ctx); ok && current != sent {
		return t.retry(req, resp, current)
	}

	pair, err := t.refreshers.Get(store.ID()).Refresh(ctx)
	if err != nil {
		// The refresh outcome is terminal; hand the caller the original
		// authorization failure with its body intact.
		return resp, nil
	}

	return t.retry(req, resp, pair.AccessToken)
}

// retry drains the failed response and resends the request with token. If
// the body cannot be rewound the original response is returned as is.
func (t *authTransport) retry(req *http.Request, failed *http.Response, token string) (*http.Response, error) {
	if req.Body != nil && req.GetBody == nil {
		return failed, nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(failed.Body, respReadLimit))
	_ = failed.Body.Close()

	metrics.RetriedRequests.Inc()
	return t.send(req, token, true)
}

// send issues a clone of req carrying token. The caller's request is never
// mutated. A rewound body is only needed on the retry leg.
func (t *authTransport) send(req *http.Request, token string, rewind bool) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if rewind && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}

	if token != "" {
		clone.Header.Set("Authorization", "Bearer "+token)
	} else {
		clone.Header.Del("Authorization")
	}
	return t.base.RoundTrip(clone)
}
