package api

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/signaldeck/dashboard/internal/metrics"
	"github.com/signaldeck/dashboard/session"
)

// refreshFn exchanges a refresh token for a new token pair.
type refreshFn func(ctx context.Context, refreshToken string) (TokenPair, error)

type refreshState int

const (
	stateIdle refreshState = iota
	stateRefreshing
)

// refreshCall is the shared handle for one in-flight exchange. done is
// closed only after pair and err are final and the store is updated.
type refreshCall struct {
	done chan struct{}
	pair TokenPair
	err  error
}

// Refresher serialises token refreshes for a single session. However many
// requests hit an expired access token at once, exactly one exchange goes
// out and every caller gets that exchange's outcome.
type Refresher struct {
	store    *session.Store
	exchange refreshFn

	mu      sync.Mutex
	state   refreshState
	current *refreshCall
}

func newRefresher(store *session.Store, exchange refreshFn) *Refresher {
	return &Refresher{store: store, exchange: exchange}
}

// Refresh returns a fresh token pair. If an exchange is already in flight
// the call waits for it instead of starting another. On success the new
// pair has been saved before Refresh returns. On failure the session has
// been cleared; a failed refresh is never retried.
func (r *Refresher) Refresh(ctx context.Context) (TokenPair, error) {
	r.mu.Lock()
	if r.state == stateRefreshing {
		call := r.current
		r.mu.Unlock()

		select {
		case <-call.done:
			return call.pair, call.err
		case <-ctx.Done():
			return TokenPair{}, ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	r.state = stateRefreshing
	r.current = call
	r.mu.Unlock()

	call.pair, call.err = r.doRefresh(ctx)

	r.mu.Lock()
	r.state = stateIdle
	r.current = nil
	r.mu.Unlock()

	close(call.done)
	return call.pair, call.err
}

func (r *Refresher) doRefresh(ctx context.Context) (TokenPair, error) {
	refresh, ok := r.store.RefreshToken(ctx)
	if !ok {
		metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeRejected).Inc()
		r.clear(ctx)
		return TokenPair{}, ErrSessionExpired
	}

	pair, err := r.exchange(ctx, refresh)
	if err != nil {
		r.clear(ctx)

		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeRejected).Inc()
			return TokenPair{}, ErrSessionExpired
		}
		metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeFailure).Inc()
		return TokenPair{}, errors.Wrap(err, "[Refresher] token exchange")
	}

	// Waiters are only released after the rotated pair is persisted, so a
	// released caller always reads the new access token.
	if err := r.store.Save(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeFailure).Inc()
		return TokenPair{}, errors.Wrap(err, "[Refresher] save rotated tokens")
	}

	metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return pair, nil
}

func (r *Refresher) clear(ctx context.Context) {
	if err := r.store.Clear(ctx); err != nil {
		log.Err(err).Str("session", r.store.ID()).Msg("[Refresher] clearing session")
	}
}

// RefresherGroup hands out one Refresher per session so that concurrent
// requests from the same session share a single exchange.
type RefresherGroup struct {
	repo     session.Repo
	ttl      time.Duration
	exchange refreshFn

	mu         sync.Mutex
	refreshers map[string]*Refresher
}

func newRefresherGroup(repo session.Repo, ttl time.Duration, exchange refreshFn) *RefresherGroup {
	return &RefresherGroup{
		repo:       repo,
		ttl:        ttl,
		exchange:   exchange,
		refreshers: make(map[string]*Refresher),
	}
}

// Get returns the Refresher bound to sessionID, creating it on first use.
func (g *RefresherGroup) Get(sessionID string) *Refresher {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.refreshers[sessionID]
	if !ok {
		r = newRefresher(session.Open(g.repo, sessionID, g.ttl), g.exchange)
		g.refreshers[sessionID] = r
	}
	return r
}

// Forget drops the Refresher for a session that has logged out.
func (g *RefresherGroup) Forget(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.refreshers, sessionID)
}
