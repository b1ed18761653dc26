package flow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facepass/facepass/internal/clock"
	"github.com/facepass/facepass/internal/logging"
)

// DefaultSessionTTL is how long an untouched session survives.
const DefaultSessionTTL = 30 * time.Minute

type session struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Registry holds the live flow sessions, one per mounted flow view.
type Registry struct {
	deps   Deps
	ttl    time.Duration
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewRegistry returns an empty registry. Controllers it creates share deps.
func NewRegistry(deps Deps, ttl time.Duration) *Registry {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Registry{
		deps:     deps,
		ttl:      ttl,
		clock:    deps.Clock,
		logger:   logging.Component(deps.Logger, "flow.registry"),
		sessions: make(map[string]*session),
	}
}

// Create starts a fresh session in the intro step.
func (r *Registry) Create() *Controller {
	id := uuid.NewString()
	ctrl := NewController(id, r.deps)

	r.mu.Lock()
	r.sessions[id] = &session{ctrl: ctrl, lastSeen: r.clock.Now()}
	r.mu.Unlock()

	r.logger.Debug("flow session created", slog.String("flow_id", id))
	return ctrl
}

// Get returns the session and refreshes its idle timer.
func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastSeen = r.clock.Now()
	return s.ctrl, nil
}

// Remove closes and forgets the session.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.ctrl.Close()
	r.logger.Debug("flow session closed", slog.String("flow_id", id))
	return nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were evicted.
func (r *Registry) Sweep() int {
	cutoff := r.clock.Now().Add(-r.ttl)

	var expired []*Controller
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s.ctrl)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, ctrl := range expired {
		ctrl.Close()
	}
	if len(expired) > 0 {
		r.logger.Info("expired flow sessions evicted", slog.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps on a ticker until ctx is done, then closes every session.
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// CloseAll closes and forgets every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range all {
		s.ctrl.Close()
	}
}
