package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CleanupInterval is how often idle sessions are evicted.
const CleanupInterval = time.Minute

const expireTimeout = 5 * time.Second

type BuildFunc func(id string) (*Session, error)

// Registry keeps live shopper sessions in memory. Sessions idle for longer
// than the TTL are evicted by a background loop, which also clears their
// cached checkout state.
type Registry struct {
	build BuildFunc
	ttl   time.Duration
	now   func() time.Time
	log   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewRegistry(build BuildFunc, ttl time.Duration, log *zap.Logger) *Registry {
	return newRegistry(build, ttl, CleanupInterval, time.Now, log)
}

func newRegistry(build BuildFunc, ttl, interval time.Duration, now func() time.Time, log *zap.Logger) *Registry {
	r := &Registry{
		build:       build,
		ttl:         ttl,
		now:         now,
		log:         log,
		sessions:    make(map[string]*Session),
		stopCleanup: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.cleanupLoop(interval)

	return r
}

// Resolve returns the live session for id. A signed id that is no longer in
// memory is rebuilt under the same id so its cached checkout state is kept;
// an empty id starts a new session.
func (r *Registry) Resolve(id string) (s *Session, created bool, err error) {
	if id != "" {
		if s, ok := r.lookup(id); ok {
			return s, false, nil
		}
	} else {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	// another request may have built it meanwhile
	stale, ok := r.sessions[id]
	if ok && stale.idleSince(now) <= r.ttl {
		stale.touch(now)
		return stale, false, nil
	}
	if ok {
		delete(r.sessions, id)
		r.expire(stale)
	}

	s, err = r.build(id)
	if err != nil {
		return nil, false, err
	}
	s.touch(now)
	r.sessions[id] = s
	r.log.Debug("session started", zap.String("session_id", id))
	return s, true, nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		r.expire(s)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops the background cleanup and waits for it to finish
func (r *Registry) Close() error {
	close(r.stopCleanup)
	r.wg.Wait()
	return nil
}

func (r *Registry) lookup(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := r.now()
	if s.idleSince(now) > r.ttl {
		return nil, false
	}
	s.touch(now)
	return s, true
}

func (r *Registry) cleanupLoop(interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.expireSessions()
		case <-r.stopCleanup:
			return
		}
	}
}

func (r *Registry) expireSessions() {
	now := r.now()

	var expired []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince(now) > r.ttl {
			delete(r.sessions, id)
			expired = append(expired, s)
			r.log.Debug("session expired", zap.String("session_id", id))
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.expire(s)
	}
}

func (r *Registry) expire(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), expireTimeout)
	defer cancel()
	s.Expire(ctx)
}
