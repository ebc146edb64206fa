package session

import (
	"context"
	"sync"
	"time"

	"classic-jersey-studio/internal/catalog"
	"classic-jersey-studio/internal/wizard"
)

type Session struct {
	Wizard       *wizard.Wizard
	LastActivity time.Time
}

type Options struct {
	Catalog *catalog.Catalog
	// TTL evicts sessions idle for longer than this. Zero keeps them forever.
	TTL           time.Duration
	SweepInterval time.Duration
	Now           func() time.Time
}

// Store owns one wizard per key and serializes access to it.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	catalog  *catalog.Catalog
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewStore(opts Options) *Store {
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interval := opts.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	return &Store{
		sessions: make(map[string]*Session),
		catalog:  cat,
		ttl:      opts.TTL,
		interval: interval,
		now:      now,
	}
}

// Update runs fn with the key's wizard under the store lock, creating the
// session on first use.
func (s *Store) Update(key string, fn func(w *wizard.Wizard)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(key)
	sess.LastActivity = s.now()
	if fn != nil {
		fn(sess.Wizard)
	}
}

// View is Update for read-only callers; fn must not mutate the wizard.
func (s *Store) View(key string, fn func(w *wizard.Wizard)) {
	s.Update(key, fn)
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, key)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Sweep drops sessions idle longer than the TTL and skips ones with a
// generation in flight. It returns the number evicted.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	evicted := 0
	for key, sess := range s.sessions {
		if _, pending := sess.Wizard.InFlight(); pending {
			continue
		}
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, key)
			evicted++
		}
	}
	return evicted
}

// Run sweeps on a ticker until ctx is done.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Store) getOrCreateLocked(key string) *Session {
	if sess, ok := s.sessions[key]; ok {
		return sess
	}

	sess := &Session{
		Wizard:       wizard.New(s.catalog),
		LastActivity: s.now(),
	}
	s.sessions[key] = sess
	return sess
}
