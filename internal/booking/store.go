package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session is one booking modal addressed by id. After it closes it keeps
// the final snapshot until the store purges it.
type Session struct {
	ID        string
	CreatedAt time.Time

	modal  *Modal
	cancel context.CancelFunc

	mu       sync.Mutex
	lastSeen time.Time
	closed   bool
	closedAt time.Time
}

// SessionView is the externally visible state of a session.
type SessionView struct {
	ID           string      `json:"id"`
	Open         bool        `json:"open"`
	ScrollLocked bool        `json:"scroll_locked"`
	CloseReason  CloseReason `json:"close_reason,omitempty"`
	Snapshot
}

// Modal returns the session's modal.
func (s *Session) Modal() *Modal { return s.modal }

// Controller returns the session's controller.
func (s *Session) Controller() *Controller { return s.modal.Controller() }

// Touch records activity on the session.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

// IsExpired checks if an open session has been idle longer than timeout.
func (s *Session) IsExpired(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && now.Sub(s.lastSeen) > timeout
}

// Closed reports whether the session's modal has closed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// View returns the live snapshot, or the final one once closing began.
func (s *Session) View() SessionView {
	open, reason, snap := s.modal.status()
	v := SessionView{
		ID:           s.ID,
		Open:         open,
		ScrollLocked: s.modal.ScrollSuspended(),
		Snapshot:     snap,
	}
	if !open {
		v.CloseReason = reason
	}
	return v
}

func (s *Session) markClosed(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closedAt = now
}

func (s *Session) purgeable(now time.Time, retention time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed && now.Sub(s.closedAt) > retention
}

// ControllerFactory builds the controller of a new session.
type ControllerFactory func() *Controller

// StoreOptions configures a SessionStore.
type StoreOptions struct {
	// Timeout closes open sessions idle for longer with CloseExpired.
	Timeout time.Duration
	// Retention keeps closed sessions readable for this long.
	Retention time.Duration
	Now       func() time.Time
	Logger    *zerolog.Logger
	Metrics   Recorder
	OnClose   func(sessionID string, reason CloseReason, final Snapshot)
}

// SessionStore manages booking sessions. Each session gets its own page
// scroll, so sessions share no mutable state.
type SessionStore struct {
	newController ControllerFactory
	opts          StoreOptions

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates a new session store.
func NewSessionStore(factory ControllerFactory, opts StoreOptions) *SessionStore {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Minute
	}
	if opts.Retention <= 0 {
		opts.Retention = 10 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	return &SessionStore{
		newController: factory,
		opts:          opts,
		sessions:      make(map[string]*Session),
	}
}

// Open starts a session and opens its modal.
func (ss *SessionStore) Open(initialServiceID string) (*Session, error) {
	now := ss.opts.Now()
	ctx, cancel := context.WithCancel(context.Background())
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		cancel:    cancel,
		lastSeen:  now,
	}

	logger := ss.opts.Logger.With().Str("session_id", sess.ID).Logger()
	sess.modal = NewModal(ss.newController(), NewPageScroll(nil), ModalOptions{
		Logger:  &logger,
		Metrics: ss.opts.Metrics,
		OnClose: func(reason CloseReason, final Snapshot) {
			sess.markClosed(ss.opts.Now())
			cancel()
			if ss.opts.OnClose != nil {
				ss.opts.OnClose(sess.ID, reason, final)
			}
		},
	})

	ss.mu.Lock()
	ss.sessions[sess.ID] = sess
	ss.mu.Unlock()

	if err := sess.modal.Open(ctx, initialServiceID); err != nil {
		ss.remove(sess.ID)
		cancel()
		return nil, err
	}
	return sess, nil
}

// Get returns a session and marks it active.
func (ss *SessionStore) Get(id string) (*Session, bool) {
	ss.mu.RLock()
	sess, ok := ss.sessions[id]
	ss.mu.RUnlock()
	if ok {
		sess.Touch(ss.opts.Now())
	}
	return sess, ok
}

// Close closes a session's modal. It returns false if the session is
// unknown or already closed.
func (ss *SessionStore) Close(id string, reason CloseReason) (*Session, bool) {
	ss.mu.RLock()
	sess, ok := ss.sessions[id]
	ss.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return sess, sess.modal.Close(reason)
}

// Len returns the number of sessions, open or retained.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// OpenCount returns the number of open sessions.
func (ss *SessionStore) OpenCount() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	n := 0
	for _, s := range ss.sessions {
		if !s.Closed() {
			n++
		}
	}
	return n
}

// Cleanup closes idle sessions and purges closed ones past retention.
func (ss *SessionStore) Cleanup() (expired, purged int) {
	now := ss.opts.Now()

	ss.mu.RLock()
	var idle, stale []*Session
	for _, s := range ss.sessions {
		switch {
		case s.IsExpired(now, ss.opts.Timeout):
			idle = append(idle, s)
		case s.purgeable(now, ss.opts.Retention):
			stale = append(stale, s)
		}
	}
	ss.mu.RUnlock()

	for _, s := range idle {
		if s.modal.Close(CloseExpired) {
			expired++
		}
	}
	for _, s := range stale {
		ss.remove(s.ID)
		purged++
	}
	return expired, purged
}

// RunJanitor runs Cleanup every interval until ctx is done.
func (ss *SessionStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, purged := ss.Cleanup()
			if expired > 0 || purged > 0 {
				ss.opts.Logger.Info().Int("expired", expired).Int("purged", purged).Msg("booking sessions cleaned up")
			}
		}
	}
}

// CloseAll closes every open session with reason.
func (ss *SessionStore) CloseAll(reason CloseReason) {
	ss.mu.RLock()
	all := make([]*Session, 0, len(ss.sessions))
	for _, s := range ss.sessions {
		all = append(all, s)
	}
	ss.mu.RUnlock()

	for _, s := range all {
		s.modal.Close(reason)
	}
}

func (ss *SessionStore) remove(id string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, id)
}
