// Package cartrecorder snapshots checkouts that have not completed yet so a vendor can
// follow up on them. Each checkout page visit is a Session that owns its own timers.
package cartrecorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/feyxa/commerce/internal/dal/interfaces/iabandonedcartrepo"
	"github.com/feyxa/commerce/internal/service/models/abandonedcart"
	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/google/uuid"
)

const (
	defaultCaptureDelay    = 2 * time.Second
	defaultContactDebounce = 1500 * time.Millisecond
	defaultIdleTTL         = 30 * time.Minute
	writeTimeout           = 5 * time.Second
)

var ErrSessionNotFound = errors.New("checkout session not found")

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Manager tracks the open checkout sessions of this process.
type Manager struct {
	repo            iabandonedcartrepo.IAbandonedCartRepository
	scheduler       Scheduler
	captureDelay    time.Duration
	contactDebounce time.Duration
	idleTTL         time.Duration
	now             func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// option is a function that configures the Manager.
type option func(*Manager)

// MustNewManager creates a new Manager.
func MustNewManager(opts ...option) *Manager {
	m := &Manager{
		scheduler:       realScheduler{},
		captureDelay:    defaultCaptureDelay,
		contactDebounce: defaultContactDebounce,
		idleTTL:         defaultIdleTTL,
		now:             time.Now,
		sessions:        make(map[uuid.UUID]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.repo == nil {
		panic("cart recorder needs an abandoned cart repository")
	}

	return m
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithAbandonedCartRepository(repo iabandonedcartrepo.IAbandonedCartRepository) option {
	return func(m *Manager) {
		m.repo = repo
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithScheduler(s Scheduler) option {
	return func(m *Manager) {
		m.scheduler = s
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithCaptureDelay(d time.Duration) option {
	return func(m *Manager) {
		if d > 0 {
			m.captureDelay = d
		}
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithContactDebounce(d time.Duration) option {
	return func(m *Manager) {
		if d > 0 {
			m.contactDebounce = d
		}
	}
}

// WithIdleTTL sets how long a session with no activity stays tracked.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithIdleTTL(d time.Duration) option {
	return func(m *Manager) {
		if d > 0 {
			m.idleTTL = d
		}
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(m *Manager) {
		m.now = now
	}
}

// Start opens a session for a checkout page showing items. Nothing is written until the
// capture delay has passed. An empty cart opens a session that never captures.
func (m *Manager) Start(items []cart.Item, contact abandonedcart.Contact) *Session {
	s := &Session{
		ID:      uuid.New(),
		manager: m,
		groups:  cart.GroupByStore(items),
		contact: contact,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	s.mu.Lock()
	if len(s.groups) > 0 {
		s.captureTimer = m.scheduler.AfterFunc(m.captureDelay, s.capture)
	}
	s.touchLocked()
	s.mu.Unlock()

	slog.Debug("Checkout session started", "session_id", s.ID, "stores", len(s.groups))

	return s
}

// Get returns an open session.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return s, nil
}

// Complete flips every captured row of the session to completed. It works for sessions
// this process no longer tracks, since rows outlive restarts.
func (m *Manager) Complete(ctx context.Context, sessionID uuid.UUID) error {
	if s, err := m.Get(sessionID); err == nil {
		return s.Complete(ctx)
	}

	return m.markCompleted(ctx, sessionID)
}

// Shutdown closes every open session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

func (m *Manager) forget(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) markCompleted(ctx context.Context, sessionID uuid.UUID) error {
	n, err := m.repo.MarkCompleted(ctx, sessionID, m.now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("Abandoned carts completed", "session_id", sessionID, "count", n)
	}

	return nil
}

// Session is one visit to the checkout page.
type Session struct {
	ID uuid.UUID

	manager *Manager

	mu           sync.Mutex
	groups       []cart.StoreGroup
	contact      abandonedcart.Contact
	captured     bool
	closed       bool
	captureTimer Timer
	contactTimer Timer
	idleTimer    Timer
}

// UpdateContact records what the shopper typed. Once the snapshot exists, a non-empty
// contact is patched in after the debounce; later keystrokes restart the wait.
func (s *Session) UpdateContact(contact abandonedcart.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.contact = contact
	s.touchLocked()

	if s.contactTimer != nil {
		s.contactTimer.Stop()
		s.contactTimer = nil
	}
	if !s.captured || contact.Empty() {
		return
	}

	s.contactTimer = s.manager.scheduler.AfterFunc(s.manager.contactDebounce, s.patchContact)
}

// Close tears the session down without touching stored rows.
func (s *Session) Close() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()

	s.manager.forget(s.ID)
}

// Complete closes the session and marks its rows completed.
func (s *Session) Complete(ctx context.Context) error {
	s.Close()

	return s.manager.markCompleted(ctx, s.ID)
}

// Captured reports whether the snapshot has been written.
func (s *Session) Captured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.captured
}

func (s *Session) stopLocked() {
	s.closed = true
	if s.captureTimer != nil {
		s.captureTimer.Stop()
		s.captureTimer = nil
	}
	if s.contactTimer != nil {
		s.contactTimer.Stop()
		s.contactTimer = nil
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

// touchLocked restarts the idle countdown.
func (s *Session) touchLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = s.manager.scheduler.AfterFunc(s.manager.idleTTL, s.expire)
}

// expire drops a session nobody touched for the idle TTL. Captured rows stay and can
// still be completed through Manager.Complete.
func (s *Session) expire() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return
	}
	s.stopLocked()
	s.mu.Unlock()

	s.manager.forget(s.ID)
	slog.Debug("Checkout session expired", "session_id", s.ID)
}

func (s *Session) capture() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.captured {
		return
	}
	s.captureTimer = nil

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	now := s.manager.now().UTC()
	written := 0
	for _, g := range s.groups {
		row := abandonedcart.FromGroup(s.ID, g, s.contact)
		row.CreatedAt = now
		row.UpdatedAt = now

		ok, err := s.manager.repo.Upsert(ctx, row)
		if err != nil {
			slog.Error("Failed to capture abandoned cart", "session_id", s.ID, "store_id", g.StoreID, "error", err)

			continue
		}
		if ok {
			written++
		}
	}
	s.captured = true

	slog.Info("Abandoned carts captured", "session_id", s.ID, "count", written)
}

func (s *Session) patchContact() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.contact.Empty() {
		return
	}
	s.contactTimer = nil

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if _, err := s.manager.repo.UpdateContact(ctx, s.ID, s.contact, s.manager.now().UTC()); err != nil {
		slog.Error("Failed to update abandoned cart contact", "session_id", s.ID, "error", err)
	}
}
