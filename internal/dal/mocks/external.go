package mocks

import (
	"context"
	"sync"

	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/feyxa/commerce/internal/service/models/mail"
	"github.com/feyxa/commerce/internal/service/models/payment"
)

// CartStore is a map-backed cart store.
type CartStore struct {
	mu    sync.Mutex
	carts map[string]cart.Cart
}

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]cart.Cart)}
}

func (s *CartStore) Get(_ context.Context, cartID string) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[cartID]
	if !ok {
		return cart.Cart{ID: cartID, Items: []cart.Item{}}, nil
	}
	c.Items = append([]cart.Item(nil), c.Items...)

	return c, nil
}

func (s *CartStore) Save(_ context.Context, c cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Items = append([]cart.Item(nil), c.Items...)
	s.carts[c.ID] = c

	return nil
}

func (s *CartStore) Delete(_ context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, cartID)

	return nil
}

// Mailer records sent messages and fails with Err when set.
type Mailer struct {
	mu   sync.Mutex
	Sent []mail.Message
	Err  error
}

func (m *Mailer) SendEmail(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)

	return nil
}

func (m *Mailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]mail.Message(nil), m.Sent...)
}

// Payments returns Session or Err.
type Payments struct {
	mu       sync.Mutex
	Requests []payment.SessionRequest
	Session  payment.Session
	Err      error
}

func (p *Payments) CreatePaymentSession(_ context.Context, req payment.SessionRequest) (payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Requests = append(p.Requests, req)
	if p.Err != nil {
		return payment.Session{}, p.Err
	}

	return p.Session, nil
}

// Dispatcher records dispatched messages.
type Dispatcher struct {
	mu       sync.Mutex
	Messages []eventlog.Message
	Err      error
}

func (d *Dispatcher) Dispatch(_ context.Context, msg eventlog.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Messages = append(d.Messages, msg)

	return d.Err
}

func (d *Dispatcher) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.Messages)
}

// SideEffects runs submitted tasks inline and records their outcome.
type SideEffects struct {
	mu     sync.Mutex
	Names  []string
	Errors map[string]error
	// Reject makes Submit drop every task.
	Reject bool
}

func (s *SideEffects) Submit(ctx context.Context, name string, task func(ctx context.Context) error) bool {
	s.mu.Lock()
	if s.Reject {
		s.mu.Unlock()

		return false
	}
	s.Names = append(s.Names, name)
	s.mu.Unlock()

	err := task(context.WithoutCancel(ctx))

	s.mu.Lock()
	if err != nil {
		if s.Errors == nil {
			s.Errors = make(map[string]error)
		}
		s.Errors[name] = err
	}
	s.mu.Unlock()

	return true
}
