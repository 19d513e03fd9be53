// Package payment simulates the payment flow that unlocks premium
// packages: an in-memory order store and a caller-owned status poller.
package payment

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status of an order.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Final reports whether the status can no longer change.
func (s Status) Final() bool {
	return s == StatusSuccess || s == StatusFailed
}

const (
	// DefaultAmount is the premium price in fen.
	DefaultAmount = 990
	Currency      = "CNY"
)

var (
	ErrOrderNotFound = errors.New("payment: order not found")
	ErrOrderFinal    = errors.New("payment: order already settled")
)

// Order is a payment order.
type Order struct {
	ID           string    `json:"orderId"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	PackageTitle string    `json:"packageTitle,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store keeps orders in memory. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	orders map[string]*Order
	clock  func() time.Time
}

// NewStore returns an empty store. A nil clock means time.Now.
func NewStore(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}

	return &Store{
		orders: make(map[string]*Order),
		clock:  clock,
	}
}

// Create opens a pending order. A non-positive amount means DefaultAmount.
func (s *Store) Create(amount int64, packageTitle string) Order {
	if amount <= 0 {
		amount = DefaultAmount
	}

	now := s.clock()
	o := &Order{
		ID:           "order_" + uuid.NewString(),
		Amount:       amount,
		Currency:     Currency,
		PackageTitle: packageTitle,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	s.orders[o.ID] = o
	s.mu.Unlock()

	return *o
}

// Get returns a copy of the order.
func (s *Store) Get(id string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}

	return *o, nil
}

// Confirm marks a pending order paid. Confirming a paid order is a no-op.
func (s *Store) Confirm(id string) (Order, error) {
	return s.settle(id, StatusSuccess)
}

// Fail marks a pending order failed.
func (s *Store) Fail(id string) (Order, error) {
	return s.settle(id, StatusFailed)
}

func (s *Store) settle(id string, status Status) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}

	if o.Status == status {
		return *o, nil
	}

	if o.Status.Final() {
		return *o, ErrOrderFinal
	}

	o.Status = status
	o.UpdatedAt = s.clock()

	return *o, nil
}

// IsPaid reports whether the order exists and was paid.
func (s *Store) IsPaid(id string) bool {
	o, err := s.Get(id)

	return err == nil && o.Status == StatusSuccess
}
