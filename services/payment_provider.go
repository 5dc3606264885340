package services

import (
	"context"
	"fmt"
	"sync"
)

// SessionLineItem is one priced row on the hosted checkout page
type SessionLineItem struct {
	Name           string
	Description    string
	UnitPriceCents int64
	Quantity       int64
}

// SessionRequest asks the payment processor for a hosted checkout session
type SessionRequest struct {
	AccountID  string // connected payment account of the restaurant
	Currency   string
	LineItems  []SessionLineItem
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// PaymentSession is the processor's answer to a SessionRequest
type PaymentSession struct {
	SessionID   string
	RedirectURL string
}

// PaymentProvider creates hosted checkout sessions
type PaymentProvider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*PaymentSession, error)
}

// PaymentEvent is a verified notification from the payment processor.
// It is one of CheckoutCompleted, CheckoutExpired or UnknownEvent.
type PaymentEvent interface {
	paymentEvent()
}

// CheckoutCompleted reports that the customer finished the hosted checkout
type CheckoutCompleted struct {
	EventID     string
	SessionID   string
	AccountID   string
	AmountCents int64
	// Paid is false for delayed payment methods that are still settling
	Paid bool
}

// CheckoutExpired reports that the session timed out without payment
type CheckoutExpired struct {
	EventID   string
	SessionID string
	AccountID string
}

// UnknownEvent is any event type this service does not act on
type UnknownEvent struct {
	EventID string
	Type    string
}

func (CheckoutCompleted) paymentEvent() {}
func (CheckoutExpired) paymentEvent()   {}
func (UnknownEvent) paymentEvent()      {}

// PaymentEventParser verifies and decodes a raw webhook delivery
type PaymentEventParser interface {
	ParseEvent(payload []byte, signatureHeader string) (PaymentEvent, error)
}

// MockPaymentProvider is a mock implementation of PaymentProvider for testing
type MockPaymentProvider struct {
	mu       sync.Mutex
	requests []SessionRequest
	err      error
	counter  int
}

// NewMockPaymentProvider creates a new mock payment provider
func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{}
}

// FailWith makes every later CreateSession return err (nil restores success)
func (m *MockPaymentProvider) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// CreateSession records the request and returns a predictable session
func (m *MockPaymentProvider) CreateSession(ctx context.Context, req SessionRequest) (*PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.requests = append(m.requests, req)
	m.counter++
	id := fmt.Sprintf("cs_test_%d", m.counter)
	return &PaymentSession{
		SessionID:   id,
		RedirectURL: "https://checkout.example.com/pay/" + id,
	}, nil
}

// Requests returns a copy of every recorded request
func (m *MockPaymentProvider) Requests() []SessionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
