package services

import (
	"context"
	"sync"
	"time"

	"github.com/tabletap/tabletap-api/models"
	"go.uber.org/zap"
)

// OrderSnapshot is the payload broadcast to dashboard subscribers
type OrderSnapshot struct {
	OrderID      string             `json:"order_id"`
	RestaurantID uint               `json:"restaurant_id"`
	Code         string             `json:"code"`
	Status       models.OrderStatus `json:"status"`
	TableID      *uint              `json:"table_id"`
	TotalCents   int64              `json:"total_cents"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// SnapshotOf builds the broadcast payload for an order
func SnapshotOf(order *models.Order) OrderSnapshot {
	return OrderSnapshot{
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		Code:         order.Code,
		Status:       order.Status,
		TableID:      order.TableID,
		TotalCents:   order.TotalCents,
		UpdatedAt:    order.UpdatedAt,
	}
}

// Notifier publishes order updates to realtime subscribers.
// Delivery is at-most-once and best-effort.
type Notifier interface {
	Publish(ctx context.Context, snapshot OrderSnapshot) error
}

// LogNotifier only logs snapshots. Used when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that writes snapshots to the log
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Publish logs the snapshot
func (n *LogNotifier) Publish(ctx context.Context, snapshot OrderSnapshot) error {
	n.logger.Info("order update",
		zap.String("order_id", snapshot.OrderID),
		zap.Uint("restaurant_id", snapshot.RestaurantID),
		zap.String("status", string(snapshot.Status)))
	return nil
}

// MockNotifier records published snapshots for testing
type MockNotifier struct {
	mu        sync.Mutex
	published []OrderSnapshot
	err       error
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// FailWith makes every later Publish return err (nil restores success)
func (m *MockNotifier) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Publish records the snapshot, or fails if FailWith was set
func (m *MockNotifier) Publish(ctx context.Context, snapshot OrderSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, snapshot)
	return nil
}

// Published returns a copy of everything published so far
func (m *MockNotifier) Published() []OrderSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderSnapshot, len(m.published))
	copy(out, m.published)
	return out
}

// Clear forgets recorded snapshots
func (m *MockNotifier) Clear() {
	m.mu.Lock()
	m.published = nil
	m.mu.Unlock()
}
