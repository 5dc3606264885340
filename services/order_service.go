package services

import (
	"context"
	"errors"
	"time"

	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/repository"
	"go.uber.org/zap"
)

// DefaultPageSize and MaxPageSize bound ListOrders pages
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// NewOrder is everything needed to persist a priced order
type NewOrder struct {
	RestaurantID uint
	TableID      *uint
	Currency     string
	TaxRateBps   int
	TipRateBps   int
	Notes        *string
	Lines        []NewOrderLine
}

// NewOrderLine is one cart line with its menu snapshot already taken
type NewOrderLine struct {
	MenuItemID     uint
	Name           string
	Quantity       int
	UnitPriceCents int64
	Modifiers      []models.ModifierSnapshot
	Notes          *string
	Unavailable    bool
}

// PaymentCapture is a completed payment as reported by the processor
type PaymentCapture struct {
	SessionID   string
	AmountCents int64
	AccountID   string
}

// OrderPage is one page of a restaurant's orders
type OrderPage struct {
	Orders   []models.Order `json:"orders"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// OrderService owns the order lifecycle. It is the only writer of order rows.
type OrderService struct {
	orders   repository.IOrderRepository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrderService creates the lifecycle manager
func NewOrderService(orders repository.IOrderRepository, notifier Notifier, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		notifier: notifier,
		logger:   logger.Named("orders"),
		now:      time.Now,
	}
}

// Create prices the lines and persists the order in status NEW
func (s *OrderService) Create(ctx context.Context, in NewOrder) (*models.Order, error) {
	pricing := make([]PricingLine, len(in.Lines))
	for i, l := range in.Lines {
		pricing[i] = PricingLine{
			UnitPriceCents: l.UnitPriceCents,
			Quantity:       l.Quantity,
			Modifiers:      l.Modifiers,
			Unavailable:    l.Unavailable,
		}
	}
	totals, err := ComputeTotals(pricing, in.TaxRateBps, in.TipRateBps)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		RestaurantID:  in.RestaurantID,
		TableID:       in.TableID,
		Status:        models.StatusNew,
		SubtotalCents: totals.SubtotalCents,
		TaxCents:      totals.TaxCents,
		TipCents:      totals.TipCents,
		TotalCents:    totals.TotalCents,
		TaxRateBps:    in.TaxRateBps,
		TipRateBps:    in.TipRateBps,
		Currency:      in.Currency,
		Notes:         in.Notes,
		Lines:         make([]models.OrderLine, len(in.Lines)),
	}
	for i, l := range in.Lines {
		modifiers := l.Modifiers
		if modifiers == nil {
			modifiers = []models.ModifierSnapshot{}
		}
		order.Lines[i] = models.OrderLine{
			MenuItemID:        l.MenuItemID,
			Name:              l.Name,
			Quantity:          l.Quantity,
			UnitPriceCents:    l.UnitPriceCents,
			SelectedModifiers: modifiers,
			Notes:             l.Notes,
		}
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, persistenceError(err, "create order")
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.Uint("restaurant_id", order.RestaurantID),
		zap.String("code", order.Code),
		zap.Int64("total_cents", order.TotalCents))
	return order, nil
}

// Get loads an order inside the caller's restaurant
func (s *OrderService) Get(ctx context.Context, restaurantID uint, orderID string) (*models.Order, error) {
	order, err := s.orders.FindByIDForRestaurant(ctx, restaurantID, orderID)
	if err != nil {
		return nil, s.lookupError(err, orderID)
	}
	return order, nil
}

// GetPublic loads an order by id alone, for the customer tracking page
func (s *OrderService) GetPublic(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, s.lookupError(err, orderID)
	}
	return order, nil
}

// FindBySession loads the order created for a payment session
func (s *OrderService) FindBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	order, err := s.orders.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "no order for payment session %s", sessionID)
		}
		return nil, persistenceError(err, "load order by session")
	}
	return order, nil
}

// List returns a page of the restaurant's orders, optionally filtered by status
func (s *OrderService) List(ctx context.Context, restaurantID uint, statuses []models.OrderStatus, page, pageSize int) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	orders, total, err := s.orders.ListOrders(ctx, restaurantID, repository.OrderFilter{
		Statuses: statuses,
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize,
	})
	if err != nil {
		return nil, persistenceError(err, "list orders")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return &OrderPage{Orders: orders, Total: total, Page: page, PageSize: pageSize}, nil
}

// Transition moves an order of restaurantID to target if the transition table allows it.
// The write is a compare-and-swap on the current status.
func (s *OrderService) Transition(ctx context.Context, restaurantID uint, orderID string, target models.OrderStatus, source string) (*models.Order, error) {
	order, err := s.Get(ctx, restaurantID, orderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, target, source, nil)
}

func (s *OrderService) transition(ctx context.Context, order *models.Order, target models.OrderStatus, source string, extra map[string]interface{}) (*models.Order, error) {
	if !order.Status.CanTransitionTo(target) {
		return nil, newInvalidTransition(order.ID, order.Status, target)
	}

	swapped, err := s.orders.CompareAndSetStatus(ctx, order.ID, order.Status, target, source, extra)
	if err != nil {
		return nil, persistenceError(err, "update order status")
	}

	updated, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, s.lookupError(err, order.ID)
	}
	if !swapped {
		// Someone else moved the order between our read and our write
		return nil, newInvalidTransition(order.ID, updated.Status, target)
	}

	s.logger.Info("order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(target)),
		zap.String("source", source))
	s.publish(ctx, updated)
	return updated, nil
}

// MarkPaid reconciles a captured payment with the order created for its session.
// Repeated notifications for an order that is already paid are no-ops.
func (s *OrderService) MarkPaid(ctx context.Context, capture PaymentCapture) (*models.Order, error) {
	order, err := s.FindBySession(ctx, capture.SessionID)
	if err != nil {
		return nil, err
	}
	if err := checkAccount(order, capture.AccountID); err != nil {
		return nil, err
	}

	if order.Status.IsPaidOrLater() {
		s.logger.Info("payment already recorded",
			zap.String("order_id", order.ID),
			zap.String("status", string(order.Status)))
		return order, nil
	}

	mismatch := capture.AmountCents != order.TotalCents
	extra := map[string]interface{}{
		"total_cents":             capture.AmountCents,
		"paid_at":                 s.now(),
		"reconciliation_required": mismatch,
	}

	updated, err := s.transition(ctx, order, models.StatusPaid, models.SourceWebhook, extra)
	if err != nil {
		var transitionErr *InvalidTransitionError
		if errors.As(err, &transitionErr) && transitionErr.From.IsPaidOrLater() {
			// A concurrent delivery of the same event won the swap
			return s.GetPublic(ctx, order.ID)
		}
		return nil, err
	}

	if mismatch {
		s.logger.Warn("captured amount differs from computed total",
			zap.String("order_id", order.ID),
			zap.Int64("computed_cents", order.TotalCents),
			zap.Int64("captured_cents", capture.AmountCents))
	}
	return updated, nil
}

// CancelIfNew cancels an order that is still NEW. Any other status is left
// alone and returned without error.
func (s *OrderService) CancelIfNew(ctx context.Context, orderID, source string) (*models.Order, error) {
	order, err := s.GetPublic(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.StatusNew {
		return order, nil
	}

	updated, err := s.transition(ctx, order, models.StatusCanceled, source, nil)
	if errors.Is(err, ErrInvalidTransition) {
		return s.GetPublic(ctx, orderID)
	}
	return updated, err
}

// AttachSession records the payment session id on a freshly created order.
// The id can only be set once, and only while the order is NEW.
func (s *OrderService) AttachSession(ctx context.Context, orderID, sessionID string) (*models.Order, error) {
	attached, err := s.orders.AttachSession(ctx, orderID, sessionID)
	if err != nil {
		return nil, persistenceError(err, "attach payment session")
	}
	order, err := s.GetPublic(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if attached {
		return order, nil
	}
	if order.ExternalPaymentSessionID != nil && *order.ExternalPaymentSessionID == sessionID {
		return order, nil
	}
	if order.Status != models.StatusNew {
		s.logger.Warn("order left NEW before its payment session was attached",
			zap.String("order_id", orderID),
			zap.String("status", string(order.Status)),
			zap.String("session_id", sessionID))
		return nil, newError(ErrPaymentSession, "order %s is %s and can no longer be paid", orderID, order.Status)
	}
	return nil, newError(ErrPaymentSession, "order %s already has a payment session", orderID)
}

// DeleteEmpty removes an order of restaurantID that has no lines, together
// with its status history. Orders with lines are kept.
func (s *OrderService) DeleteEmpty(ctx context.Context, restaurantID uint, orderID string) error {
	order, err := s.Get(ctx, restaurantID, orderID)
	if err != nil {
		return err
	}
	if len(order.Lines) > 0 {
		return newError(ErrConflict, "order %s has %d lines and cannot be deleted", orderID, len(order.Lines))
	}

	deleted, err := s.orders.DeleteIfEmpty(ctx, orderID)
	if err != nil {
		return persistenceError(err, "delete order")
	}
	if !deleted {
		return newError(ErrConflict, "order %s could not be deleted", orderID)
	}

	s.logger.Info("deleted empty order",
		zap.String("order_id", orderID),
		zap.Uint("restaurant_id", restaurantID),
		zap.String("status", string(order.Status)))
	return nil
}

// CancelAbandoned cancels NEW orders that never received a payment session
// and were created before now-olderThan. It returns how many it canceled.
func (s *OrderService) CancelAbandoned(ctx context.Context, olderThan time.Duration) (int, error) {
	const batch = 100

	stale, err := s.orders.FindAbandoned(ctx, s.now().Add(-olderThan), batch)
	if err != nil {
		return 0, persistenceError(err, "find abandoned orders")
	}

	canceled := 0
	for i := range stale {
		updated, err := s.transition(ctx, &stale[i], models.StatusCanceled, models.SourceSweeper, nil)
		if err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				continue
			}
			return canceled, err
		}
		if updated.Status == models.StatusCanceled {
			canceled++
		}
	}
	if canceled > 0 {
		s.logger.Info("canceled abandoned orders", zap.Int("count", canceled))
	}
	return canceled, nil
}

// publish is best-effort: failures are logged and never undo the status change
func (s *OrderService) publish(ctx context.Context, order *models.Order) {
	if err := s.notifier.Publish(ctx, SnapshotOf(order)); err != nil {
		s.logger.Warn("failed to publish order update",
			zap.String("order_id", order.ID),
			zap.String("status", string(order.Status)),
			zap.Error(err))
	}
}

func (s *OrderService) lookupError(err error, orderID string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(ErrNotFound, "order %s not found", orderID)
	}
	return persistenceError(err, "load order")
}

func checkAccount(order *models.Order, accountID string) error {
	if order.Restaurant == nil || order.Restaurant.StripeAccountID == nil || *order.Restaurant.StripeAccountID != accountID {
		return newError(ErrTenantMismatch, "payment account %q does not own order %s", accountID, order.ID)
	}
	return nil
}
