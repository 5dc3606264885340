package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/repository"
	"go.uber.org/zap"
)

// MaxLineQuantity caps the quantity of a single cart line
const MaxLineQuantity = 99

// ModifierSelection picks options of one modifier on a cart line
type ModifierSelection struct {
	ModifierID uint
	OptionIDs  []uint
}

// CartLine is a customer's requested line; prices come from the menu, never the client
type CartLine struct {
	MenuItemID uint
	Quantity   int
	Selections []ModifierSelection
	Notes      *string
}

// CheckoutRequest is a customer's cart for one restaurant
type CheckoutRequest struct {
	RestaurantSlug string
	TableCode      *string // nil for pickup
	Lines          []CartLine
	TipRateBps     *int // nil uses the restaurant default
	Notes          *string
}

// CheckoutResult tells the customer where to pay
type CheckoutResult struct {
	OrderID     string `json:"order_id"`
	OrderCode   string `json:"order_code"`
	RedirectURL string `json:"redirect_url"`
	Totals      Totals `json:"totals"`
}

// CheckoutService turns carts into payable orders and reconciles payment notifications
type CheckoutService struct {
	restaurants    repository.IRestaurantRepository
	menu           MenuSource
	orders         *OrderService
	payments       PaymentProvider
	publicURL      string
	paymentTimeout time.Duration
	logger         *zap.Logger
}

// NewCheckoutService creates the checkout orchestrator
func NewCheckoutService(
	restaurants repository.IRestaurantRepository,
	menu MenuSource,
	orders *OrderService,
	payments PaymentProvider,
	publicURL string,
	paymentTimeout time.Duration,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		restaurants:    restaurants,
		menu:           menu,
		orders:         orders,
		payments:       payments,
		publicURL:      publicURL,
		paymentTimeout: paymentTimeout,
		logger:         logger.Named("checkout"),
	}
}

// InitiateCheckout creates a NEW order for the cart and a payment session for it.
// If the session cannot be created the order stays NEW without a session id.
func (s *CheckoutService) InitiateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	restaurant, table, err := s.resolveTenant(ctx, req.RestaurantSlug, req.TableCode)
	if err != nil {
		return nil, err
	}
	if !restaurant.AcceptsPayments() {
		return nil, newError(ErrPaymentsNotConfigured, "restaurant %s has no active payment account", restaurant.Slug)
	}

	tipRate := restaurant.DefaultTipRateBps
	if req.TipRateBps != nil {
		tipRate = *req.TipRateBps
	}

	lines, err := s.priceLines(ctx, restaurant.ID, req.Lines)
	if err != nil {
		return nil, err
	}

	in := NewOrder{
		RestaurantID: restaurant.ID,
		Currency:     restaurant.Currency,
		TaxRateBps:   restaurant.TaxRateBps,
		TipRateBps:   tipRate,
		Notes:        req.Notes,
		Lines:        lines,
	}
	if table != nil {
		in.TableID = &table.ID
	}

	order, err := s.orders.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	sessionCtx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
	defer cancel()
	session, err := s.payments.CreateSession(sessionCtx, s.sessionRequest(restaurant, table, order))
	if err != nil {
		s.logger.Error("payment session failed; order left without session",
			zap.String("order_id", order.ID),
			zap.Uint("restaurant_id", restaurant.ID),
			zap.Error(err))
		return nil, wrapError(ErrPaymentSession, err, "failed to create payment session for order %s", order.ID)
	}

	if _, err := s.orders.AttachSession(ctx, order.ID, session.SessionID); err != nil {
		return nil, err
	}

	s.logger.Info("checkout started",
		zap.String("order_id", order.ID),
		zap.String("session_id", session.SessionID))
	return &CheckoutResult{
		OrderID:     order.ID,
		OrderCode:   order.Code,
		RedirectURL: session.RedirectURL,
		Totals: Totals{
			SubtotalCents: order.SubtotalCents,
			TaxCents:      order.TaxCents,
			TipCents:      order.TipCents,
			TotalCents:    order.TotalCents,
		},
	}, nil
}

// ResolveTable finds the restaurant and table behind a scanned QR code
func (s *CheckoutService) ResolveTable(ctx context.Context, slug, tableCode string) (*models.Restaurant, *models.Table, error) {
	return s.resolveTenant(ctx, slug, &tableCode)
}

func (s *CheckoutService) resolveTenant(ctx context.Context, slug string, tableCode *string) (*models.Restaurant, *models.Table, error) {
	restaurant, err := s.restaurants.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, newError(ErrTenantNotFound, "restaurant %q not found", slug)
		}
		return nil, nil, persistenceError(err, "load restaurant")
	}
	if tableCode == nil {
		return restaurant, nil, nil
	}

	table, err := s.restaurants.FindTableByCode(ctx, restaurant.ID, *tableCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, newError(ErrTableNotFound, "table %q not found", *tableCode)
		}
		return nil, nil, persistenceError(err, "load table")
	}
	return restaurant, table, nil
}

// priceLines re-reads every referenced item and snapshots its current price and selected options
func (s *CheckoutService) priceLines(ctx context.Context, restaurantID uint, cart []CartLine) ([]NewOrderLine, error) {
	if len(cart) == 0 {
		return nil, newError(ErrInvalidCart, "cart is empty")
	}

	items := make(map[uint]*models.MenuItem)
	lines := make([]NewOrderLine, 0, len(cart))
	for i, cl := range cart {
		if cl.Quantity < 1 || cl.Quantity > MaxLineQuantity {
			return nil, newError(ErrInvalidCart, "line %d: quantity must be between 1 and %d", i+1, MaxLineQuantity)
		}

		item, ok := items[cl.MenuItemID]
		if !ok {
			var err error
			item, err = s.menu.GetItem(ctx, restaurantID, cl.MenuItemID)
			if err != nil {
				return nil, err
			}
			items[cl.MenuItemID] = item
		}
		if !item.IsAvailable {
			return nil, newError(ErrItemUnavailable, "%s is not available right now", item.Name)
		}

		snapshots, err := snapshotModifiers(item, cl.Selections)
		if err != nil {
			return nil, wrapError(ErrInvalidCart, err, "line %d", i+1)
		}

		lines = append(lines, NewOrderLine{
			MenuItemID:     item.ID,
			Name:           item.Name,
			Quantity:       cl.Quantity,
			UnitPriceCents: item.PriceCents,
			Modifiers:      snapshots,
			Notes:          cl.Notes,
		})
	}
	return lines, nil
}

// snapshotModifiers validates selections against the item's modifiers. Snapshots
// follow the menu's modifier and option order.
func snapshotModifiers(item *models.MenuItem, selections []ModifierSelection) ([]models.ModifierSnapshot, error) {
	chosen := make(map[uint]map[uint]bool, len(selections))
	for _, sel := range selections {
		if _, dup := chosen[sel.ModifierID]; dup {
			return nil, fmt.Errorf("modifier %d selected twice", sel.ModifierID)
		}
		set := make(map[uint]bool, len(sel.OptionIDs))
		for _, id := range sel.OptionIDs {
			if set[id] {
				return nil, fmt.Errorf("option %d selected twice", id)
			}
			set[id] = true
		}
		chosen[sel.ModifierID] = set
	}

	snapshots := []models.ModifierSnapshot{}
	for _, mod := range item.Modifiers {
		set, ok := chosen[mod.ID]
		if !ok {
			continue
		}
		delete(chosen, mod.ID)

		if mod.Type == models.ModifierSingle && len(set) > 1 {
			return nil, fmt.Errorf("%s allows a single choice", mod.Name)
		}
		for _, opt := range mod.Options {
			if set[opt.ID] {
				delete(set, opt.ID)
				snapshots = append(snapshots, models.ModifierSnapshot{
					Name:            mod.Name + ": " + opt.Name,
					PriceDeltaCents: opt.PriceDeltaCents,
				})
			}
		}
		if len(set) > 0 {
			return nil, fmt.Errorf("unknown option for %s", mod.Name)
		}
	}
	if len(chosen) > 0 {
		return nil, fmt.Errorf("unknown modifier for %s", item.Name)
	}
	return snapshots, nil
}

func (s *CheckoutService) sessionRequest(restaurant *models.Restaurant, table *models.Table, order *models.Order) SessionRequest {
	req := SessionRequest{
		AccountID:  *restaurant.StripeAccountID,
		Currency:   order.Currency,
		SuccessURL: fmt.Sprintf("%s/r/%s/orders/%s?session_id={CHECKOUT_SESSION_ID}", s.publicURL, url.PathEscape(restaurant.Slug), order.ID),
		CancelURL:  s.cancelURL(restaurant, table),
		Metadata: map[string]string{
			"order_id":      order.ID,
			"order_code":    order.Code,
			"restaurant_id": strconv.FormatUint(uint64(restaurant.ID), 10),
		},
	}

	for _, line := range order.Lines {
		unit := line.UnitPriceCents
		names := ""
		for i, m := range line.SelectedModifiers {
			unit += m.PriceDeltaCents
			if i > 0 {
				names += ", "
			}
			names += m.Name
		}
		req.LineItems = append(req.LineItems, SessionLineItem{
			Name:           line.Name,
			Description:    names,
			UnitPriceCents: unit,
			Quantity:       int64(line.Quantity),
		})
	}
	if order.TaxCents > 0 {
		req.LineItems = append(req.LineItems, SessionLineItem{Name: "Tax", UnitPriceCents: order.TaxCents, Quantity: 1})
	}
	if order.TipCents > 0 {
		req.LineItems = append(req.LineItems, SessionLineItem{Name: "Tip", UnitPriceCents: order.TipCents, Quantity: 1})
	}
	return req
}

func (s *CheckoutService) cancelURL(restaurant *models.Restaurant, table *models.Table) string {
	if table == nil {
		return fmt.Sprintf("%s/r/%s?canceled=1", s.publicURL, url.PathEscape(restaurant.Slug))
	}
	return fmt.Sprintf("%s/r/%s/t/%s?canceled=1", s.publicURL, url.PathEscape(restaurant.Slug), url.PathEscape(table.Code))
}

// HandlePaymentNotification applies a verified payment event. Every arm is
// idempotent so redelivered events are harmless.
func (s *CheckoutService) HandlePaymentNotification(ctx context.Context, event PaymentEvent) error {
	switch ev := event.(type) {
	case CheckoutCompleted:
		if !ev.Paid {
			s.logger.Info("checkout completed but payment still pending",
				zap.String("event_id", ev.EventID),
				zap.String("session_id", ev.SessionID))
			return nil
		}
		_, err := s.orders.MarkPaid(ctx, PaymentCapture{
			SessionID:   ev.SessionID,
			AmountCents: ev.AmountCents,
			AccountID:   ev.AccountID,
		})
		return err

	case CheckoutExpired:
		order, err := s.orders.FindBySession(ctx, ev.SessionID)
		if err != nil {
			return err
		}
		if err := checkAccount(order, ev.AccountID); err != nil {
			return err
		}
		_, err = s.orders.CancelIfNew(ctx, order.ID, models.SourceWebhook)
		return err

	case UnknownEvent:
		s.logger.Info("ignoring payment event",
			zap.String("event_id", ev.EventID),
			zap.String("type", ev.Type))
		return nil

	default:
		s.logger.Warn("unhandled payment event kind", zap.String("kind", fmt.Sprintf("%T", event)))
		return nil
	}
}
