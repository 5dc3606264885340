package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/repository"
	"go.uber.org/zap"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// NewRestaurant is the input of RestaurantService.Create
type NewRestaurant struct {
	Slug              string
	Name              string
	Currency          string
	TaxRateBps        int
	DefaultTipRateBps int
}

// RestaurantService manages tenants, their payment settings and tables
type RestaurantService struct {
	restaurants repository.IRestaurantRepository
	logger      *zap.Logger
}

// NewRestaurantService creates the tenant service
func NewRestaurantService(restaurants repository.IRestaurantRepository, logger *zap.Logger) *RestaurantService {
	return &RestaurantService{restaurants: restaurants, logger: logger.Named("restaurants")}
}

// Create registers a restaurant and makes owner its owner
func (s *RestaurantService) Create(ctx context.Context, owner *models.User, in NewRestaurant) (*models.Restaurant, error) {
	if owner.RestaurantID != nil {
		return nil, newError(ErrConflict, "user already belongs to a restaurant")
	}
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, newError(ErrValidation, "slug %q must be lowercase letters, digits and dashes", in.Slug)
	}
	if err := validateRates(in.TaxRateBps, in.DefaultTipRateBps); err != nil {
		return nil, err
	}
	currency := strings.ToLower(in.Currency)
	if currency == "" {
		currency = "usd"
	}

	restaurant := &models.Restaurant{
		Slug:              slug,
		Name:              in.Name,
		Currency:          currency,
		TaxRateBps:        in.TaxRateBps,
		DefaultTipRateBps: in.DefaultTipRateBps,
	}
	if err := s.restaurants.CreateWithOwner(ctx, restaurant, owner.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, newError(ErrConflict, "slug %q is taken", slug)
		case errors.Is(err, repository.ErrNotFound):
			return nil, newError(ErrConflict, "user already belongs to a restaurant")
		}
		return nil, persistenceError(err, "create restaurant")
	}

	s.logger.Info("restaurant created", zap.Uint("restaurant_id", restaurant.ID), zap.String("slug", slug), zap.Uint("owner_id", owner.ID))
	return restaurant, nil
}

// Get loads a restaurant by id
func (s *RestaurantService) Get(ctx context.Context, restaurantID uint) (*models.Restaurant, error) {
	restaurant, err := s.restaurants.FindByID(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrTenantNotFound, "restaurant %d not found", restaurantID)
		}
		return nil, persistenceError(err, "load restaurant")
	}
	return restaurant, nil
}

// GetBySlug loads a restaurant by its public slug
func (s *RestaurantService) GetBySlug(ctx context.Context, slug string) (*models.Restaurant, error) {
	restaurant, err := s.restaurants.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrTenantNotFound, "restaurant %q not found", slug)
		}
		return nil, persistenceError(err, "load restaurant")
	}
	return restaurant, nil
}

// ConfigurePayments sets the connected payment account. Enabling payments
// requires an account id.
func (s *RestaurantService) ConfigurePayments(ctx context.Context, restaurantID uint, accountID string, enabled bool) (*models.Restaurant, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID != "" && !strings.HasPrefix(accountID, "acct_") {
		return nil, newError(ErrValidation, "payment account id must start with acct_")
	}
	if enabled && accountID == "" {
		return nil, newError(ErrValidation, "a payment account is required to enable payments")
	}

	updates := map[string]interface{}{"payments_enabled": enabled}
	if accountID == "" {
		updates["stripe_account_id"] = nil
	} else {
		updates["stripe_account_id"] = accountID
	}
	return s.update(ctx, restaurantID, updates)
}

// UpdatePricing changes the tax rate and default tip. Existing orders keep their rates.
func (s *RestaurantService) UpdatePricing(ctx context.Context, restaurantID uint, taxRateBps, tipRateBps int) (*models.Restaurant, error) {
	if err := validateRates(taxRateBps, tipRateBps); err != nil {
		return nil, err
	}
	return s.update(ctx, restaurantID, map[string]interface{}{
		"tax_rate_bps":         taxRateBps,
		"default_tip_rate_bps": tipRateBps,
	})
}

// CreateTable adds a table. An empty code gets a random QR token.
func (s *RestaurantService) CreateTable(ctx context.Context, restaurantID uint, label, code string) (*models.Table, error) {
	if strings.TrimSpace(label) == "" {
		return nil, newError(ErrValidation, "table label is required")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		code = strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	} else if !slugPattern.MatchString(code) {
		return nil, newError(ErrValidation, "table code %q must be lowercase letters, digits and dashes", code)
	}

	table := &models.Table{RestaurantID: restaurantID, Code: code, Label: label}
	if err := s.restaurants.CreateTable(ctx, table); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "table code %q is taken", code)
		}
		return nil, persistenceError(err, "create table")
	}
	return table, nil
}

// ListTables returns the restaurant's tables
func (s *RestaurantService) ListTables(ctx context.Context, restaurantID uint) ([]models.Table, error) {
	tables, err := s.restaurants.ListTables(ctx, restaurantID)
	if err != nil {
		return nil, persistenceError(err, "list tables")
	}
	if tables == nil {
		tables = []models.Table{}
	}
	return tables, nil
}

func (s *RestaurantService) update(ctx context.Context, restaurantID uint, updates map[string]interface{}) (*models.Restaurant, error) {
	restaurant, err := s.restaurants.Update(ctx, restaurantID, updates)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrTenantNotFound, "restaurant %d not found", restaurantID)
		}
		return nil, persistenceError(err, "update restaurant")
	}
	return restaurant, nil
}

func validateRates(taxRateBps, tipRateBps int) error {
	if taxRateBps < 0 || taxRateBps > MaxRateBps {
		return newError(ErrValidation, "tax rate must be between 0 and %d bps", MaxRateBps)
	}
	if tipRateBps < 0 || tipRateBps > MaxRateBps {
		return newError(ErrValidation, "tip rate must be between 0 and %d bps", MaxRateBps)
	}
	return nil
}
