package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Every pooled connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func seedRestaurant(t *testing.T, db *gorm.DB, slug string, paymentsEnabled bool) *models.Restaurant {
	account := "acct_" + slug
	restaurant := &models.Restaurant{
		Slug:              slug,
		Name:              "Restaurant " + slug,
		Currency:          "usd",
		TaxRateBps:        875,
		DefaultTipRateBps: 1800,
		StripeAccountID:   &account,
		PaymentsEnabled:   paymentsEnabled,
	}
	require.NoError(t, db.Create(restaurant).Error)
	return restaurant
}

func seedTable(t *testing.T, db *gorm.DB, restaurantID uint, code, label string) *models.Table {
	table := &models.Table{RestaurantID: restaurantID, Code: code, Label: label}
	require.NoError(t, db.Create(table).Error)
	return table
}

// seedMargherita creates a pizza with a SINGLE "Size" and a MULTI "Extras" modifier
func seedMargherita(t *testing.T, db *gorm.DB, restaurantID uint) *models.MenuItem {
	item := &models.MenuItem{
		RestaurantID: restaurantID,
		Name:         "Margherita",
		Category:     "Pizza",
		PriceCents:   1299,
		IsAvailable:  true,
		Modifiers: []models.Modifier{
			{
				Name: "Size",
				Type: models.ModifierSingle,
				Options: []models.ModifierOption{
					{Name: "Small", PriceDeltaCents: 0},
					{Name: "Large", PriceDeltaCents: 300},
				},
			},
			{
				Name: "Extras",
				Type: models.ModifierMulti,
				Options: []models.ModifierOption{
					{Name: "Basil", PriceDeltaCents: 50},
					{Name: "Olives", PriceDeltaCents: 75},
				},
			},
		},
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func newTestOrderService(db *gorm.DB) (*OrderService, *MockNotifier) {
	notifier := NewMockNotifier()
	return NewOrderService(repository.NewOrderRepository(db), notifier, zap.NewNop()), notifier
}

// pizzaOrder is two plain 12.99 items at the seeded restaurant rates
func pizzaOrder(restaurant *models.Restaurant) NewOrder {
	return NewOrder{
		RestaurantID: restaurant.ID,
		Currency:     restaurant.Currency,
		TaxRateBps:   restaurant.TaxRateBps,
		TipRateBps:   restaurant.DefaultTipRateBps,
		Lines: []NewOrderLine{
			{MenuItemID: 1, Name: "Margherita", Quantity: 2, UnitPriceCents: 1299},
		},
	}
}

func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}
