package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupRestaurantService(t *testing.T) (*RestaurantService, *gorm.DB) {
	db := setupServiceTestDB(t)
	return NewRestaurantService(repository.NewRestaurantRepository(db), zap.NewNop()), db
}

func seedUser(t *testing.T, db *gorm.DB, auth0ID, email string) *models.User {
	user := &models.User{Auth0ID: auth0ID, Name: "Staff " + auth0ID, Email: email, Role: models.RoleStaff}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRestaurantService_Create(t *testing.T) {
	svc, db := setupRestaurantService(t)
	ctx := context.Background()
	owner := seedUser(t, db, "auth0|owner", "owner@luigis.example")

	restaurant, err := svc.Create(ctx, owner, NewRestaurant{
		Slug:              " Luigis-Pizza ",
		Name:              "Luigi's Pizza",
		TaxRateBps:        875,
		DefaultTipRateBps: 1800,
	})
	require.NoError(t, err)
	assert.Equal(t, "luigis-pizza", restaurant.Slug)
	assert.Equal(t, "usd", restaurant.Currency)
	assert.False(t, restaurant.AcceptsPayments())

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, owner.ID).Error)
	require.NotNil(t, reloaded.RestaurantID)
	assert.Equal(t, restaurant.ID, *reloaded.RestaurantID)
	assert.True(t, reloaded.IsOwner())

	t.Run("Owner cannot create a second restaurant", func(t *testing.T) {
		_, err := svc.Create(ctx, &reloaded, NewRestaurant{Slug: "second", Name: "Second"})
		assert.True(t, errors.Is(err, ErrConflict))
	})

	t.Run("Stale user row is caught by the repository", func(t *testing.T) {
		_, err := svc.Create(ctx, owner, NewRestaurant{Slug: "third", Name: "Third"})
		assert.True(t, errors.Is(err, ErrConflict))

		var count int64
		db.Model(&models.Restaurant{}).Where("slug = ?", "third").Count(&count)
		assert.Zero(t, count, "transaction should roll back the restaurant insert")
	})

	t.Run("Taken slug", func(t *testing.T) {
		other := seedUser(t, db, "auth0|other", "other@example.com")
		_, err := svc.Create(ctx, other, NewRestaurant{Slug: "luigis-pizza", Name: "Copycat"})
		assert.True(t, errors.Is(err, ErrConflict))
	})
}

func TestRestaurantService_CreateValidation(t *testing.T) {
	svc, db := setupRestaurantService(t)
	owner := seedUser(t, db, "auth0|owner", "owner@example.com")

	tests := []struct {
		name string
		in   NewRestaurant
	}{
		{"Empty slug", NewRestaurant{Slug: "", Name: "X"}},
		{"Slug with spaces", NewRestaurant{Slug: "luigi pizza", Name: "X"}},
		{"Slug with trailing dash", NewRestaurant{Slug: "luigi-", Name: "X"}},
		{"Negative tax", NewRestaurant{Slug: "x", Name: "X", TaxRateBps: -1}},
		{"Tip above 100%", NewRestaurant{Slug: "x", Name: "X", DefaultTipRateBps: 10001}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), owner, tt.in)
			assert.Equal(t, CodeValidation, ErrorCode(err))
		})
	}
}

func TestRestaurantService_ConfigurePayments(t *testing.T) {
	svc, db := setupRestaurantService(t)
	ctx := context.Background()
	restaurant := seedRestaurant(t, db, "luigis", false)

	updated, err := svc.ConfigurePayments(ctx, restaurant.ID, "acct_123", true)
	require.NoError(t, err)
	assert.True(t, updated.AcceptsPayments())
	assert.Equal(t, "acct_123", *updated.StripeAccountID)

	disabled, err := svc.ConfigurePayments(ctx, restaurant.ID, "", false)
	require.NoError(t, err)
	assert.False(t, disabled.AcceptsPayments())
	assert.Nil(t, disabled.StripeAccountID)

	_, err = svc.ConfigurePayments(ctx, restaurant.ID, "", true)
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, err = svc.ConfigurePayments(ctx, restaurant.ID, "sk_live_oops", true)
	assert.Equal(t, CodeValidation, ErrorCode(err))
}

func TestRestaurantService_UpdatePricing(t *testing.T) {
	svc, db := setupRestaurantService(t)
	ctx := context.Background()
	restaurant := seedRestaurant(t, db, "luigis", true)

	updated, err := svc.UpdatePricing(ctx, restaurant.ID, 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, 1000, updated.TaxRateBps)
	assert.Equal(t, 0, updated.DefaultTipRateBps)

	_, err = svc.UpdatePricing(ctx, restaurant.ID, 10001, 0)
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, err = svc.UpdatePricing(ctx, 9999, 100, 100)
	assert.True(t, errors.Is(err, ErrTenantNotFound))
}

func TestRestaurantService_Tables(t *testing.T) {
	svc, db := setupRestaurantService(t)
	ctx := context.Background()
	restaurant := seedRestaurant(t, db, "luigis", true)
	other := seedRestaurant(t, db, "marios", true)

	table, err := svc.CreateTable(ctx, restaurant.ID, "Table 12", "t-12")
	require.NoError(t, err)
	assert.Equal(t, "t-12", table.Code)

	generated, err := svc.CreateTable(ctx, restaurant.ID, "Patio 1", "")
	require.NoError(t, err)
	assert.Len(t, generated.Code, 12)

	_, err = svc.CreateTable(ctx, restaurant.ID, "Duplicate", "t-12")
	assert.True(t, errors.Is(err, ErrConflict))

	// Codes are unique per restaurant only
	_, err = svc.CreateTable(ctx, other.ID, "Table 12", "t-12")
	require.NoError(t, err)

	_, err = svc.CreateTable(ctx, restaurant.ID, "", "t-13")
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, err = svc.CreateTable(ctx, restaurant.ID, "Bad", "T 13")
	assert.Equal(t, CodeValidation, ErrorCode(err))

	tables, err := svc.ListTables(ctx, restaurant.ID)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "Patio 1", tables[0].Label)
	assert.Equal(t, "Table 12", tables[1].Label)

	empty, err := svc.ListTables(ctx, 9999)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestRestaurantService_Lookup(t *testing.T) {
	svc, db := setupRestaurantService(t)
	ctx := context.Background()
	restaurant := seedRestaurant(t, db, "luigis", true)

	found, err := svc.GetBySlug(ctx, "luigis")
	require.NoError(t, err)
	assert.Equal(t, restaurant.ID, found.ID)

	_, err = svc.GetBySlug(ctx, "nope")
	assert.True(t, errors.Is(err, ErrTenantNotFound))

	byID, err := svc.Get(ctx, restaurant.ID)
	require.NoError(t, err)
	assert.Equal(t, "luigis", byID.Slug)

	_, err = svc.Get(ctx, 9999)
	assert.True(t, errors.Is(err, ErrTenantNotFound))
}
