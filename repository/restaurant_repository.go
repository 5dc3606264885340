package repository

import (
	"context"

	"github.com/tabletap/tabletap-api/models"
	"gorm.io/gorm"
)

// IRestaurantRepository defines tenant and table lookups.
type IRestaurantRepository interface {
	FindBySlug(ctx context.Context, slug string) (*models.Restaurant, error)
	FindByID(ctx context.Context, id uint) (*models.Restaurant, error)
	FindTableByCode(ctx context.Context, restaurantID uint, code string) (*models.Table, error)
	CreateWithOwner(ctx context.Context, restaurant *models.Restaurant, ownerID uint) error
	Update(ctx context.Context, restaurantID uint, updates map[string]interface{}) (*models.Restaurant, error)
	CreateTable(ctx context.Context, table *models.Table) error
	ListTables(ctx context.Context, restaurantID uint) ([]models.Table, error)
}

// RestaurantRepository implements IRestaurantRepository for GORM.
type RestaurantRepository struct {
	DB *gorm.DB
}

// NewRestaurantRepository creates a new RestaurantRepository instance.
func NewRestaurantRepository(db *gorm.DB) *RestaurantRepository {
	return &RestaurantRepository{DB: db}
}

// FindBySlug retrieves a restaurant by its public slug.
func (r *RestaurantRepository) FindBySlug(ctx context.Context, slug string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&restaurant).Error; err != nil {
		return nil, translate(err)
	}
	return &restaurant, nil
}

// FindByID retrieves a restaurant by its ID.
func (r *RestaurantRepository) FindByID(ctx context.Context, id uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.DB.WithContext(ctx).First(&restaurant, id).Error; err != nil {
		return nil, translate(err)
	}
	return &restaurant, nil
}

// FindTableByCode retrieves a restaurant's table by its QR code token.
func (r *RestaurantRepository) FindTableByCode(ctx context.Context, restaurantID uint, code string) (*models.Table, error) {
	var table models.Table
	if err := r.DB.WithContext(ctx).
		Where("restaurant_id = ? AND code = ?", restaurantID, code).
		First(&table).Error; err != nil {
		return nil, translate(err)
	}
	return &table, nil
}

// CreateWithOwner inserts the restaurant and makes ownerID its owner.
func (r *RestaurantRepository) CreateWithOwner(ctx context.Context, restaurant *models.Restaurant, ownerID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(restaurant).Error; err != nil {
			return translate(err)
		}
		res := tx.Model(&models.User{}).
			Where("id = ? AND restaurant_id IS NULL", ownerID).
			Updates(map[string]interface{}{
				"restaurant_id": restaurant.ID,
				"role":          models.RoleOwner,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Update writes the given columns and returns the fresh row.
func (r *RestaurantRepository) Update(ctx context.Context, restaurantID uint, updates map[string]interface{}) (*models.Restaurant, error) {
	if err := r.DB.WithContext(ctx).Model(&models.Restaurant{}).
		Where("id = ?", restaurantID).
		Updates(updates).Error; err != nil {
		return nil, translate(err)
	}
	return r.FindByID(ctx, restaurantID)
}

// CreateTable inserts a table.
func (r *RestaurantRepository) CreateTable(ctx context.Context, table *models.Table) error {
	return translate(r.DB.WithContext(ctx).Create(table).Error)
}

// ListTables returns a restaurant's tables ordered by label.
func (r *RestaurantRepository) ListTables(ctx context.Context, restaurantID uint) ([]models.Table, error) {
	var tables []models.Table
	err := r.DB.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("label ASC").
		Find(&tables).Error
	return tables, err
}
