package repository

import (
	"context"

	"github.com/tabletap/tabletap-api/models"
	"gorm.io/gorm"
)

// IMenuRepository defines menu reference data operations.
type IMenuRepository interface {
	FindItem(ctx context.Context, restaurantID, itemID uint) (*models.MenuItem, error)
	ListItems(ctx context.Context, restaurantID uint, onlyAvailable bool) ([]models.MenuItem, error)
	CreateItem(ctx context.Context, item *models.MenuItem) error
	UpdateItem(ctx context.Context, restaurantID, itemID uint, updates map[string]interface{}) (*models.MenuItem, error)
	CreateModifier(ctx context.Context, modifier *models.Modifier) error
}

// MenuRepository implements IMenuRepository for GORM.
type MenuRepository struct {
	DB *gorm.DB
}

// NewMenuRepository creates a new MenuRepository instance.
func NewMenuRepository(db *gorm.DB) *MenuRepository {
	return &MenuRepository{DB: db}
}

func (r *MenuRepository) withModifiers(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Preload("Modifiers", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Modifiers.Options", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

// FindItem retrieves one of a restaurant's menu items with its modifiers.
func (r *MenuRepository) FindItem(ctx context.Context, restaurantID, itemID uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.withModifiers(ctx).
		Where("id = ? AND restaurant_id = ?", itemID, restaurantID).
		First(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// ListItems returns a restaurant's menu grouped by category.
func (r *MenuRepository) ListItems(ctx context.Context, restaurantID uint, onlyAvailable bool) ([]models.MenuItem, error) {
	query := r.withModifiers(ctx).Where("restaurant_id = ?", restaurantID)
	if onlyAvailable {
		query = query.Where("is_available = ?", true)
	}

	var items []models.MenuItem
	err := query.Order("category ASC").Order("name ASC").Find(&items).Error
	return items, err
}

// CreateItem inserts a menu item and any nested modifiers.
func (r *MenuRepository) CreateItem(ctx context.Context, item *models.MenuItem) error {
	available := item.IsAvailable
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		if available {
			return nil
		}
		// is_available has a database default of true and the insert skips a false bool
		if err := tx.Model(&models.MenuItem{}).Where("id = ?", item.ID).Update("is_available", false).Error; err != nil {
			return err
		}
		item.IsAvailable = false
		return nil
	})
}

// UpdateItem writes the given columns of a restaurant's item and returns the fresh row.
func (r *MenuRepository) UpdateItem(ctx context.Context, restaurantID, itemID uint, updates map[string]interface{}) (*models.MenuItem, error) {
	res := r.DB.WithContext(ctx).Model(&models.MenuItem{}).
		Where("id = ? AND restaurant_id = ?", itemID, restaurantID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Updates reports zero rows for unchanged values on some drivers, so confirm existence
		if _, err := r.FindItem(ctx, restaurantID, itemID); err != nil {
			return nil, err
		}
	}
	return r.FindItem(ctx, restaurantID, itemID)
}

// CreateModifier inserts a modifier with its options.
func (r *MenuRepository) CreateModifier(ctx context.Context, modifier *models.Modifier) error {
	return r.DB.WithContext(ctx).Create(modifier).Error
}
