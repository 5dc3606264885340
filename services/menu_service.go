package services

import (
	"context"
	"errors"
	"mime/multipart"

	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/repository"
	"go.uber.org/zap"
)

// MenuSource is the authoritative source of menu prices and availability
type MenuSource interface {
	GetItem(ctx context.Context, restaurantID, itemID uint) (*models.MenuItem, error)
}

// NewMenuItem is the input of MenuService.CreateItem
type NewMenuItem struct {
	Name        string
	Description string
	Category    string
	PriceCents  int64
	IsAvailable bool
	Modifiers   []models.Modifier
}

// MenuItemUpdate carries the fields to change; nil means unchanged
type MenuItemUpdate struct {
	Name        *string
	Description *string
	Category    *string
	PriceCents  *int64
	IsAvailable *bool
}

// MenuService serves menus to customers and lets staff edit them
type MenuService struct {
	menu   repository.IMenuRepository
	images ImageService
	logger *zap.Logger
}

// NewMenuService creates the menu service. images may be nil when photo storage is not configured.
func NewMenuService(menu repository.IMenuRepository, images ImageService, logger *zap.Logger) *MenuService {
	return &MenuService{menu: menu, images: images, logger: logger.Named("menu")}
}

// GetItem returns the current row for a restaurant's item, or ErrItemUnavailable if it does not exist
func (s *MenuService) GetItem(ctx context.Context, restaurantID, itemID uint) (*models.MenuItem, error) {
	item, err := s.menu.FindItem(ctx, restaurantID, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrItemUnavailable, "menu item %d does not exist", itemID)
		}
		return nil, persistenceError(err, "load menu item")
	}
	return item, nil
}

// ListMenu returns a restaurant's menu with photo URLs filled in
func (s *MenuService) ListMenu(ctx context.Context, restaurantID uint, onlyAvailable bool) ([]models.MenuItem, error) {
	items, err := s.menu.ListItems(ctx, restaurantID, onlyAvailable)
	if err != nil {
		return nil, persistenceError(err, "list menu")
	}
	if items == nil {
		items = []models.MenuItem{}
	}
	for i := range items {
		s.fillImageURL(ctx, &items[i])
	}
	return items, nil
}

// CreateItem adds an item (and its modifiers) to a restaurant's menu
func (s *MenuService) CreateItem(ctx context.Context, restaurantID uint, in NewMenuItem) (*models.MenuItem, error) {
	if in.PriceCents < 0 {
		return nil, newError(ErrValidation, "price must not be negative")
	}
	for _, m := range in.Modifiers {
		if !m.Type.Valid() {
			return nil, newError(ErrValidation, "modifier %q has unknown type %q", m.Name, m.Type)
		}
	}

	item := &models.MenuItem{
		RestaurantID: restaurantID,
		Name:         in.Name,
		Description:  in.Description,
		Category:     in.Category,
		PriceCents:   in.PriceCents,
		IsAvailable:  in.IsAvailable,
		Modifiers:    in.Modifiers,
	}
	if err := s.menu.CreateItem(ctx, item); err != nil {
		return nil, persistenceError(err, "create menu item")
	}
	return s.reload(ctx, restaurantID, item.ID)
}

// UpdateItem changes price, availability or descriptive fields.
// Existing orders keep their snapshots.
func (s *MenuService) UpdateItem(ctx context.Context, restaurantID, itemID uint, in MenuItemUpdate) (*models.MenuItem, error) {
	updates := make(map[string]interface{})
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if in.PriceCents != nil {
		if *in.PriceCents < 0 {
			return nil, newError(ErrValidation, "price must not be negative")
		}
		updates["price_cents"] = *in.PriceCents
	}
	if in.IsAvailable != nil {
		updates["is_available"] = *in.IsAvailable
	}
	if len(updates) == 0 {
		return s.reload(ctx, restaurantID, itemID)
	}

	if _, err := s.menu.UpdateItem(ctx, restaurantID, itemID, updates); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrMenuItemNotFound, "menu item %d not found", itemID)
		}
		return nil, persistenceError(err, "update menu item")
	}
	return s.reload(ctx, restaurantID, itemID)
}

// AddModifier attaches a modifier group to an item
func (s *MenuService) AddModifier(ctx context.Context, restaurantID, itemID uint, modifier models.Modifier) (*models.MenuItem, error) {
	if !modifier.Type.Valid() {
		return nil, newError(ErrValidation, "modifier %q has unknown type %q", modifier.Name, modifier.Type)
	}
	if _, err := s.reload(ctx, restaurantID, itemID); err != nil {
		return nil, err
	}

	modifier.ID = 0
	modifier.MenuItemID = itemID
	if err := s.menu.CreateModifier(ctx, &modifier); err != nil {
		return nil, persistenceError(err, "create modifier")
	}
	return s.reload(ctx, restaurantID, itemID)
}

// SetImage uploads a new photo for an item and removes the previous one
func (s *MenuService) SetImage(ctx context.Context, restaurantID, itemID uint, fileHeader *multipart.FileHeader) (*models.MenuItem, error) {
	if s.images == nil {
		return nil, ErrStorageNotConfigured
	}
	item, err := s.reload(ctx, restaurantID, itemID)
	if err != nil {
		return nil, err
	}

	key, err := s.images.UploadMenuImage(ctx, restaurantID, itemID, fileHeader)
	if err != nil {
		return nil, err
	}
	if _, err := s.menu.UpdateItem(ctx, restaurantID, itemID, map[string]interface{}{"image_s3_key": key}); err != nil {
		return nil, persistenceError(err, "save menu image")
	}

	if item.ImageS3Key != nil {
		if err := s.images.DeleteImage(ctx, *item.ImageS3Key); err != nil {
			s.logger.Warn("failed to delete previous menu image",
				zap.Uint("item_id", itemID),
				zap.String("key", *item.ImageS3Key),
				zap.Error(err))
		}
	}
	return s.reload(ctx, restaurantID, itemID)
}

func (s *MenuService) reload(ctx context.Context, restaurantID, itemID uint) (*models.MenuItem, error) {
	item, err := s.menu.FindItem(ctx, restaurantID, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrMenuItemNotFound, "menu item %d not found", itemID)
		}
		return nil, persistenceError(err, "load menu item")
	}
	s.fillImageURL(ctx, item)
	return item, nil
}

func (s *MenuService) fillImageURL(ctx context.Context, item *models.MenuItem) {
	if s.images == nil || item.ImageS3Key == nil {
		return
	}
	url, err := s.images.GetImageURL(ctx, *item.ImageS3Key)
	if err != nil {
		s.logger.Warn("failed to presign menu image", zap.Uint("item_id", item.ID), zap.Error(err))
		return
	}
	item.ImageURL = &url
}
