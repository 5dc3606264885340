package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tabletap/tabletap-api/models"
	"gorm.io/gorm"
)

// OrderFilter narrows ListOrders
type OrderFilter struct {
	Statuses []models.OrderStatus
	Offset   int
	Limit    int
}

// IOrderRepository defines the persistence operations on orders.
// Status changes only happen through CompareAndSetStatus.
type IOrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByIDForRestaurant(ctx context.Context, restaurantID uint, id string) (*models.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	CompareAndSetStatus(ctx context.Context, id string, from, to models.OrderStatus, source string, extra map[string]interface{}) (bool, error)
	AttachSession(ctx context.Context, id, sessionID string) (bool, error)
	ListOrders(ctx context.Context, restaurantID uint, filter OrderFilter) ([]models.Order, int64, error)
	FindAbandoned(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error)
	DeleteIfEmpty(ctx context.Context, id string) (bool, error)
}

// OrderRepository implements IOrderRepository for GORM.
type OrderRepository struct {
	DB *gorm.DB
}

// NewOrderRepository creates a new OrderRepository instance.
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{DB: db}
}

// CreateOrder inserts the order, its lines and the creation audit event in one
// transaction. The order code is taken from the restaurant's counter.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Restaurant{}).
			Where("id = ?", order.RestaurantID).
			UpdateColumn("order_counter", gorm.Expr("order_counter + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var counter int64
		if err := tx.Model(&models.Restaurant{}).
			Where("id = ?", order.RestaurantID).
			Pluck("order_counter", &counter).Error; err != nil {
			return err
		}
		order.Code = fmt.Sprintf("%04d", counter)

		for i := range order.Lines {
			order.Lines[i].Position = i + 1
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		return tx.Create(&models.OrderStatusEvent{
			OrderID:  order.ID,
			ToStatus: order.Status,
			Source:   models.SourceCheckout,
		}).Error
	})
}

func (r *OrderRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Table")
}

// FindByID loads an order with its lines and table
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.preloaded(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// FindByIDForRestaurant loads an order only if it belongs to restaurantID
func (r *OrderRepository) FindByIDForRestaurant(ctx context.Context, restaurantID uint, id string) (*models.Order, error) {
	var order models.Order
	if err := r.preloaded(ctx).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// FindBySessionID loads the order carrying the given payment session id
func (r *OrderRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	if err := r.preloaded(ctx).
		Preload("Restaurant").
		Where("external_payment_session_id = ?", sessionID).
		First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// CompareAndSetStatus moves the order from -> to only if it is still in from.
// extra columns are written in the same UPDATE. It reports whether the swap won.
func (r *OrderRepository) CompareAndSetStatus(ctx context.Context, id string, from, to models.OrderStatus, source string, extra map[string]interface{}) (bool, error) {
	swapped := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		}
		for k, v := range extra {
			updates[k] = v
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		swapped = true

		prev := from
		return tx.Create(&models.OrderStatusEvent{
			OrderID:    id,
			FromStatus: &prev,
			ToStatus:   to,
			Source:     source,
		}).Error
	})
	if err != nil {
		return false, err
	}
	return swapped, nil
}

// AttachSession sets the payment session id if none is set yet and the order is still NEW
func (r *OrderRepository) AttachSession(ctx context.Context, id, sessionID string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ? AND external_payment_session_id IS NULL", id, models.StatusNew).
		Update("external_payment_session_id", sessionID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListOrders returns one page of a restaurant's orders, oldest first, and the total count
func (r *OrderRepository) ListOrders(ctx context.Context, restaurantID uint, filter OrderFilter) ([]models.Order, int64, error) {
	query := r.DB.WithContext(ctx).Model(&models.Order{}).Where("restaurant_id = ?", restaurantID)
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Table").
		Order("created_at ASC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// FindAbandoned returns NEW orders that never got a payment session
func (r *OrderRepository) FindAbandoned(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Where("status = ? AND external_payment_session_id IS NULL AND created_at < ?", models.StatusNew, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// DeleteIfEmpty removes an order that has no lines. Orders with lines are history and stay.
func (r *OrderRepository) DeleteIfEmpty(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lines int64
		if err := tx.Model(&models.OrderLine{}).Where("order_id = ?", id).Count(&lines).Error; err != nil {
			return err
		}
		if lines > 0 {
			return nil
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderStatusEvent{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Order{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected == 1
		return nil
	})
	return deleted, err
}
