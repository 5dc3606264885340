package repository

import (
	"context"

	"github.com/tabletap/tabletap-api/models"
	"gorm.io/gorm"
)

// IUserRepository defines staff account operations.
type IUserRepository interface {
	FindByAuth0ID(ctx context.Context, auth0ID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id uint, updates map[string]interface{}) (*models.User, error)
}

// UserRepository implements IUserRepository for GORM.
type UserRepository struct {
	DB *gorm.DB
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// FindByAuth0ID retrieves a user by the 'sub' claim of their token.
func (r *UserRepository) FindByAuth0ID(ctx context.Context, auth0ID string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Create inserts a user. ErrDuplicate means the Auth0 ID or email is taken.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.DB.WithContext(ctx).Create(user).Error)
}

// Update writes the given columns and returns the fresh row.
func (r *UserRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (*models.User, error) {
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, translate(err)
	}
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}
