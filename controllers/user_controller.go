package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/tabletap-api/middleware"
	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/repository"
	"github.com/tabletap/tabletap-api/services"
	"go.uber.org/zap"
)

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	Name  string `json:"name" binding:"omitempty"`
	Email string `json:"email" binding:"omitempty,email"`
}

// UserController manages staff profiles
type UserController struct {
	users    repository.IUserRepository
	userInfo services.UserInfoProvider
	logger   *zap.Logger
}

// NewUserController creates the staff profile controller
func NewUserController(users repository.IUserRepository, userInfo services.UserInfoProvider, logger *zap.Logger) *UserController {
	return &UserController{users: users, userInfo: userInfo, logger: logger}
}

// CreateUser handles POST /api/v1/users - creates a new staff profile from Auth0 userinfo.
// New users have no restaurant until they create one.
func (uc *UserController) CreateUser(c *gin.Context) {
	// Get the Auth0 user ID from the validated JWT
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondErrorBody(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token", nil)
		return
	}

	// Get the access token to call Auth0's /userinfo endpoint
	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		respondErrorBody(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found", nil)
		return
	}

	userInfo, err := uc.userInfo.GetUserInfo(c.Request.Context(), accessToken)
	if err != nil {
		uc.logger.Warn("userinfo lookup failed", zap.String("auth0_id", auth0ID), zap.Error(err))
		respondErrorBody(c, http.StatusBadGateway, "AUTH0_ERROR", "Failed to fetch user information from Auth0", nil)
		return
	}

	if userInfo.Email == "" {
		respondErrorBody(c, http.StatusBadRequest, "MISSING_EMAIL", "Email not provided by Auth0", nil)
		return
	}
	if userInfo.Name == "" {
		respondErrorBody(c, http.StatusBadRequest, "MISSING_NAME", "Name not provided by Auth0", nil)
		return
	}

	user := models.User{
		Auth0ID: auth0ID,
		Name:    userInfo.Name,
		Email:   userInfo.Email,
		Role:    models.RoleStaff,
	}

	if err := uc.users.Create(c.Request.Context(), &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			respondErrorBody(c, http.StatusConflict, "USER_EXISTS", "A user with this Auth0 ID or email already exists", nil)
			return
		}
		uc.logger.Error("failed to create user", zap.Error(err))
		respondErrorBody(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create user", nil)
		return
	}

	uc.logger.Info("staff user created", zap.Uint("user_id", user.ID))
	respondSuccess(c, http.StatusCreated, user)
}

// GetMyProfile handles GET /api/v1/users/me - gets current user's profile
func (uc *UserController) GetMyProfile(c *gin.Context) {
	user, ok := middleware.GetStaffUser(c)
	if !ok {
		respondErrorBody(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information", nil)
		return
	}

	respondSuccess(c, http.StatusOK, user)
}

// UpdateMyProfile handles PUT /api/v1/users/me - updates current user's profile
func (uc *UserController) UpdateMyProfile(c *gin.Context) {
	user, ok := middleware.GetStaffUser(c)
	if !ok {
		respondErrorBody(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information", nil)
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}

	// If no fields to update, return current user
	if len(updates) == 0 {
		respondSuccess(c, http.StatusOK, user)
		return
	}

	updated, err := uc.users.Update(c.Request.Context(), user.ID, updates)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			respondErrorBody(c, http.StatusConflict, "EMAIL_EXISTS", "A user with this email already exists", nil)
			return
		}
		uc.logger.Error("failed to update user", zap.Uint("user_id", user.ID), zap.Error(err))
		respondErrorBody(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update user profile", nil)
		return
	}

	respondSuccess(c, http.StatusOK, updated)
}
