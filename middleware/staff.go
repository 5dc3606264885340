package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/tabletap-api/models"
	"github.com/tabletap/tabletap-api/repository"
)

// ContextStaffUser holds the *models.User resolved by LoadStaffUser
const ContextStaffUser = "staff_user"

// LoadStaffUser looks up the staff profile for the token's subject.
// Must run after EnsureValidToken.
func LoadStaffUser(users repository.IUserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth0ID, err := GetUserID(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
			return
		}

		user, err := users.FindByAuth0ID(c.Request.Context(), auth0ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				abortWithError(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.")
				return
			}
			abortWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load user profile")
			return
		}

		c.Set(ContextStaffUser, user)
		c.Next()
	}
}

// RequireRestaurant rejects staff who have not created or joined a restaurant
func RequireRestaurant() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetStaffUser(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Staff profile not loaded")
			return
		}
		if user.RestaurantID == nil {
			abortWithError(c, http.StatusForbidden, "NO_RESTAURANT", "User does not belong to a restaurant")
			return
		}
		c.Next()
	}
}

// RequireOwner allows only the restaurant's owner through
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetStaffUser(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Staff profile not loaded")
			return
		}
		if !user.IsOwner() {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Only the restaurant owner can do this")
			return
		}
		c.Next()
	}
}

// GetStaffUser returns the profile set by LoadStaffUser
func GetStaffUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextStaffUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

// GetRestaurantID returns the staff member's restaurant. Use behind RequireRestaurant.
func GetRestaurantID(c *gin.Context) (uint, bool) {
	user, ok := GetStaffUser(c)
	if !ok || user.RestaurantID == nil {
		return 0, false
	}
	return *user.RestaurantID, true
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
