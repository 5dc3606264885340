package testutil

import (
	"net/http"
	"strings"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/tabletap/tabletap-api/middleware"
)

// Identity is who a stub bearer token authenticates as
type Identity struct {
	Subject string
	Scopes  []string
}

// MockValidatedClaims creates a mock ValidatedClaims for testing
func MockValidatedClaims(subject, issuer string, scopes []string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  issuer,
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{
			Scope: strings.Join(scopes, " "),
		},
	}
}

// SetMockAuthContext sets up a mock authenticated context for testing
func SetMockAuthContext(c *gin.Context, userID, accessToken, issuer string, scopes []string) {
	c.Set(middleware.ContextUserID, userID)
	c.Set(middleware.ContextAccessToken, accessToken)
	c.Set(middleware.ContextClaims, MockValidatedClaims(userID, issuer, scopes))
}

// StubAuth stands in for EnsureValidToken. Bearer tokens are looked up in
// identities; anything else gets the same 401 the real middleware returns.
func StubAuth(identities map[string]Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		identity, ok := identities[token]
		if !found || !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TOKEN",
					"message": "Failed to validate JWT.",
				},
			})
			return
		}

		SetMockAuthContext(c, identity.Subject, token, "https://test.auth0.com/", identity.Scopes)
		c.Next()
	}
}
