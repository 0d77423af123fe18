package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Keys used to store the authenticated identity in the request context.
const (
	userIDKey    = contextKey("userID")
	companyIDKey = contextKey("companyID")
)

// WithIdentity returns a copy of ctx carrying the acting user and company.
func WithIdentity(ctx context.Context, userID, companyID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, companyIDKey, companyID)
}

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, userIDKey)
}

// GetCompanyIDFromContext retrieves the tenant the caller acts for.
func GetCompanyIDFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, companyIDKey)
}

func stringFromContext(c *gin.Context, key contextKey) (string, bool) {
	if val, exists := c.Get(string(key)); exists {
		s, ok := val.(string)
		return s, ok && s != ""
	}
	// check in the request context as well
	if val, ok := c.Request.Context().Value(key).(string); ok && val != "" {
		return val, true
	}
	return "", false
}
