package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/saif-ali01/projectXAPI/internal/auth"
	"github.com/saif-ali01/projectXAPI/internal/models"
)

const (
	// ContextKeyUserID holds the authenticated owner's primitive.ObjectID.
	ContextKeyUserID = "userID"
	// ContextKeyRole holds the role claim of the token.
	ContextKeyRole = "role"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token provided"})
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.ValidateJWT(parts[1], jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
			return
		}
		ownerID, _ := claims.OwnerID() // ValidateJWT already rejected malformed subjects

		c.Set(ContextKeyUserID, ownerID)
		c.Set(ContextKeyRole, models.Role(claims.Role))
		c.Next()
	}
}

// OwnerID returns the id stored by AuthMiddleware.
func OwnerID(c *gin.Context) (primitive.ObjectID, bool) {
	v, exists := c.Get(ContextKeyUserID)
	if !exists {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok && !id.IsZero()
}

// AdminMiddleware requires the admin role. Assumes AuthMiddleware runs first.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(ContextKeyRole)
		if role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Administrator privileges required"})
			return
		}
		c.Next()
	}
}
