package middleware

import (
	"net/http" // HTTP status codes
	"slices"   // Role membership

	"invest_platform/internal/ledger" // User lookups

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// RequireRole checks the user's role from the database on each request, so
// demotions and deactivations apply before the token expires
func RequireRole(store *ledger.Store, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID) // Get userID from context
		// Check if userID exists in context
		if userID == "" {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		user, err := store.FindUser(c.Request.Context(), userID) // Fetch user from database
		if err != nil {
			// If user not found or any error, abort with forbidden status
			logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Role check failed")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// Check if the user is active and holds one of the roles
		if !user.IsActive || !slices.Contains(roles, user.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Set(ContextRole, user.Role) // Trust the stored role over the token
		c.Next()                      // Proceed to the next handler
	}
}
