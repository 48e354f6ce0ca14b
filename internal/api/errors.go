package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"invest_platform/internal/apperr"     // Error classification
	"invest_platform/internal/investment" // Principal type
	"invest_platform/internal/middleware" // Context keys

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// respondError writes err using its classified status. Internal causes are
// logged and never returned to the client.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err) // Map error kind to status
	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method, // HTTP method
			"path":   c.FullPath(),     // Route pattern
			"error":  err.Error(),      // Full error chain
		}).Error("Request failed")
	}
	c.JSON(status, gin.H{
		"error": apperr.PublicMessage(err), // Message safe for clients
		"code":  apperr.CodeOf(err),        // Machine readable code
	})
}

// principal returns the authenticated caller
func principal(c *gin.Context) investment.Principal {
	return investment.Principal{
		UserID: c.GetString(middleware.ContextUserID), // Set by JWT middleware
		Role:   c.GetString(middleware.ContextRole),   // Set by JWT or role middleware
	}
}

// pagination reads page and page_size query params with defaults 1 and 20
func pagination(c *gin.Context) (int, int) {
	page := 1      // Default page number
	pageSize := 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// Check and set page size within limits
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size
		}
	}
	return page, pageSize
}
