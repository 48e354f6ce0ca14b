package api

import (
	"net/http" // HTTP status codes
	"time"     // Close time

	"invest_platform/internal/investment" // Investment engine
	"invest_platform/internal/ledger"     // History listing
	"invest_platform/internal/utils"      // Utility functions
	"invest_platform/internal/validator"  // Identifier checks

	"github.com/gin-gonic/gin" // Gin web framework
)

// CloseExpiredHandler closes every open project past its end date
func CloseExpiredHandler(engine *investment.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids, err := engine.CloseExpiredProjects(c.Request.Context(), time.Now())
		if err != nil {
			respondError(c, err)
			return
		}
		if ids == nil {
			ids = []string{} // Render an empty list rather than null
		}
		c.JSON(http.StatusOK, gin.H{"closed": ids, "count": len(ids)})
	}
}

// ListHistoryHandler returns every fund movement, with optional filtering by user, project, action or date
func ListHistoryHandler(store *ledger.Store, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := historyQuery(c)
		if err != nil {
			respondError(c, err)
			return
		}
		if userID := c.Query("user_id"); userID != "" {
			if err := validator.ID("user_id", userID); err != nil {
				respondError(c, err)
				return
			}
			q.UserID = userID // Filter by user
		}
		serveHistory(c, store, cache, utils.AdminHistoryScope, utils.AdminHistoryCacheKey(cacheQuery(c)), q)
	}
}
