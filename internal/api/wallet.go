package api

import (
	"net/http" // HTTP status codes
	"net/url"  // Cache key from query
	"strings"  // String manipulation
	"time"     // Date filters

	"invest_platform/internal/apperr"     // Error classification
	"invest_platform/internal/history"    // History listing
	"invest_platform/internal/investment" // Investment engine
	"invest_platform/internal/ledger"     // User lookups
	"invest_platform/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Exact amounts
)

// DepositRequest represents a deposit request
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"` // Deposit amount
}

// DepositHandler adds funds to the wallet named in the path
func DepositHandler(engine *investment.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DepositRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		res, err := engine.Deposit(c.Request.Context(), principal(c), c.Param("userId"), req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Deposit successful", "deposit": res})
	}
}

// GetWalletHandler returns the caller's balance
func GetWalletHandler(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := store.FindUser(c.Request.Context(), principal(c).UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": user.ID, "wallet": user.Wallet})
	}
}

// GetHistoryHandler returns the caller's fund movements, newest first
func GetHistoryHandler(store *ledger.Store, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := principal(c).UserID // History is always scoped to the caller
		q, err := historyQuery(c)
		if err != nil {
			respondError(c, err)
			return
		}
		q.UserID = userID
		serveHistory(c, store, cache, utils.UserHistoryScope(userID), utils.UserHistoryCacheKey(userID, cacheQuery(c)), q)
	}
}

// serveHistory answers a history listing from cache or the store
func serveHistory(c *gin.Context, store *ledger.Store, cache *utils.Cache, scope, base string, q history.Query) {
	ctx := c.Request.Context()
	cacheKey := cache.Key(ctx, scope, base) // Versioned before the store read
	var cached history.Page
	// If cached data found, return it
	if cache.Get(ctx, cacheKey, &cached) {
		c.JSON(http.StatusOK, gin.H{"history": cached, "cached": true})
		return
	}
	page, err := history.List(ctx, store, q)
	if err != nil {
		respondError(c, err)
		return
	}
	cache.Set(ctx, cacheKey, page) // Cache the response for future requests
	c.JSON(http.StatusOK, gin.H{"history": page, "cached": false})
}

// historyQuery reads the history filters shared by user and admin listings
func historyQuery(c *gin.Context) (history.Query, error) {
	page, pageSize := pagination(c)
	q := history.Query{
		ProjectID: c.Query("project_id"), // Filter by project
		Action:    c.Query("action"),     // Filter by action
		Page:      page,
		PageSize:  pageSize,
	}
	var err error
	if q.From, err = parseDate("from", c.Query("from")); err != nil {
		return q, err
	}
	if q.To, err = parseDate("to", c.Query("to")); err != nil {
		return q, err
	}
	return q, nil
}

// parseDate accepts RFC 3339 timestamps or plain dates
func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil // No filter
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.ErrInvalidField.With(field + " must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
}

// cacheQuery builds a stable cache key suffix from the listing params
func cacheQuery(c *gin.Context) string {
	var keyParts []string // Parts of the cache key
	// Append each query parameter to the key parts
	for _, k := range []string{"user_id", "project_id", "action", "from", "to", "page", "page_size"} {
		keyParts = append(keyParts, k+"="+url.QueryEscape(c.DefaultQuery(k, ""))) // Append key-value pair
	}
	return strings.Join(keyParts, ":")
}
