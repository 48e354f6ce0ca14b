package api

import (
	"net/http" // HTTP status codes

	"invest_platform/internal/investment" // Investment engine
	"invest_platform/internal/ledger"     // Investment listing

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Exact amounts
)

// InvestRequest represents an investment request. UserID defaults to the caller.
type InvestRequest struct {
	UserID string          `json:"user_id"` // Investing user, admins may set another user
	Amount decimal.Decimal `json:"amount"`  // Amount moved from the wallet
}

// WithdrawRequest represents a withdrawal request
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"` // Principal to take out
}

// CreateInvestmentHandler invests into the project named in the path
func CreateInvestmentHandler(engine *investment.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InvestRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		p := principal(c) // Authenticated caller
		if req.UserID == "" {
			req.UserID = p.UserID // Invest from own wallet by default
		}
		res, err := engine.Create(c.Request.Context(), p, c.Param("id"), req.UserID, req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Investment created", "investment": res})
	}
}

// WithdrawHandler withdraws from the caller's investment named in the path
func WithdrawHandler(engine *investment.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WithdrawRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		res, err := engine.Withdraw(c.Request.Context(), principal(c), c.Param("id"), req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Withdrawal successful", "withdrawal": res})
	}
}

// ListInvestmentsHandler returns the caller's active investments
func ListInvestmentsHandler(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		invs, err := store.ListInvestments(c.Request.Context(), principal(c).UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"investments": invs})
	}
}
