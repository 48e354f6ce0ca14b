package api

import (
	"net/http" // HTTP handler for metrics
	"time"     // Token lifetime

	"invest_platform/internal/domain"     // Roles
	"invest_platform/internal/investment" // Investment engine
	"invest_platform/internal/ledger"     // Store
	"invest_platform/internal/middleware" // Auth and rate limiting
	"invest_platform/internal/project"    // Project lifecycle
	"invest_platform/internal/utils"      // Cache

	"github.com/gin-gonic/gin" // Gin web framework
)

// RouterDeps are the collaborators wired into the HTTP routes
type RouterDeps struct {
	Store     *ledger.Store
	Engine    *investment.Engine
	Projects  *project.Lifecycle
	Cache     *utils.Cache            // Optional, nil disables caching
	Limiter   *middleware.RateLimiter // Optional
	Metrics   http.Handler            // Optional, served on /metrics
	JWTSecret string
	JWTTTL    time.Duration
}

// NewRouter registers every route on a new gin engine
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.Default() // Gin router instance

	limit := func(c *gin.Context) { c.Next() } // No-op when rate limiting is disabled
	if d.Limiter != nil {
		limit = d.Limiter.Middleware()
	}

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics)) // Prometheus scrape endpoint
	}

	// Auth routes
	r.POST("/auth/login", limit, LoginHandler(d.Store, d.JWTSecret, d.JWTTTL)) // Login endpoint

	// Authenticated routes
	authed := r.Group("")
	authed.Use(middleware.JWTAuthMiddleware(d.JWTSecret), limit)
	authed.GET("/projects", ListProjectsHandler(d.Projects, d.Cache))           // List projects
	authed.GET("/projects/:id", GetProjectHandler(d.Projects, d.Cache))         // Project details
	authed.POST("/projects/:id/investments", CreateInvestmentHandler(d.Engine)) // Invest into a project
	authed.GET("/investments", ListInvestmentsHandler(d.Store))                 // Caller's investments
	authed.POST("/investments/:id/withdraw", WithdrawHandler(d.Engine))         // Withdraw from an investment
	authed.GET("/wallet", GetWalletHandler(d.Store))                            // Caller's balance
	authed.GET("/wallet/history", GetHistoryHandler(d.Store, d.Cache))          // Caller's history
	authed.POST("/wallet/:userId/funds", DepositHandler(d.Engine))              // Wallet top-up

	// Admin routes (protected, admin only)
	admin := r.Group("")
	admin.Use(middleware.JWTAuthMiddleware(d.JWTSecret), middleware.RequireRole(d.Store, domain.RoleAdmin, domain.RoleSuperAdmin), limit)
	admin.POST("/projects", CreateProjectHandler(d.Projects, d.Cache))         // Create project
	admin.PUT("/projects/:id", UpdateProjectHandler(d.Projects, d.Cache))      // Update project
	admin.DELETE("/projects/:id", DeleteProjectHandler(d.Projects, d.Cache))   // Soft-delete project
	admin.POST("/admin/projects/close-expired", CloseExpiredHandler(d.Engine)) // Manual expiry run
	admin.GET("/admin/history", ListHistoryHandler(d.Store, d.Cache))          // All fund movements

	return r
}
