// Package ledgertest opens throwaway in-memory stores for tests.
package ledgertest

import (
	"fmt"         // DSN formatting
	"strings"     // Test name sanitizing
	"sync/atomic" // Unique database names
	"testing"     // Test helpers
	"time"        // Timestamps and durations

	"invest_platform/internal/db"     // Schema migration
	"invest_platform/internal/domain" // Importing domain models
	"invest_platform/internal/ledger" // Transactional store

	"github.com/google/uuid"              // Identifiers
	"github.com/shopspring/decimal"       // Exact decimal arithmetic
	"github.com/stretchr/testify/require" // Test assertions
	"gorm.io/driver/sqlite"               // SQLite driver for GORM
	"gorm.io/gorm"                        // GORM ORM library
	"gorm.io/gorm/logger"                 // GORM log level
)

var seq atomic.Int64

// NewStore returns a migrated store backed by a private in-memory SQLite database.
func NewStore(t *testing.T) (*ledger.Store, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return ledger.New(gdb), gdb
}

// SeedUser inserts an active user holding wallet.
func SeedUser(t *testing.T, gdb *gorm.DB, wallet string) *domain.User {
	t.Helper()
	id := uuid.NewString()
	user := &domain.User{
		ID:           id,
		Name:         "investor",
		Email:        id + "@example.com",
		PasswordHash: "x",
		Role:         domain.RoleUser,
		Wallet:       decimal.RequireFromString(wallet),
		IsActive:     true,
	}
	require.NoError(t, gdb.Create(user).Error)
	return user
}

// SeedProject inserts an open fixed-return project with capacity 1000 and minimum 100,
// then applies mutate before saving.
func SeedProject(t *testing.T, gdb *gorm.DB, mutate func(p *domain.Project)) *domain.Project {
	t.Helper()
	fixed := decimal.NewFromInt(10)
	project := &domain.Project{
		ID:            uuid.NewString(),
		Title:         "project-" + uuid.NewString(),
		Description:   "test project",
		Capacity:      decimal.NewFromInt(1000),
		RaisedAmount:  decimal.Zero,
		MinInvestment: decimal.NewFromInt(100),
		DurationDays:  30,
		Status:        domain.ProjectOpen,
		ReturnType:    domain.ReturnFixed,
		FixedReturn:   &fixed,
		WithdrawalFee: decimal.NewFromInt(5),
		EndDate:       time.Now().UTC().Add(30 * 24 * time.Hour),
	}
	if mutate != nil {
		mutate(project)
	}
	require.NoError(t, gdb.Create(project).Error)
	return project
}

// SeedInvestment inserts an investment row without touching balances.
func SeedInvestment(t *testing.T, gdb *gorm.DB, userID, projectID, amount string) *domain.Investment {
	t.Helper()
	inv := &domain.Investment{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProjectID: projectID,
		Amount:    decimal.RequireFromString(amount),
	}
	require.NoError(t, gdb.Create(inv).Error)
	return inv
}

// ReloadUser reads the current row of a user.
func ReloadUser(t *testing.T, gdb *gorm.DB, id string) *domain.User {
	t.Helper()
	var user domain.User
	require.NoError(t, gdb.Where("id = ?", id).First(&user).Error)
	return &user
}

// ReloadProject reads the current row of a project.
func ReloadProject(t *testing.T, gdb *gorm.DB, id string) *domain.Project {
	t.Helper()
	var project domain.Project
	require.NoError(t, gdb.Where("id = ?", id).First(&project).Error)
	return &project
}

// CountHistory counts history rows of a user.
func CountHistory(t *testing.T, gdb *gorm.DB, userID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&domain.InvestmentHistory{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}
