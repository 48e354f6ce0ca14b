package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact decimal arithmetic for balances
)

// Roles carried by users and their tokens
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superAdmin"
)

// User Model
type User struct {
	ID           string          `gorm:"type:char(36);primaryKey" json:"id"`         // UUID primary key
	Name         string          `gorm:"size:100" json:"name"`                       // Display name
	Email        string          `gorm:"size:191;uniqueIndex;not null" json:"email"` // Login email
	PasswordHash string          `gorm:"not null" json:"-"`                          // Bcrypt hash
	Role         string          `gorm:"size:20;not null" json:"role"`               // user, admin or superAdmin
	Wallet       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"wallet"`  // Wallet balance, never negative
	IsActive     bool            `gorm:"not null" json:"is_active"`                  // Soft deactivation flag
	CreatedAt    time.Time       `json:"created_at"`                                 // Creation time
	UpdatedAt    time.Time       `json:"updated_at"`                                 // Last update time
}

// IsAdmin reports whether the role may manage projects
func IsAdmin(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}
