package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact decimal arithmetic
)

// Investment Model: the principal a user still has committed to a project
type Investment struct {
	ID        string          `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    string          `gorm:"type:char(36);index;not null" json:"user_id"`
	ProjectID string          `gorm:"type:char(36);index;not null" json:"project_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"` // Strictly positive while the row exists
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HistoryAction classifies a fund movement
type HistoryAction string

const (
	ActionAddFunds   HistoryAction = "addFunds"
	ActionInvestment HistoryAction = "investment"
	ActionWithdrawal HistoryAction = "withdrawal"
)

// InvestmentHistory Model: write-once audit entry for every fund movement
type InvestmentHistory struct {
	ID            string          `gorm:"type:char(36);primaryKey" json:"id"`
	UserID        string          `gorm:"type:char(36);index;not null" json:"user_id"`
	ProjectID     *string         `gorm:"type:char(36);index" json:"project_id,omitempty"` // Empty for wallet top-ups
	Action        HistoryAction   `gorm:"size:16;index;not null" json:"action"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	ProfitLoss    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"profit_loss"`
	Fee           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"fee"`            // Withdrawals only
	WalletBalance decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"wallet_balance"` // Balance right after the movement
	ReturnType    ReturnType      `gorm:"size:16" json:"return_type,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

// TableName keeps the audit table name stable for reporting tools
func (InvestmentHistory) TableName() string {
	return "investment_histories"
}
