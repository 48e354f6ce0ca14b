package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact decimal arithmetic for amounts
	"gorm.io/gorm"                  // Soft delete column
)

// ProjectStatus is the lifecycle state of a project
type ProjectStatus string

const (
	ProjectOpen      ProjectStatus = "open"
	ProjectClosed    ProjectStatus = "closed"
	ProjectCompleted ProjectStatus = "completed"
)

// ReturnType is the return policy applied on withdrawal
type ReturnType string

const (
	ReturnFixed    ReturnType = "fixed"
	ReturnVariable ReturnType = "variable"
)

// Project Model
type Project struct {
	ID            string           `gorm:"type:char(36);primaryKey" json:"id"`
	Title         string           `gorm:"size:191;uniqueIndex;not null" json:"title"`
	Description   string           `gorm:"type:text" json:"description"`
	Capacity      decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"capacity"`       // Max raisable amount
	RaisedAmount  decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"raised_amount"`  // 0 <= raised <= capacity
	MinInvestment decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"min_investment"` // Smallest accepted stake
	DurationDays  int              `gorm:"not null" json:"duration"`                          // Days between creation and end date
	Status        ProjectStatus    `gorm:"size:16;index;not null" json:"status"`
	ReturnType    ReturnType       `gorm:"size:16;not null" json:"return_type"`
	FixedReturn   *decimal.Decimal `gorm:"type:decimal(9,4)" json:"fixed_return,omitempty"`  // Percentage, set iff fixed
	WithdrawalFee decimal.Decimal  `gorm:"type:decimal(9,4);not null" json:"withdrawal_fee"` // Percentage in [0,100]
	EndDate       time.Time        `gorm:"index;not null" json:"end_date"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"deleted_at"` // Soft delete, hides the row from every query
}

// Remaining returns the capacity still available for investment
func (p *Project) Remaining() decimal.Decimal {
	return p.Capacity.Sub(p.RaisedAmount)
}

// IsFull reports whether the raised amount reached the capacity
func (p *Project) IsFull() bool {
	return p.RaisedAmount.GreaterThanOrEqual(p.Capacity)
}

// ProjectDraft carries the fields accepted when creating a project
type ProjectDraft struct {
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Capacity      decimal.Decimal  `json:"capacity"`
	MinInvestment decimal.Decimal  `json:"min_investment"`
	DurationDays  int              `json:"duration"`
	ReturnType    string           `json:"return_type"`
	FixedReturn   *decimal.Decimal `json:"fixed_return"`
	WithdrawalFee *decimal.Decimal `json:"withdrawal_fee"`
}

// ProjectPatch carries the optional fields accepted when updating a project
type ProjectPatch struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Capacity      *decimal.Decimal `json:"capacity"`
	MinInvestment *decimal.Decimal `json:"min_investment"`
	DurationDays  *int             `json:"duration"`    // End date becomes creation date + duration
	ReturnType    *string          `json:"return_type"` // Switching to fixed needs fixed_return
	Status        *string          `json:"status"`
	FixedReturn   *decimal.Decimal `json:"fixed_return"`
	WithdrawalFee *decimal.Decimal `json:"withdrawal_fee"`
}
