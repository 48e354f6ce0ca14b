// Package returns computes what a withdrawal pays out.
package returns

import (
	"math/rand" // Default random source

	"invest_platform/internal/apperr" // Unknown return type
	"invest_platform/internal/domain" // Importing domain models

	"github.com/shopspring/decimal" // Exact decimal arithmetic
)

// Scale is the number of decimal places kept for money amounts.
const Scale = 4

var hundred = decimal.NewFromInt(100)

// RateSource yields the return rate applied to variable-return projects,
// as a fraction (0.05 is +5%).
type RateSource interface {
	Rate() decimal.Decimal
}

// UniformRate draws rates uniformly from [Min, Max).
type UniformRate struct {
	Min, Max float64
	Float64  func() float64 // defaults to math/rand/v2
}

// Rate returns the next random draw.
func (u UniformRate) Rate() decimal.Decimal {
	draw := u.Float64
	if draw == nil {
		draw = rand.Float64
	}
	return decimal.NewFromFloat(u.Min + draw()*(u.Max-u.Min))
}

// FixedRate always yields the same rate.
type FixedRate decimal.Decimal

// Rate returns f.
func (f FixedRate) Rate() decimal.Decimal { return decimal.Decimal(f) }

// Result is the breakdown of one withdrawal.
type Result struct {
	ProfitLoss decimal.Decimal `json:"profit_loss"`
	Fee        decimal.Decimal `json:"fee"`
	Net        decimal.Decimal `json:"net_amount"`
}

// Calculator applies a project's return policy.
type Calculator struct {
	Rates RateSource
}

// NewCalculator returns a Calculator drawing variable rates from rates.
func NewCalculator(rates RateSource) *Calculator {
	return &Calculator{Rates: rates}
}

// Compute returns the fee, profit or loss and net payout for withdrawing amount
// from project. Net is amount - fee + profitLoss and is not clamped.
func (c *Calculator) Compute(project *domain.Project, amount decimal.Decimal) (Result, error) {
	fee := amount.Mul(project.WithdrawalFee).Div(hundred).Round(Scale)

	var profit decimal.Decimal
	switch project.ReturnType {
	case domain.ReturnFixed:
		if project.FixedReturn == nil {
			return Result{}, apperr.ErrInvalidField.With("project has a fixed return type but no fixed return")
		}
		profit = amount.Mul(*project.FixedReturn).Div(hundred)
	case domain.ReturnVariable:
		profit = amount.Mul(c.Rates.Rate())
	default:
		return Result{}, apperr.ErrInvalidField.With("project has an unknown return type")
	}
	profit = profit.Round(Scale)

	return Result{
		ProfitLoss: profit,
		Fee:        fee,
		Net:        amount.Sub(fee).Add(profit),
	}, nil
}
