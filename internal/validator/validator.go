// Package validator holds the stateless input checks run before any
// transaction is opened. Nothing here performs I/O.
package validator

import (
	"fmt"     // Message formatting
	"strings" // Blank checks

	"invest_platform/internal/apperr" // Error classification
	"invest_platform/internal/domain" // Importing domain models

	"github.com/google/uuid"        // Identifier parsing
	"github.com/shopspring/decimal" // Exact decimal arithmetic
)

var hundred = decimal.NewFromInt(100)

// ID checks that value is a hyphenated UUID of version 1-5 with the RFC 4122
// variant. Case is ignored.
func ID(field, value string) error {
	id, err := uuid.Parse(value)
	if err != nil || len(value) != 36 || id.Version() < 1 || id.Version() > 5 || id.Variant() != uuid.RFC4122 {
		return apperr.ErrInvalidID.With(fmt.Sprintf("%s has an invalid format", field))
	}
	return nil
}

// PositiveAmount checks that amount is strictly greater than zero.
func PositiveAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.ErrInvalidAmount.With(fmt.Sprintf("%s must be greater than 0", field))
	}
	return nil
}

// MoneyScale is the number of decimal places stored for money.
const MoneyScale = 4

// Money checks that amount is positive and carries no more than MoneyScale decimals.
func Money(field string, amount decimal.Decimal) error {
	if err := PositiveAmount(field, amount); err != nil {
		return err
	}
	if !amount.Equal(amount.Truncate(MoneyScale)) {
		return apperr.ErrInvalidAmount.With(fmt.Sprintf("%s supports at most %d decimal places", field, MoneyScale))
	}
	return nil
}

// Percentage checks that value lies in [0, 100].
func Percentage(field string, value decimal.Decimal) error {
	if value.IsNegative() || value.GreaterThan(hundred) {
		return apperr.ErrInvalidField.With(fmt.Sprintf("%s must be a percentage between 0 and 100", field))
	}
	return nil
}

// Required checks that a string field is present.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.ErrInvalidField.With(fmt.Sprintf("%s is required", field))
	}
	return nil
}

// ReturnType parses a return policy name.
func ReturnType(value string) (domain.ReturnType, error) {
	switch rt := domain.ReturnType(value); rt {
	case domain.ReturnFixed, domain.ReturnVariable:
		return rt, nil
	}
	return "", apperr.ErrInvalidField.With("return type must be fixed or variable")
}

// Status parses a project status name.
func Status(value string) (domain.ProjectStatus, error) {
	switch st := domain.ProjectStatus(value); st {
	case domain.ProjectOpen, domain.ProjectClosed, domain.ProjectCompleted:
		return st, nil
	}
	return "", apperr.ErrInvalidField.With("status must be one of open, closed, completed")
}

// ProjectDraft checks the fields of a project about to be created.
func ProjectDraft(d domain.ProjectDraft) error {
	if err := Required("title", d.Title); err != nil {
		return err
	}
	if err := Required("description", d.Description); err != nil {
		return err
	}
	if err := PositiveAmount("capacity", d.Capacity); err != nil {
		return err
	}
	if err := PositiveAmount("min_investment", d.MinInvestment); err != nil {
		return err
	}
	if d.MinInvestment.GreaterThan(d.Capacity) {
		return apperr.ErrInvalidField.With("min_investment cannot exceed capacity")
	}
	if d.DurationDays <= 0 {
		return apperr.ErrInvalidField.With("duration must be a positive number of days")
	}
	rt, err := ReturnType(d.ReturnType)
	if err != nil {
		return err
	}
	if rt == domain.ReturnFixed {
		if d.FixedReturn == nil {
			return apperr.ErrInvalidField.With("fixed_return is required for fixed return projects")
		}
		if err := Percentage("fixed_return", *d.FixedReturn); err != nil {
			return err
		}
	}
	if d.WithdrawalFee == nil {
		return apperr.ErrInvalidField.With("withdrawal_fee is required")
	}
	return Percentage("withdrawal_fee", *d.WithdrawalFee)
}
