// Package wallet mutates user balances. Every function runs inside a ledger
// transaction and re-reads the balance under a row lock before writing.
package wallet

import (
	"fmt" // Error wrapping

	"invest_platform/internal/apperr" // Error classification
	"invest_platform/internal/domain" // Importing domain models
	"invest_platform/internal/ledger" // Transactional store

	"github.com/shopspring/decimal" // Exact decimal arithmetic
)

// Credit adds a strictly positive amount to the user's balance.
func Credit(tx *ledger.Tx, userID string, amount decimal.Decimal) (*domain.User, error) {
	if !amount.IsPositive() {
		return nil, apperr.ErrInvalidAmount // Zero and negative credits are rejected
	}
	return Apply(tx, userID, amount)
}

// Debit removes a strictly positive amount, failing when the balance is short.
func Debit(tx *ledger.Tx, userID string, amount decimal.Decimal) (*domain.User, error) {
	if !amount.IsPositive() {
		return nil, apperr.ErrInvalidAmount
	}
	return Apply(tx, userID, amount.Neg()) // Debit is a negative delta
}

// Apply moves the balance by a signed delta. A realized loss may make the
// delta negative; the balance itself never drops below zero.
func Apply(tx *ledger.Tx, userID string, delta decimal.Decimal) (*domain.User, error) {
	user, err := tx.GetUser(userID) // Locked re-read of the current balance
	if err != nil {
		return nil, err
	}
	next := user.Wallet.Add(delta) // Balance after the movement
	if next.IsNegative() {
		return nil, apperr.ErrInsufficientFunds // Rolls the caller's transaction back
	}
	user.Wallet = next
	if err := tx.UpdateWallet(user); err != nil {
		return nil, fmt.Errorf("update wallet of %s: %w", userID, err)
	}
	return user, nil
}
