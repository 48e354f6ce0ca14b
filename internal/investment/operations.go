package investment

import (
	"context" // Request scoped cancellation
	"fmt"     // Error wrapping
	"time"    // Expiry cutoff

	"invest_platform/internal/apperr"    // Error classification
	"invest_platform/internal/domain"    // Importing domain models
	"invest_platform/internal/history"   // Audit trail
	"invest_platform/internal/ledger"    // Transactional store
	"invest_platform/internal/lock"      // Keyed locks
	"invest_platform/internal/returns"   // Return calculator
	"invest_platform/internal/validator" // Input checks
	"invest_platform/internal/wallet"    // Wallet balance changes

	"github.com/google/uuid"        // Investment identifiers
	"github.com/shopspring/decimal" // Exact decimal arithmetic
	"github.com/sirupsen/logrus"    // Logging library
)

// CreateResult is returned by a successful Create.
type CreateResult struct {
	Investment    *domain.Investment        `json:"investment"`
	Project       *domain.Project           `json:"project"`
	WalletBalance decimal.Decimal           `json:"wallet_balance"`
	History       *domain.InvestmentHistory `json:"history"`
}

// Create moves amount from the user's wallet into the project and opens a
// new investment. Non-admins may only invest for themselves.
func (e *Engine) Create(ctx context.Context, p Principal, projectID, userID string, amount decimal.Decimal) (*CreateResult, error) {
	fields := logrus.Fields{"action": ActionCreate, "project_id": projectID, "user_id": userID, "amount": amount.String()}
	if err := validateCreate(p, projectID, userID, amount); err != nil {
		logFailure(fields, err, "Investment rejected")
		return nil, err
	}

	var res *CreateResult
	keys := []string{lock.ProjectKey(projectID), lock.UserKey(userID)}
	err := e.execute(ctx, ActionCreate, keys, func(tx *ledger.Tx) error {
		if _, err := tx.GetProject(projectID); err != nil {
			return err
		}
		if _, err := tx.GetUser(userID); err != nil {
			return err
		}
		proj, err := e.projects.ReserveCapacity(tx, projectID, amount) // Status, minimum and capacity checks
		if err != nil {
			return err
		}
		user, err := wallet.Debit(tx, userID, amount) // Fails when the wallet is short
		if err != nil {
			return err
		}
		inv := &domain.Investment{
			ID:        uuid.NewString(),
			UserID:    userID,
			ProjectID: projectID,
			Amount:    amount,
		}
		if err := tx.CreateInvestment(inv); err != nil {
			return fmt.Errorf("create investment: %w", err)
		}
		entry, err := history.Record(tx, history.Entry{
			UserID:        userID,
			ProjectID:     projectID,
			Action:        domain.ActionInvestment,
			Amount:        amount,
			ProfitLoss:    decimal.Zero,
			Fee:           decimal.Zero,
			WalletBalance: user.Wallet,
			ReturnType:    proj.ReturnType,
		})
		if err != nil {
			return err
		}
		res = &CreateResult{Investment: inv, Project: proj, WalletBalance: user.Wallet, History: entry}
		return nil
	})
	if err != nil {
		logFailure(fields, err, "Investment failed")
		return nil, err
	}

	e.cache.InvalidateProjects(ctx, projectID) // Raised amount changed
	e.cache.InvalidateUser(ctx, userID)        // New history entry
	fields["investment_id"] = res.Investment.ID
	fields["wallet_balance"] = res.WalletBalance.String()
	fields["project_status"] = res.Project.Status
	logrus.WithFields(fields).Info("Investment created")
	return res, nil
}

func validateCreate(p Principal, projectID, userID string, amount decimal.Decimal) error {
	if err := validator.ID("projectId", projectID); err != nil {
		return err
	}
	if err := validator.ID("userId", userID); err != nil {
		return err
	}
	if err := validator.Money("amount", amount); err != nil {
		return err
	}
	if !p.IsAdmin() && p.UserID != userID {
		return apperr.ErrForbidden.With("you can only invest from your own wallet")
	}
	return nil
}

// WithdrawResult is returned by a successful Withdraw.
type WithdrawResult struct {
	InvestmentID  string                    `json:"investment_id"`
	ProjectID     string                    `json:"project_id"`
	Withdrawn     decimal.Decimal           `json:"withdrawn"`
	Remaining     decimal.Decimal           `json:"remaining"`
	Closed        bool                      `json:"closed"` // investment fully withdrawn and removed
	Return        returns.Result            `json:"return"`
	WalletBalance decimal.Decimal           `json:"wallet_balance"`
	History       *domain.InvestmentHistory `json:"history"`
}

// Withdraw takes amount out of an investment owned by the caller, pays the
// net return into the wallet and gives the capacity back to the project.
func (e *Engine) Withdraw(ctx context.Context, p Principal, investmentID string, amount decimal.Decimal) (*WithdrawResult, error) {
	fields := logrus.Fields{"action": ActionWithdraw, "investment_id": investmentID, "user_id": p.UserID, "amount": amount.String()}
	if err := validator.ID("investmentId", investmentID); err != nil {
		logFailure(fields, err, "Withdrawal rejected")
		return nil, err
	}
	if err := validator.Money("amount", amount); err != nil {
		logFailure(fields, err, "Withdrawal rejected")
		return nil, err
	}

	// The owner and project never change, so an unlocked read is enough to
	// pick the lock keys. Everything else is re-read inside the transaction.
	current, err := e.store.FindInvestment(ctx, investmentID)
	if err != nil {
		logFailure(fields, err, "Withdrawal rejected")
		return nil, err
	}
	if current.UserID != p.UserID {
		err := apperr.ErrForbidden.With("you can only withdraw from your own investments")
		logFailure(fields, err, "Withdrawal rejected")
		return nil, err
	}
	fields["project_id"] = current.ProjectID

	var res *WithdrawResult
	keys := []string{lock.ProjectKey(current.ProjectID), lock.UserKey(current.UserID)}
	err = e.execute(ctx, ActionWithdraw, keys, func(tx *ledger.Tx) error {
		inv, err := tx.GetInvestment(investmentID)
		if err != nil {
			return err
		}
		if inv.UserID != p.UserID {
			return apperr.ErrForbidden
		}
		ceiling := inv.Amount.Mul(e.opts.WithdrawMaxFraction).Truncate(validator.MoneyScale)
		if amount.GreaterThan(ceiling) {
			return apperr.ErrInvalidWithdrawAmount.With(fmt.Sprintf("at most %s can be withdrawn from this investment", ceiling.String()))
		}

		proj, err := tx.GetProject(inv.ProjectID)
		if err != nil {
			return err
		}
		ret, err := e.returns.Compute(proj, amount) // Fee and profit or loss on the withdrawn principal
		if err != nil {
			return err
		}
		if _, err := e.projects.ReleaseCapacity(tx, inv.ProjectID, amount); err != nil {
			return err
		}
		user, err := wallet.Apply(tx, inv.UserID, ret.Net) // Net may be negative after a loss
		if err != nil {
			return err
		}

		remaining := inv.Amount.Sub(amount)
		if remaining.IsPositive() {
			inv.Amount = remaining
			if err := tx.UpdateInvestmentAmount(inv); err != nil {
				return fmt.Errorf("reduce investment: %w", err)
			}
		} else {
			remaining = decimal.Zero
			if err := tx.DeleteInvestment(inv); err != nil { // Fully withdrawn
				return fmt.Errorf("delete investment: %w", err)
			}
		}

		entry, err := history.Record(tx, history.Entry{
			UserID:        inv.UserID,
			ProjectID:     inv.ProjectID,
			Action:        domain.ActionWithdrawal,
			Amount:        amount,
			ProfitLoss:    ret.ProfitLoss,
			Fee:           ret.Fee,
			WalletBalance: user.Wallet,
			ReturnType:    proj.ReturnType,
		})
		if err != nil {
			return err
		}
		res = &WithdrawResult{
			InvestmentID:  investmentID,
			ProjectID:     inv.ProjectID,
			Withdrawn:     amount,
			Remaining:     remaining,
			Closed:        remaining.IsZero(),
			Return:        ret,
			WalletBalance: user.Wallet,
			History:       entry,
		}
		return nil
	})
	if err != nil {
		logFailure(fields, err, "Withdrawal failed")
		return nil, err
	}

	e.cache.InvalidateProjects(ctx, res.ProjectID)
	e.cache.InvalidateUser(ctx, current.UserID)
	fields["net_amount"] = res.Return.Net.String()
	fields["fee"] = res.Return.Fee.String()
	fields["profit_loss"] = res.Return.ProfitLoss.String()
	fields["wallet_balance"] = res.WalletBalance.String()
	logrus.WithFields(fields).Info("Withdrawal completed")
	return res, nil
}

// DepositResult is returned by a successful Deposit.
type DepositResult struct {
	UserID        string                    `json:"user_id"`
	WalletBalance decimal.Decimal           `json:"wallet_balance"`
	History       *domain.InvestmentHistory `json:"history"`
}

// Deposit tops up a wallet. Non-admins may only fund their own wallet.
func (e *Engine) Deposit(ctx context.Context, p Principal, userID string, amount decimal.Decimal) (*DepositResult, error) {
	fields := logrus.Fields{"action": ActionDeposit, "user_id": userID, "amount": amount.String()}
	if err := validator.ID("userId", userID); err != nil {
		logFailure(fields, err, "Deposit rejected")
		return nil, err
	}
	if err := validator.Money("amount", amount); err != nil {
		logFailure(fields, err, "Deposit rejected")
		return nil, err
	}
	if !p.IsAdmin() && p.UserID != userID {
		err := apperr.ErrForbidden.With("you can only fund your own wallet")
		logFailure(fields, err, "Deposit rejected")
		return nil, err
	}

	var res *DepositResult
	err := e.execute(ctx, ActionDeposit, []string{lock.UserKey(userID)}, func(tx *ledger.Tx) error {
		user, err := wallet.Credit(tx, userID, amount)
		if err != nil {
			return err
		}
		entry, err := history.Record(tx, history.Entry{
			UserID:        userID,
			Action:        domain.ActionAddFunds,
			Amount:        amount,
			ProfitLoss:    decimal.Zero,
			Fee:           decimal.Zero,
			WalletBalance: user.Wallet,
		})
		if err != nil {
			return err
		}
		res = &DepositResult{UserID: userID, WalletBalance: user.Wallet, History: entry}
		return nil
	})
	if err != nil {
		logFailure(fields, err, "Deposit failed")
		return nil, err
	}

	e.cache.InvalidateUser(ctx, userID)
	fields["wallet_balance"] = res.WalletBalance.String()
	logrus.WithFields(fields).Info("Deposit completed")
	return res, nil
}

// CloseExpiredProjects closes every open project whose end date is before
// now. It is safe to call repeatedly.
func (e *Engine) CloseExpiredProjects(ctx context.Context, now time.Time) ([]string, error) {
	start := time.Now()
	var (
		ids []string
		err error
	)
	for attempt := 0; ; attempt++ {
		ids, err = e.projects.CloseExpired(ctx, now)
		if !apperr.Retryable(err) || attempt >= e.opts.MaxRetries || ctx.Err() != nil {
			break
		}
		e.metrics.ObserveRetry(ActionCloseExpired)
		if err = e.backoff(ctx, attempt); err != nil {
			break
		}
	}
	e.metrics.ObserveOperation(ActionCloseExpired, outcome(err), time.Since(start))
	if err != nil {
		logFailure(logrus.Fields{"action": ActionCloseExpired}, err, "Closing expired projects failed")
		return nil, err
	}

	e.metrics.ProjectsClosed(len(ids))
	if len(ids) > 0 {
		e.cache.InvalidateProjects(ctx, ids...)
		logrus.WithFields(logrus.Fields{
			"action": ActionCloseExpired,
			"count":  len(ids),
			"now":    now.UTC().Format(time.RFC3339),
		}).Info("Closed expired projects")
	}
	return ids, nil
}
