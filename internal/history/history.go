// Package history appends and reads the investment audit trail.
package history

import (
	"context" // Request scoped cancellation
	"fmt"     // Error wrapping
	"time"    // Creation time

	"invest_platform/internal/apperr" // Error classification
	"invest_platform/internal/domain" // Importing domain models
	"invest_platform/internal/ledger" // Transactional store

	"github.com/google/uuid"        // Entry identifiers
	"github.com/shopspring/decimal" // Exact decimal arithmetic
)

// Paging bounds for List.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Entry describes one fund movement. ProjectID is empty for wallet top-ups.
type Entry struct {
	UserID        string
	ProjectID     string
	Action        domain.HistoryAction
	Amount        decimal.Decimal
	ProfitLoss    decimal.Decimal
	Fee           decimal.Decimal
	WalletBalance decimal.Decimal
	ReturnType    domain.ReturnType
}

// Record appends entry inside tx. Rows are never updated afterwards.
func Record(tx *ledger.Tx, entry Entry) (*domain.InvestmentHistory, error) {
	switch entry.Action {
	case domain.ActionAddFunds, domain.ActionInvestment, domain.ActionWithdrawal:
	default:
		return nil, apperr.ErrInvalidField.With("unknown history action " + string(entry.Action))
	}

	row := &domain.InvestmentHistory{
		ID:            uuid.NewString(),
		UserID:        entry.UserID,
		Action:        entry.Action,
		Amount:        entry.Amount,
		ProfitLoss:    entry.ProfitLoss,
		Fee:           entry.Fee,
		WalletBalance: entry.WalletBalance,
		ReturnType:    entry.ReturnType,
		CreatedAt:     time.Now().UTC(),
	}
	if entry.ProjectID != "" {
		projectID := entry.ProjectID
		row.ProjectID = &projectID
	}
	if err := tx.CreateHistory(row); err != nil {
		return nil, fmt.Errorf("record %s history: %w", entry.Action, err)
	}
	return row, nil
}

// Query selects history entries. Page is 1-based.
type Query struct {
	UserID    string
	ProjectID string
	Action    string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// Page is one page of history entries.
type Page struct {
	Entries    []domain.InvestmentHistory `json:"entries"`
	Page       int                        `json:"page"`
	PageSize   int                        `json:"page_size"`
	Total      int64                      `json:"total"`
	TotalPages int                        `json:"total_pages"`
}

// List returns the newest-first page of entries matching q.
func List(ctx context.Context, store *ledger.Store, q Query) (*Page, error) {
	if q.Action != "" {
		switch domain.HistoryAction(q.Action) {
		case domain.ActionAddFunds, domain.ActionInvestment, domain.ActionWithdrawal:
		default:
			return nil, apperr.ErrInvalidField.With("action must be one of addFunds, investment, withdrawal")
		}
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 || q.PageSize > MaxPageSize {
		q.PageSize = DefaultPageSize
	}

	entries, total, err := store.ListHistory(ctx, ledger.HistoryFilter{
		UserID:    q.UserID,
		ProjectID: q.ProjectID,
		Action:    q.Action,
		From:      q.From,
		To:        q.To,
		Offset:    (q.Page - 1) * q.PageSize,
		Limit:     q.PageSize,
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.InvestmentHistory{}
	}
	return &Page{
		Entries:    entries,
		Page:       q.Page,
		PageSize:   q.PageSize,
		Total:      total,
		TotalPages: int((total + int64(q.PageSize) - 1) / int64(q.PageSize)),
	}, nil
}
