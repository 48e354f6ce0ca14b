package ledger_test

import (
	"context"
	"errors"
	"testing"

	"invest_platform/internal/apperr"
	"invest_platform/internal/domain"
	"invest_platform/internal/ledger"
	"invest_platform/internal/ledger/ledgertest"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTransaction_ReadsOwnWrites(t *testing.T) {
	store, gdb := ledgertest.NewStore(t)
	user := ledgertest.SeedUser(t, gdb, "500")
	project := ledgertest.SeedProject(t, gdb, nil)

	err := store.RunInTransaction(context.Background(), func(tx *ledger.Tx) error {
		u, err := tx.GetUser(user.ID)
		if err != nil {
			return err
		}
		u.Wallet = u.Wallet.Sub(decimal.NewFromInt(200))
		if err := tx.UpdateWallet(u); err != nil {
			return err
		}
		inv := &domain.Investment{ID: uuid.NewString(), UserID: user.ID, ProjectID: project.ID, Amount: decimal.NewFromInt(200)}
		if err := tx.CreateInvestment(inv); err != nil {
			return err
		}

		again, err := tx.GetUser(user.ID)
		require.NoError(t, err)
		assert.True(t, again.Wallet.Equal(decimal.NewFromInt(300)))
		got, err := tx.GetInvestment(inv.ID)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(200)))
		return nil
	})
	require.NoError(t, err)
}

func TestRunInTransaction_RollsBackOnError(t *testing.T) {
	store, gdb := ledgertest.NewStore(t)
	user := ledgertest.SeedUser(t, gdb, "500")

	err := store.RunInTransaction(context.Background(), func(tx *ledger.Tx) error {
		u, err := tx.GetUser(user.ID)
		if err != nil {
			return err
		}
		u.Wallet = decimal.Zero
		if err := tx.UpdateWallet(u); err != nil {
			return err
		}
		return apperr.ErrCapacityExceeded
	})

	assert.True(t, errors.Is(err, apperr.ErrCapacityExceeded))
	assert.True(t, ledgertest.ReloadUser(t, gdb, user.ID).Wallet.Equal(decimal.NewFromInt(500)))
}

func TestFindProject_NotFound(t *testing.T) {
	store, _ := ledgertest.NewStore(t)

	_, err := store.FindProject(context.Background(), uuid.NewString())

	assert.True(t, errors.Is(err, apperr.ErrProjectNotFound))
}

func TestCreateProject_DuplicateTitle(t *testing.T) {
	store, gdb := ledgertest.NewStore(t)
	existing := ledgertest.SeedProject(t, gdb, nil)

	dup := *existing
	dup.ID = uuid.NewString()
	err := store.CreateProject(context.Background(), &dup)

	assert.True(t, errors.Is(err, apperr.ErrDuplicate))
}

func TestListHistory_FiltersAndPages(t *testing.T) {
	store, gdb := ledgertest.NewStore(t)
	user := ledgertest.SeedUser(t, gdb, "0")
	other := ledgertest.SeedUser(t, gdb, "0")
	for i := 0; i < 3; i++ {
		require.NoError(t, gdb.Create(&domain.InvestmentHistory{
			ID: uuid.NewString(), UserID: user.ID, Action: domain.ActionAddFunds, Amount: decimal.NewFromInt(10),
		}).Error)
	}
	require.NoError(t, gdb.Create(&domain.InvestmentHistory{
		ID: uuid.NewString(), UserID: other.ID, Action: domain.ActionAddFunds, Amount: decimal.NewFromInt(10),
	}).Error)

	entries, total, err := store.ListHistory(context.Background(), ledger.HistoryFilter{UserID: user.ID, Limit: 2})

	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, user.ID, e.UserID)
	}
}
