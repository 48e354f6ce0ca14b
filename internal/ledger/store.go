// Package ledger is the persistence boundary of the engine: point reads and
// writes for users, projects, investments and history, plus an all-or-nothing
// transaction primitive.
package ledger

import (
	"context" // Request scoped cancellation
	"errors"  // Driver error inspection
	"strings" // SQLite error text

	"invest_platform/internal/apperr" // Error classification

	"github.com/go-sql-driver/mysql" // MySQL error numbers
	"gorm.io/gorm"                   // GORM ORM library
)

// MySQL server error numbers that mean the transaction lost a lock race.
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
	mysqlDuplicateEntry  = 1062
)

// Store wraps the process-wide gorm handle.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// RunInTransaction runs fn inside one database transaction. Writes made by fn
// are visible to its later reads and are committed only if fn returns nil.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&Tx{db: gtx})
	})
	return classify(err)
}

// classify turns driver errors into the engine's taxonomy. Errors that are
// already classified pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return apperr.ErrConcurrency.Wrap(err)
		case mysqlDuplicateEntry:
			return apperr.ErrDuplicate.Wrap(err)
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperr.ErrDuplicate.Wrap(err)
	}
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "database is locked") {
		return apperr.ErrConcurrency.Wrap(err)
	}
	return apperr.ErrStore.Wrap(err)
}

// notFound maps a missing row to the given sentinel and leaves other errors alone.
func notFound(err error, sentinel *apperr.Error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
