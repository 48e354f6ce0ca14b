// Package investment moves money between wallets and projects. Every
// operation runs as one ledger transaction under per-project and per-user
// locks, and appends exactly one history entry when it succeeds.
package investment

import (
	"context" // Request scoped cancellation
	"errors"  // Lock timeout detection
	"time"    // Timeouts and backoff

	"invest_platform/internal/apperr"  // Error classification
	"invest_platform/internal/domain"  // Importing domain models
	"invest_platform/internal/ledger"  // Transactional store
	"invest_platform/internal/lock"    // Keyed locks
	"invest_platform/internal/metrics" // Outcome labels
	"invest_platform/internal/project" // Project lifecycle
	"invest_platform/internal/returns" // Return calculator

	"github.com/shopspring/decimal" // Withdrawal fraction
	"github.com/sirupsen/logrus"    // Logging library
)

// Action names used in logs and metrics.
const (
	ActionCreate       = "create"
	ActionWithdraw     = "withdraw"
	ActionDeposit      = "deposit"
	ActionCloseExpired = "close_expired"
)

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the caller may act on other users' wallets.
func (p Principal) IsAdmin() bool { return domain.IsAdmin(p.Role) }

// CacheInvalidator drops cached reads after a commit.
type CacheInvalidator interface {
	InvalidateProjects(ctx context.Context, ids ...string)
	InvalidateUser(ctx context.Context, userID string)
}

// Recorder receives operation metrics.
type Recorder interface {
	ObserveOperation(action, outcome string, d time.Duration)
	ObserveRetry(action string)
	ProjectsClosed(n int)
}

// Deps are the collaborators of an Engine. Cache and Metrics are optional.
type Deps struct {
	Store    *ledger.Store
	Projects *project.Lifecycle
	Returns  *returns.Calculator
	Locker   lock.Locker
	Cache    CacheInvalidator
	Metrics  Recorder
}

// Options tune retries and policy.
type Options struct {
	LockTimeout  time.Duration // longest wait for the keyed locks of one attempt
	MaxRetries   int           // extra attempts after a concurrency conflict
	RetryBackoff time.Duration // base delay between attempts, grows linearly
	// WithdrawMaxFraction caps one withdrawal at this share of the remaining
	// principal. Values outside (0, 1] mean 1.
	WithdrawMaxFraction decimal.Decimal
}

// Engine runs the fund movements between wallets and projects.
type Engine struct {
	store    *ledger.Store
	projects *project.Lifecycle
	returns  *returns.Calculator
	locker   lock.Locker
	cache    CacheInvalidator
	metrics  Recorder
	opts     Options
}

// NewEngine returns an Engine, filling unset options with defaults and
// optional collaborators with no-ops.
func NewEngine(deps Deps, opts Options) *Engine {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 5 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 20 * time.Millisecond
	}
	if !opts.WithdrawMaxFraction.IsPositive() || opts.WithdrawMaxFraction.GreaterThan(decimal.NewFromInt(1)) {
		opts.WithdrawMaxFraction = decimal.NewFromInt(1)
	}
	e := &Engine{
		store:    deps.Store,
		projects: deps.Projects,
		returns:  deps.Returns,
		locker:   deps.Locker,
		cache:    deps.Cache,
		metrics:  deps.Metrics,
		opts:     opts,
	}
	if e.cache == nil {
		e.cache = nopCache{}
	}
	if e.metrics == nil {
		e.metrics = nopRecorder{}
	}
	return e
}

// execute runs fn in a transaction while holding keys, retrying when the
// attempt lost a race.
func (e *Engine) execute(ctx context.Context, action string, keys []string, fn func(tx *ledger.Tx) error) error {
	start := time.Now()
	var err error
	for attempt := 0; ; attempt++ {
		err = e.attempt(ctx, keys, fn)
		if !apperr.Retryable(err) || attempt >= e.opts.MaxRetries || ctx.Err() != nil {
			break
		}
		e.metrics.ObserveRetry(action)
		logrus.WithFields(logrus.Fields{
			"action":  action,
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Debug("Retrying after concurrency conflict")

		if err = e.backoff(ctx, attempt); err != nil {
			break
		}
	}
	e.metrics.ObserveOperation(action, outcome(err), time.Since(start))
	return err
}

// backoff waits before retry attempt+1, returning a Concurrency error if ctx
// ends first.
func (e *Engine) backoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(time.Duration(attempt+1) * e.opts.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return apperr.ErrConcurrency.Wrap(ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (e *Engine) attempt(ctx context.Context, keys []string, fn func(tx *ledger.Tx) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, e.opts.LockTimeout)
	defer cancel()
	unlock, err := e.locker.Acquire(lockCtx, keys...) // Keys are taken in sorted order
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return apperr.ErrConcurrency.Wrap(err)
		}
		return apperr.ErrStore.Wrap(err)
	}
	defer unlock()                           // Released after commit or rollback
	return e.store.RunInTransaction(ctx, fn) // All or nothing
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case apperr.KindOf(err) == apperr.KindConcurrency || apperr.KindOf(err) == apperr.KindStore:
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeRejected
	}
}

// logFailure logs business rejections at Warn and faults at Error.
func logFailure(fields logrus.Fields, err error, msg string) {
	entry := logrus.WithFields(fields).WithField("error", err.Error())
	switch apperr.KindOf(err) {
	case apperr.KindConcurrency, apperr.KindStore:
		entry.Error(msg)
	default:
		entry.Warn(msg)
	}
}

type nopCache struct{}

func (nopCache) InvalidateProjects(context.Context, ...string) {}
func (nopCache) InvalidateUser(context.Context, string)        {}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}
func (nopRecorder) ObserveRetry(string)                            {}
func (nopRecorder) ProjectsClosed(int)                             {}
