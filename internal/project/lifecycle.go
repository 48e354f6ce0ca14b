// Package project owns project state transitions and capacity accounting.
package project

import (
	"context" // Request scoped cancellation
	"fmt"     // Error wrapping
	"strings" // Title trimming
	"time"    // Timestamps and durations

	"invest_platform/internal/apperr"    // Error classification
	"invest_platform/internal/domain"    // Importing domain models
	"invest_platform/internal/ledger"    // Transactional store
	"invest_platform/internal/lock"      // Keyed locks
	"invest_platform/internal/validator" // Input checks

	"github.com/google/uuid"        // Project identifiers
	"github.com/shopspring/decimal" // Exact decimal arithmetic
	"github.com/sirupsen/logrus"    // Logging library
)

// Lifecycle moves projects between open, closed and completed and keeps
// 0 <= raised <= capacity.
type Lifecycle struct {
	store       *ledger.Store
	locker      lock.Locker
	lockTimeout time.Duration
	now         func() time.Time
}

// Option customizes a Lifecycle.
type Option func(*Lifecycle)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) { l.now = now }
}

// NewLifecycle returns a Lifecycle. Admin updates take the project's lock
// from locker for at most lockTimeout.
func NewLifecycle(store *ledger.Store, locker lock.Locker, lockTimeout time.Duration, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		store:       store,
		locker:      locker,
		lockTimeout: lockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ReserveCapacity adds amount to the project's raised amount inside tx.
// The project closes in the same write once it is full.
func (l *Lifecycle) ReserveCapacity(tx *ledger.Tx, projectID string, amount decimal.Decimal) (*domain.Project, error) {
	p, err := tx.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.ProjectOpen || !p.EndDate.After(l.now()) {
		return nil, apperr.ErrProjectNotOpen
	}
	if amount.LessThan(p.MinInvestment) {
		return nil, apperr.ErrBelowMinimum.With(fmt.Sprintf("minimum investment is %s", p.MinInvestment.String()))
	}
	if p.Remaining().LessThan(amount) {
		return nil, apperr.ErrCapacityExceeded.With(fmt.Sprintf("only %s of capacity remains", p.Remaining().String()))
	}

	p.RaisedAmount = p.RaisedAmount.Add(amount) // Take the capacity
	if p.IsFull() {
		p.Status = domain.ProjectClosed // Full projects stop accepting investments
	}
	if err := tx.SaveProjectState(p); err != nil {
		return nil, fmt.Errorf("reserve capacity on %s: %w", projectID, err)
	}
	return p, nil
}

// ReleaseCapacity gives amount back to the project inside tx. A closed
// project stays closed.
func (l *Lifecycle) ReleaseCapacity(tx *ledger.Tx, projectID string, amount decimal.Decimal) (*domain.Project, error) {
	p, err := tx.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	p.RaisedAmount = p.RaisedAmount.Sub(amount) // Give the capacity back
	if p.RaisedAmount.IsNegative() {
		logrus.WithFields(logrus.Fields{
			"project_id": projectID,
			"amount":     amount.String(),
		}).Warn("Released more than the raised amount, flooring at zero")
		p.RaisedAmount = decimal.Zero
	}
	if err := tx.SaveProjectState(p); err != nil {
		return nil, fmt.Errorf("release capacity on %s: %w", projectID, err)
	}
	return p, nil
}

// CloseExpired closes every open project whose end date is before now and
// returns their ids. Running it again without new expirations closes nothing.
func (l *Lifecycle) CloseExpired(ctx context.Context, now time.Time) ([]string, error) {
	var closed []string
	err := l.store.RunInTransaction(ctx, func(tx *ledger.Tx) error {
		ids, err := tx.LockExpiredOpenProjects(now.UTC()) // Row locks serialize with concurrent investments
		if err != nil {
			return fmt.Errorf("select expired projects: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if _, err := tx.CloseProjects(ids); err != nil {
			return fmt.Errorf("close expired projects: %w", err)
		}
		closed = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// Create validates draft and stores a new open project.
func (l *Lifecycle) Create(ctx context.Context, draft domain.ProjectDraft) (*domain.Project, error) {
	if err := validator.ProjectDraft(draft); err != nil {
		return nil, err
	}
	now := l.now()
	p := &domain.Project{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(draft.Title),
		Description:   strings.TrimSpace(draft.Description),
		Capacity:      draft.Capacity,
		RaisedAmount:  decimal.Zero,
		MinInvestment: draft.MinInvestment,
		DurationDays:  draft.DurationDays,
		Status:        domain.ProjectOpen,
		ReturnType:    domain.ReturnType(draft.ReturnType),
		WithdrawalFee: *draft.WithdrawalFee,
		EndDate:       now.AddDate(0, 0, draft.DurationDays), // Duration counts from creation
	}
	if p.ReturnType == domain.ReturnFixed {
		fixed := *draft.FixedReturn
		p.FixedReturn = &fixed
	}
	if err := l.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update applies patch to a project. Capacity may not drop below the raised
// amount, and a project that is full after the patch is closed.
func (l *Lifecycle) Update(ctx context.Context, id string, patch domain.ProjectPatch) (*domain.Project, error) {
	if err := validator.ID("projectId", id); err != nil {
		return nil, err
	}

	var updated *domain.Project
	err := l.withProjectLock(ctx, id, func(tx *ledger.Tx) error {
		p, err := tx.GetProject(id)
		if err != nil {
			return err
		}
		if err := applyPatch(p, patch); err != nil {
			return err
		}
		if err := tx.SaveProject(p); err != nil {
			return fmt.Errorf("update project %s: %w", id, err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft-deletes a project. A project still holding invested capital
// cannot be deleted, its investors must withdraw first.
func (l *Lifecycle) Delete(ctx context.Context, id string) (*domain.Project, error) {
	if err := validator.ID("projectId", id); err != nil {
		return nil, err
	}

	var deleted *domain.Project
	err := l.withProjectLock(ctx, id, func(tx *ledger.Tx) error {
		p, err := tx.GetProject(id)
		if err != nil {
			return err
		}
		if p.RaisedAmount.IsPositive() {
			return apperr.ErrProjectHasInvestments.With(fmt.Sprintf("%s is still invested in this project", p.RaisedAmount.String()))
		}
		if err := tx.DeleteProject(p); err != nil {
			return fmt.Errorf("delete project %s: %w", id, err)
		}
		deleted = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// withProjectLock runs fn in a transaction while holding the project's key.
func (l *Lifecycle) withProjectLock(ctx context.Context, id string, fn func(tx *ledger.Tx) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, l.lockTimeout)
	defer cancel()
	unlock, err := l.locker.Acquire(lockCtx, lock.ProjectKey(id))
	if err != nil {
		return apperr.ErrConcurrency.Wrap(err)
	}
	defer unlock()
	return l.store.RunInTransaction(ctx, fn)
}

func applyPatch(p *domain.Project, patch domain.ProjectPatch) error {
	if patch.Title != nil {
		if err := validator.Required("title", *patch.Title); err != nil {
			return err
		}
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Capacity != nil {
		if err := validator.PositiveAmount("capacity", *patch.Capacity); err != nil {
			return err
		}
		if patch.Capacity.LessThan(p.RaisedAmount) {
			return apperr.ErrInvalidField.With("capacity cannot be lower than the raised amount")
		}
		p.Capacity = *patch.Capacity
	}
	if patch.MinInvestment != nil {
		if err := validator.PositiveAmount("min_investment", *patch.MinInvestment); err != nil {
			return err
		}
		p.MinInvestment = *patch.MinInvestment
	}
	if p.MinInvestment.GreaterThan(p.Capacity) {
		return apperr.ErrInvalidField.With("min_investment cannot exceed capacity")
	}
	if patch.WithdrawalFee != nil {
		if err := validator.Percentage("withdrawal_fee", *patch.WithdrawalFee); err != nil {
			return err
		}
		p.WithdrawalFee = *patch.WithdrawalFee
	}
	if patch.DurationDays != nil {
		if *patch.DurationDays <= 0 {
			return apperr.ErrInvalidField.With("duration must be a positive number of days")
		}
		p.DurationDays = *patch.DurationDays
		p.EndDate = p.CreatedAt.UTC().AddDate(0, 0, p.DurationDays)
	}
	if patch.ReturnType != nil {
		rt, err := validator.ReturnType(*patch.ReturnType)
		if err != nil {
			return err
		}
		switch {
		case rt == domain.ReturnVariable:
			p.FixedReturn = nil // Variable projects carry no fixed rate
		case p.ReturnType != domain.ReturnFixed && patch.FixedReturn == nil:
			return apperr.ErrInvalidField.With("fixed_return is required when switching to a fixed return")
		}
		p.ReturnType = rt
	}
	if patch.FixedReturn != nil {
		if p.ReturnType != domain.ReturnFixed {
			return apperr.ErrInvalidField.With("fixed_return only applies to fixed return projects")
		}
		if err := validator.Percentage("fixed_return", *patch.FixedReturn); err != nil {
			return err
		}
		fixed := *patch.FixedReturn
		p.FixedReturn = &fixed
	}
	if patch.Status != nil {
		st, err := validator.Status(*patch.Status)
		if err != nil {
			return err
		}
		p.Status = st
	}
	if p.Status == domain.ProjectOpen && p.IsFull() {
		p.Status = domain.ProjectClosed
	}
	return nil
}

// Get reads one project.
func (l *Lifecycle) Get(ctx context.Context, id string) (*domain.Project, error) {
	if err := validator.ID("projectId", id); err != nil {
		return nil, err
	}
	return l.store.FindProject(ctx, id)
}

// List returns every project, or only those with the given status.
func (l *Lifecycle) List(ctx context.Context, status string) ([]domain.Project, error) {
	var st domain.ProjectStatus
	if status != "" {
		var err error
		if st, err = validator.Status(status); err != nil {
			return nil, err
		}
	}
	return l.store.ListProjects(ctx, st)
}
