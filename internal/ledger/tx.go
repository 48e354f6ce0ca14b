package ledger

import (
	"time" // Expiry comparison

	"invest_platform/internal/apperr" // Error classification
	"invest_platform/internal/domain" // Importing domain models

	"gorm.io/gorm"        // GORM ORM library
	"gorm.io/gorm/clause" // Row locking clauses
)

// Tx is the view of the store available inside RunInTransaction. Every Get
// takes a row lock so that concurrent writers re-read current state.
type Tx struct {
	db *gorm.DB
}

func (t *Tx) forUpdate() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// GetUser loads and locks a user.
func (t *Tx) GetUser(id string) (*domain.User, error) {
	var user domain.User
	if err := t.forUpdate().Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err, apperr.ErrUserNotFound)
	}
	return &user, nil
}

// UpdateWallet persists the user's wallet balance.
func (t *Tx) UpdateWallet(user *domain.User) error {
	return t.db.Model(user).Update("wallet", user.Wallet).Error
}

// GetProject loads and locks a project. Deleted projects are not found.
func (t *Tx) GetProject(id string) (*domain.Project, error) {
	var project domain.Project
	if err := t.forUpdate().Where("id = ?", id).First(&project).Error; err != nil {
		return nil, notFound(err, apperr.ErrProjectNotFound)
	}
	return &project, nil
}

// SaveProjectState persists the mutable accounting fields of a project.
func (t *Tx) SaveProjectState(project *domain.Project) error {
	return t.db.Model(project).Updates(map[string]any{
		"raised_amount": project.RaisedAmount,
		"status":        project.Status,
	}).Error
}

// SaveProject persists every column of a project.
func (t *Tx) SaveProject(project *domain.Project) error {
	return t.db.Save(project).Error
}

// DeleteProject soft-deletes a project. Later reads no longer find it.
func (t *Tx) DeleteProject(project *domain.Project) error {
	return t.db.Delete(project).Error
}

// GetInvestment loads and locks an investment.
func (t *Tx) GetInvestment(id string) (*domain.Investment, error) {
	var inv domain.Investment
	if err := t.forUpdate().Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, notFound(err, apperr.ErrInvestmentNotFound)
	}
	return &inv, nil
}

// CreateInvestment inserts a new investment row.
func (t *Tx) CreateInvestment(inv *domain.Investment) error {
	return t.db.Create(inv).Error
}

// UpdateInvestmentAmount persists a reduced principal.
func (t *Tx) UpdateInvestmentAmount(inv *domain.Investment) error {
	return t.db.Model(inv).Update("amount", inv.Amount).Error
}

// DeleteInvestment removes a fully withdrawn investment.
func (t *Tx) DeleteInvestment(inv *domain.Investment) error {
	return t.db.Where("id = ?", inv.ID).Delete(&domain.Investment{}).Error
}

// CreateHistory appends an audit entry.
func (t *Tx) CreateHistory(entry *domain.InvestmentHistory) error {
	return t.db.Create(entry).Error
}

// LockExpiredOpenProjects locks and returns the ids of open projects whose end date is before now.
func (t *Tx) LockExpiredOpenProjects(now time.Time) ([]string, error) {
	var ids []string
	err := t.forUpdate().Model(&domain.Project{}).
		Where("status = ? AND end_date < ?", domain.ProjectOpen, now).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

// CloseProjects moves the given open projects to closed and returns how many changed.
func (t *Tx) CloseProjects(ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := t.db.Model(&domain.Project{}).
		Where("id IN ? AND status = ?", ids, domain.ProjectOpen).
		Update("status", domain.ProjectClosed)
	return res.RowsAffected, res.Error
}
