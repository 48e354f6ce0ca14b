package ledger

import (
	"context" // Request scoped cancellation
	"time"    // Date filters

	"invest_platform/internal/apperr" // Error classification
	"invest_platform/internal/domain" // Importing domain models

	"gorm.io/gorm" // Query sessions
)

// HistoryFilter narrows a history listing. Zero values mean no filter.
type HistoryFilter struct {
	UserID    string
	ProjectID string
	Action    string
	From      *time.Time
	To        *time.Time
	Offset    int
	Limit     int
}

// FindUser reads a user outside of any transaction.
func (s *Store) FindUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, classify(notFound(err, apperr.ErrUserNotFound))
	}
	return &user, nil
}

// FindUserByEmail reads a user by login email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, classify(notFound(err, apperr.ErrUserNotFound))
	}
	return &user, nil
}

// CreateUser inserts a user.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return classify(s.db.WithContext(ctx).Create(user).Error)
}

// FindProject reads a project outside of any transaction.
func (s *Store) FindProject(ctx context.Context, id string) (*domain.Project, error) {
	var project domain.Project
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&project).Error; err != nil {
		return nil, classify(notFound(err, apperr.ErrProjectNotFound))
	}
	return &project, nil
}

// ListProjects returns live projects, optionally restricted to one status, newest first.
func (s *Store) ListProjects(ctx context.Context, status domain.ProjectStatus) ([]domain.Project, error) {
	query := s.db.WithContext(ctx).Model(&domain.Project{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var projects []domain.Project
	if err := query.Order("created_at desc").Find(&projects).Error; err != nil {
		return nil, classify(err)
	}
	return projects, nil
}

// CreateProject inserts a project.
func (s *Store) CreateProject(ctx context.Context, project *domain.Project) error {
	return classify(s.db.WithContext(ctx).Create(project).Error)
}

// FindInvestment reads an investment outside of any transaction.
func (s *Store) FindInvestment(ctx context.Context, id string) (*domain.Investment, error) {
	var inv domain.Investment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, classify(notFound(err, apperr.ErrInvestmentNotFound))
	}
	return &inv, nil
}

// ListInvestments returns the active investments of a user.
func (s *Store) ListInvestments(ctx context.Context, userID string) ([]domain.Investment, error) {
	var invs []domain.Investment
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&invs).Error
	return invs, classify(err)
}

// ListHistory returns a page of history entries and the total matching count.
func (s *Store) ListHistory(ctx context.Context, f HistoryFilter) ([]domain.InvestmentHistory, int64, error) {
	query := s.db.WithContext(ctx).Model(&domain.InvestmentHistory{})
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.ProjectID != "" {
		query = query.Where("project_id = ?", f.ProjectID)
	}
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", *f.To)
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, classify(err)
	}
	var entries []domain.InvestmentHistory
	if err := query.Order("created_at desc").Offset(f.Offset).Limit(f.Limit).Find(&entries).Error; err != nil {
		return nil, 0, classify(err)
	}
	return entries, total, nil
}
