package db

import (
	"context" // Request scoped operations
	"errors"  // Error inspection
	"fmt"     // Error wrapping
	"strings" // Email normalization

	"invest_platform/internal/apperr" // Error classification
	"invest_platform/internal/domain" // Importing domain models
	"invest_platform/internal/ledger" // User persistence

	"github.com/google/uuid"        // Identifiers
	"github.com/shopspring/decimal" // Wallet balance
	"github.com/sirupsen/logrus"    // Logging library
	"golang.org/x/crypto/bcrypt"    // Password hashing
)

// SeedAdmin creates a super admin account unless one with the same email exists
func SeedAdmin(ctx context.Context, store *ledger.Store, email, password string) (*domain.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email)) // Emails are stored lowercase
	if email == "" || len(password) < 8 {
		return nil, false, errors.New("admin seed needs an email and a password of at least 8 characters")
	}
	existing, err := store.FindUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil // Already seeded
	}
	if !errors.Is(err, apperr.ErrUserNotFound) {
		return nil, false, fmt.Errorf("look up admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash admin password: %w", err)
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleSuperAdmin,
		Wallet:       decimal.Zero,
		IsActive:     true,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create admin: %w", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "email": email}).Info("Admin account seeded")
	return user, true, nil
}
