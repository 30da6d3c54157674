package app

import (
	"context"
	"errors"
	"fmt"

	"course-exam-service/internal/domain"
)

// SeedAccounts are the first-run credentials.
type SeedAccounts struct {
	AdminUsername     string
	AdminPassword     string
	CandidateUsername string
	CandidatePassword string
}

// DefaultSeedAccounts returns the stock admin and candidate logins.
func DefaultSeedAccounts() SeedAccounts {
	return SeedAccounts{
		AdminUsername:     "admin",
		AdminPassword:     "admin123",
		CandidateUsername: "student1",
		CandidatePassword: "pass123",
	}
}

// Bootstrap seeds one admin and one candidate when the store has no admin yet.
// Running it again against a seeded store is a no-op. It reports whether it seeded.
func Bootstrap(ctx context.Context, users UserRepository, auth *AuthService, seed SeedAccounts) (bool, error) {
	admins, err := users.CountUsersByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		return false, nil
	}

	if _, err := auth.AddUser(ctx, seed.AdminUsername, seed.AdminPassword, domain.RoleAdmin); err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	if seed.CandidateUsername == "" {
		return true, nil
	}
	_, err = auth.AddUser(ctx, seed.CandidateUsername, seed.CandidatePassword, domain.RoleCandidate)
	if err != nil && !errors.Is(err, domain.ErrDuplicate) {
		return true, fmt.Errorf("seed candidate: %w", err)
	}
	return true, nil
}
