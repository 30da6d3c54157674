package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"course-exam-service/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// DefaultMaxLoginAttempts is the failed-login count at which an account locks.
const DefaultMaxLoginAttempts = 5

// AuthService hashes passwords and verifies credentials with a lockout counter.
type AuthService struct {
	users       UserRepository
	cost        int
	maxAttempts int
}

func NewAuthService(users UserRepository, bcryptCost, maxAttempts int) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxLoginAttempts
	}
	return &AuthService{users: users, cost: bcryptCost, maxAttempts: maxAttempts}
}

// AddUser stores a new account with a one-way hash of password.
func (s *AuthService) AddUser(ctx context.Context, username, password, role string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}
	if role != domain.RoleAdmin && role != domain.RoleCandidate {
		return domain.User{}, fmt.Errorf("%w: role must be %q or %q", domain.ErrValidation, domain.RoleAdmin, domain.RoleCandidate)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: hash password: %v", domain.ErrValidation, err)
	}
	return s.users.CreateUser(ctx, domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	})
}

// Authenticate checks credentials. A locked account is rejected before the password
// is looked at, so it stays locked until UnlockUser resets the counter.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if user.LoginAttempts >= s.maxAttempts {
		return domain.User{}, domain.ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if err := s.users.IncrementLoginAttempts(ctx, user.ID); err != nil {
			return domain.User{}, err
		}
		return domain.User{}, domain.ErrInvalidCredentials
	}

	if err := s.users.ResetLoginAttempts(ctx, user.ID); err != nil {
		return domain.User{}, err
	}
	user.LoginAttempts = 0
	return user, nil
}

// UnlockUser clears the failed-login counter. It is an administrative action and
// not reachable through Authenticate.
func (s *AuthService) UnlockUser(ctx context.Context, username string) error {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.users.ResetLoginAttempts(ctx, user.ID)
}
