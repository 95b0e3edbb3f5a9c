//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"fmt"
	"log/slog"

	"courier/auth"
	"courier/domain"
	"courier/errors"
	"courier/infrastructure/storage"
)

type IAuthService interface {
	Register(name, email, password string) (string, domain.User, error)
	Login(email, password string) (string, domain.User, error)
	Logout(userID string) error
}

// AuthService owns the presence flag: a session start flips IsActive on, a
// logout flips it off. The messaging core only ever reads the flag through
// the peer listing.
type AuthService struct {
	log    *slog.Logger
	users  storage.IUserRepository
	issuer *auth.TokenIssuer
}

func NewAuthService(log *slog.Logger, users storage.IUserRepository, issuer *auth.TokenIssuer) *AuthService {
	return &AuthService{log: log, users: users, issuer: issuer}
}

// Register validates the request, hashes the password, persists the account
// and opens the first session.
func (s *AuthService) Register(name, email, password string) (string, domain.User, error) {
	req := auth.RegisterRequest{Name: name, Email: email, Password: password}

	// Business rules first, before any expensive cryptographic work.
	if err := auth.ValidateRegister(req); err != nil {
		return "", domain.User{}, fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// Hashing stays in the service layer so the repository never sees a
	// plain password.
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	record, err := s.users.Create(name, email, hashed)
	if err != nil {
		return "", domain.User{}, err // Propagates ErrUserAlreadyExists if the email is taken
	}

	return s.openSession(record)
}

// Login verifies credentials and opens a session.
func (s *AuthService) Login(email, password string) (string, domain.User, error) {
	record, err := s.users.GetByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, record.PasswordHash)
	if err != nil || !match {
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	return s.openSession(record)
}

// Logout closes the session: presence off. The token itself stays valid until
// expiry, matching the best-effort presence contract.
func (s *AuthService) Logout(userID string) error {
	return s.users.SetActive(userID, false)
}

func (s *AuthService) openSession(record storage.DiskUser) (string, domain.User, error) {
	if err := s.users.SetActive(record.ID, true); err != nil {
		return "", domain.User{}, err
	}
	record.IsActive = true

	token, err := s.issuer.Generate(record.ID, record.Name)
	if err != nil {
		return "", domain.User{}, err
	}

	return token, domain.User{
		ID:        record.ID,
		Name:      record.Name,
		Email:     record.Email,
		IsActive:  record.IsActive,
		CreatedAt: record.CreatedAt,
	}, nil
}
