package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"crm-service/internal/counselor"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type Service struct {
	counselors counselor.Repository
	tokens     *TokenService
}

func NewService(counselors counselor.Repository, tokens *TokenService) *Service {
	return &Service{
		counselors: counselors,
		tokens:     tokens,
	}
}

// Register creates a new counselor account and issues an access token.
// Duplicate emails surface as counselor.ErrEmailExists straight from the
// store's unique constraint, so the check and the insert are one atomic step.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*counselor.Counselor, string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	newCounselor := &counselor.Counselor{
		Name:     strings.TrimSpace(req.Name),
		Email:    normalizeEmail(req.Email),
		Password: string(hashedPassword),
	}

	created, err := s.counselors.Create(ctx, newCounselor)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(created.ID)
	if err != nil {
		return nil, "", err
	}
	return created, token, nil
}

// Login verifies credentials and issues an access token. A lookup miss and a
// password mismatch are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*counselor.Counselor, string, error) {
	c, err := s.counselors.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, counselor.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	// bcrypt comparison is constant time
	if err := bcrypt.CompareHashAndPassword([]byte(c.Password), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(c.ID)
	if err != nil {
		return nil, "", err
	}
	return c, token, nil
}

// normalizeEmail makes email comparison effectively case-insensitive: every
// address is stored and looked up lowercased.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
