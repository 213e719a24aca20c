package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"torcida-quiz-service/internal/auth"
	"torcida-quiz-service/internal/domain"
	"torcida-quiz-service/internal/logger"
)

const minPasswordLength = 6

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// AuthService registers and authenticates organizer accounts.
type AuthService struct {
	users  UserRepository
	tokens TokenIssuer
	log    *logger.Logger
	now    func() time.Time
}

func NewAuthService(users UserRepository, tokens TokenIssuer, log *logger.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log.With("service", "AuthService"), now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if _, err := mail.ParseAddress(email); err != nil {
		return AuthResult{}, fmt.Errorf("%w: email is invalid", domain.ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return AuthResult{}, fmt.Errorf("%w: password must have at least %d characters", domain.ErrValidation, minPasswordLength)
	}
	if name == "" {
		return AuthResult{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        strings.TrimSpace(in.Phone),
		Role:         domain.RoleUser,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return AuthResult{}, err
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.Info("user registered", "user_id", user.ID)
	return AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return AuthResult{}, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return AuthResult{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}
	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return AuthResult{}, domain.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: user}, nil
}
