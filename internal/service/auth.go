package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"quick_chat/internal/config"
	"quick_chat/internal/domain"
	"quick_chat/internal/repository"
	apperrors "quick_chat/pkg/errors"
	"quick_chat/pkg/jwt"
	"quick_chat/pkg/logger"
)

type AuthService interface {
	Register(ctx context.Context, email, password, fullName, bio string) (*LoginResponse, error)
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	// ValidateToken resolves an access token to its principal.
	ValidateToken(ctx context.Context, tokenString string) (*domain.User, error)
}

type LoginResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

type authService struct {
	userRepo repository.UserRepository
	jwtCfg   config.JWTConfig
	clock    clock.Clock
	log      logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, jwtCfg config.JWTConfig, clk clock.Clock, log logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		jwtCfg:   jwtCfg,
		clock:    clk,
		log:      log,
	}
}

func (s *authService) Register(ctx context.Context, email, password, fullName, bio string) (*LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)
	bio = strings.TrimSpace(bio)

	if email == "" || password == "" || fullName == "" {
		return nil, apperrors.NewAPIError("email, password and full name are required", http.StatusBadRequest)
	}
	if len(password) < 8 {
		return nil, apperrors.NewAPIError("password must be at least 8 characters", http.StatusBadRequest)
	}
	if len(fullName) > 100 {
		return nil, apperrors.NewAPIError("full name is too long (max 100 characters)", http.StatusBadRequest)
	}
	if len(email) > 255 || !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return nil, apperrors.NewAPIError("invalid email format", http.StatusBadRequest)
	}
	if bio == "" {
		bio = domain.DefaultBio
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("Failed to hash password", "error", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Bio:          bio,
		LastSeen:     now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, apperrors.ErrUserAlreadyExists) {
			s.log.Error("Failed to create user", "error", err, "email", email)
		}
		return nil, err
	}

	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := jwt.ValidateToken(tokenString, s.jwtCfg.AccessSecret)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) issue(user *domain.User) (*LoginResponse, error) {
	accessToken, err := jwt.GenerateAccessToken(user.ID, user.Email, s.jwtCfg.Issuer, s.jwtCfg.AccessSecret, s.jwtCfg.AccessTTL)
	if err != nil {
		s.log.Error("Failed to generate access token", "error", err)
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	user.PasswordHash = ""
	return &LoginResponse{User: user, AccessToken: accessToken}, nil
}
