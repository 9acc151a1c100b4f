package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"quick_chat/internal/domain"
	"quick_chat/internal/repository"
	apperrors "quick_chat/pkg/errors"
	"quick_chat/pkg/logger"
)

type UserService interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, update domain.ProfileUpdate) (*domain.User, error)
	// ListOthers returns the directory for the sidebar, newest first.
	ListOthers(ctx context.Context, userID uuid.UUID) ([]*domain.User, error)
}

type userService struct {
	userRepo repository.UserRepository
	log      logger.Logger
}

func NewUserService(userRepo repository.UserRepository, log logger.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		log:      log,
	}
}

func (s *userService) GetMe(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) UpdateMe(ctx context.Context, userID uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	if update.FullName != nil {
		name := strings.TrimSpace(*update.FullName)
		if name == "" || len(name) > 100 {
			return nil, apperrors.NewAPIError("full name must be 1-100 characters", http.StatusBadRequest)
		}
		update.FullName = &name
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) ListOthers(ctx context.Context, userID uuid.UUID) ([]*domain.User, error) {
	users, err := s.userRepo.ListExcept(ctx, userID)
	if err != nil {
		s.log.Error("Failed to list users", "error", err)
		return nil, err
	}
	for _, u := range users {
		u.PasswordHash = ""
	}
	return users, nil
}
