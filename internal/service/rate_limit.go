package service

import (
	"context"

	"quick_chat/internal/config"
	"quick_chat/internal/repository"
	"quick_chat/pkg/logger"
)

type RateLimitService interface {
	// Allow counts a request for key against the configured limit.
	Allow(ctx context.Context, key string) (allowed bool, limit int, remaining int, err error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	cfg           config.RateLimitConfig
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, cfg config.RateLimitConfig, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		cfg:           cfg,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, key string) (bool, int, int, error) {
	allowed, remaining, err := s.rateLimitRepo.Allow(ctx, key, s.cfg.Requests, s.cfg.Window)
	return allowed, s.cfg.Requests, remaining, err
}
