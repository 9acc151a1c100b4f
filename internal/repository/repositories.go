package repository

import (
	"github.com/benbjohnson/clock"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"quick_chat/internal/config"
	"quick_chat/pkg/logger"
)

type Repositories struct {
	User      UserRepository
	Message   MessageRepository
	Audit     AuditRepository
	RateLimit RateLimitRepository
	// Presence is nil when Redis is disabled.
	Presence PresenceDirectory
}

// NewRepositories wires the Postgres backed stores. redis may be nil.
func NewRepositories(db *pgxpool.Pool, redis *redis.Client, clk clock.Clock, cfg *config.Config, log logger.Logger) *Repositories {
	repos := &Repositories{
		User:    NewUserRepository(db, log),
		Message: NewMessageRepository(db, clk, cfg.Chat.DeleteWindow, log),
		Audit:   NewAuditRepository(db, log),
	}
	attachRedis(repos, redis, clk, log)

	log.Info("Repositories initialized", "storage", config.StorageDriverPostgres, "redis", redis != nil)
	return repos
}

// NewMemoryRepositories wires the in-process stores used for
// STORAGE_DRIVER=memory and tests.
func NewMemoryRepositories(redis *redis.Client, clk clock.Clock, cfg *config.Config, log logger.Logger) *Repositories {
	repos := &Repositories{
		User:    NewMemoryUserRepository(),
		Message: NewMemoryMessageRepository(clk, cfg.Chat.DeleteWindow, log),
		Audit:   NewMemoryAuditRepository(log),
	}
	attachRedis(repos, redis, clk, log)

	log.Info("Repositories initialized", "storage", config.StorageDriverMemory, "redis", redis != nil)
	return repos
}

func attachRedis(repos *Repositories, redis *redis.Client, clk clock.Clock, log logger.Logger) {
	if redis == nil {
		repos.RateLimit = NewLocalRateLimitRepository(clk)
		return
	}
	repos.RateLimit = NewRateLimitRepository(redis, log)
	repos.Presence = NewPresenceDirectory(redis, log)
}
