package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"quick_chat/internal/domain"
	"quick_chat/pkg/logger"
)

type AuditRepository interface {
	CreateLog(ctx context.Context, log *domain.AuditLog) error
}

type auditRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAuditRepository(db *pgxpool.Pool, log logger.Logger) AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) CreateLog(ctx context.Context, auditLog *domain.AuditLog) error {
	query := `
		INSERT INTO audit_log (event_time, actor_user_id, counterpart_id, event_type, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		auditLog.EventTime, auditLog.ActorUserID, auditLog.CounterpartID,
		auditLog.EventType, auditLog.Payload,
	).Scan(&auditLog.ID)

	if err != nil {
		r.log.Error("Failed to create audit log", "error", err)
		return storageError("create audit log", err)
	}

	return nil
}

// memoryAuditRepository keeps entries in process and mirrors each one
// to the application log.
type memoryAuditRepository struct {
	mu      sync.Mutex
	entries []domain.AuditLog
	log     logger.Logger
}

func NewMemoryAuditRepository(log logger.Logger) AuditRepository {
	return &memoryAuditRepository{log: log}
}

func (r *memoryAuditRepository) CreateLog(ctx context.Context, auditLog *domain.AuditLog) error {
	r.mu.Lock()
	auditLog.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, *auditLog)
	r.mu.Unlock()

	r.log.Info("Audit", "event_type", auditLog.EventType, "actor", auditLog.ActorUserID, "payload", auditLog.Payload)
	return nil
}
