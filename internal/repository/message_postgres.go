package repository

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"quick_chat/internal/domain"
	apperrors "quick_chat/pkg/errors"
	"quick_chat/pkg/logger"
)

const messageColumns = `id, seq, sender_id, receiver_id, text, attachment, created_at, seen, deleted_for_everyone_at, deleted_for`

type messageRepository struct {
	db           *pgxpool.Pool
	clock        clock.Clock
	deleteWindow time.Duration
	log          logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, clk clock.Clock, deleteWindow time.Duration, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, clock: clk, deleteWindow: deleteWindow, log: log}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	m := &domain.Message{}
	var deletedFor []uuid.UUID
	err := row.Scan(
		&m.ID, &m.Seq, &m.SenderID, &m.ReceiverID, &m.Text, &m.Attachment,
		&m.CreatedAt, &m.Seen, &m.DeletedForEveryoneAt, &deletedFor,
	)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	if m.DeletedForEveryoneAt != nil {
		at := m.DeletedForEveryoneAt.UTC()
		m.DeletedForEveryoneAt = &at
	}
	m.DeletedFor = deletedFor
	return m, nil
}

func (r *messageRepository) Append(ctx context.Context, sender, receiver uuid.UUID, text, attachment string) (*domain.Message, error) {
	if err := domain.ValidateNewMessage(sender, receiver, text, attachment); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, text, attachment, created_at, seen)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING ` + messageColumns

	row := r.db.QueryRow(ctx, query,
		uuid.New(), sender, receiver, text, attachment, domain.Timestamp(r.clock.Now()),
	)
	message, err := scanMessage(row)
	if err != nil {
		r.log.Error("Failed to append message", "error", err)
		return nil, storageError("append message", err)
	}

	return message, nil
}

func (r *messageRepository) GetByID(ctx context.Context, messageID uuid.UUID) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	message, err := scanMessage(r.db.QueryRow(ctx, query, messageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		r.log.Error("Failed to get message", "error", err, "message_id", messageID)
		return nil, storageError("get message", err)
	}

	return message, nil
}

func (r *messageRepository) FetchConversation(ctx context.Context, viewer, counterpart uuid.UUID, page, pageSize int) ([]*domain.Message, error) {
	limit, offset := pageBounds(page, pageSize)

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		  AND NOT ($1 = ANY(deleted_for))
		ORDER BY created_at DESC, seq DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, viewer, counterpart, limit, offset)
	if err != nil {
		r.log.Error("Failed to fetch conversation", "error", err)
		return nil, storageError("fetch conversation", err)
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0, limit)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, storageError("scan message", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("fetch conversation", err)
	}

	// newest-first window, displayed oldest-first
	reverseMessages(messages)
	return messages, nil
}

func (r *messageRepository) MarkSeen(ctx context.Context, viewer, counterpart uuid.UUID) (int64, error) {
	query := `
		UPDATE messages
		SET seen = TRUE
		WHERE sender_id = $1 AND receiver_id = $2 AND seen = FALSE
	`

	tag, err := r.db.Exec(ctx, query, counterpart, viewer)
	if err != nil {
		r.log.Error("Failed to mark messages seen", "error", err)
		return 0, storageError("mark seen", err)
	}

	return tag.RowsAffected(), nil
}

func (r *messageRepository) DeleteForMe(ctx context.Context, viewer, messageID uuid.UUID) error {
	query := `
		UPDATE messages
		SET deleted_for = CASE
			WHEN $2 = ANY(deleted_for) THEN deleted_for
			ELSE array_append(deleted_for, $2)
		END
		WHERE id = $1 AND (sender_id = $2 OR receiver_id = $2)
	`

	tag, err := r.db.Exec(ctx, query, messageID, viewer)
	if err != nil {
		r.log.Error("Failed to delete message for viewer", "error", err, "message_id", messageID)
		return storageError("delete for me", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMessageNotFound
	}

	return nil
}

func (r *messageRepository) DeleteForEveryone(ctx context.Context, requestor, messageID uuid.UUID) (*domain.Message, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, storageError("begin delete for everyone", err)
	}
	defer tx.Rollback(ctx)

	message, err := scanMessage(tx.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1 FOR UPDATE`, messageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		r.log.Error("Failed to lock message", "error", err, "message_id", messageID)
		return nil, storageError("lock message", err)
	}

	now := r.clock.Now()
	if err := message.CanDeleteForEveryone(requestor, now, r.deleteWindow); err != nil {
		return nil, err
	}

	query := `
		UPDATE messages
		SET text = '', attachment = '', deleted_for_everyone_at = COALESCE(deleted_for_everyone_at, $2)
		WHERE id = $1
		RETURNING ` + messageColumns

	message, err = scanMessage(tx.QueryRow(ctx, query, messageID, domain.Timestamp(now)))
	if err != nil {
		r.log.Error("Failed to delete message for everyone", "error", err, "message_id", messageID)
		return nil, storageError("delete for everyone", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError("commit delete for everyone", err)
	}

	return message, nil
}

func (r *messageRepository) DeleteConversation(ctx context.Context, a, b uuid.UUID) (int64, error) {
	query := `
		DELETE FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
	`

	tag, err := r.db.Exec(ctx, query, a, b)
	if err != nil {
		r.log.Error("Failed to delete conversation", "error", err)
		return 0, storageError("delete conversation", err)
	}

	return tag.RowsAffected(), nil
}

func (r *messageRepository) UnreadCount(ctx context.Context, viewer uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND seen = FALSE`, viewer,
	).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count unread messages", "error", err)
		return 0, storageError("unread count", err)
	}

	return count, nil
}
