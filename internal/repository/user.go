package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"quick_chat/internal/domain"
	apperrors "quick_chat/pkg/errors"
	"quick_chat/pkg/logger"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// ListExcept returns every user but id, newest first.
	ListExcept(ctx context.Context, id uuid.UUID) ([]*domain.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate) (*domain.User, error)
	// SetOnline refreshes the cached presence hint.
	SetOnline(ctx context.Context, id uuid.UUID, online bool, at time.Time) error
}

const userColumns = `id, email, password_hash, full_name, bio, profile_pic, is_online, last_seen, created_at, updated_at`

type userRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewUserRepository(db *pgxpool.Pool, log logger.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Bio, &user.ProfilePic,
		&user.IsOnline, &user.LastSeen, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	user.Email = normalizeEmail(user.Email)

	query := `
		INSERT INTO users (id, email, password_hash, full_name, bio, profile_pic, is_online, last_seen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.Bio, user.ProfilePic,
		user.LastSeen, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.log.Warn("User already exists (unique violation)", "email", user.Email, "constraint", pgErr.ConstraintName)
			return apperrors.ErrUserAlreadyExists
		}
		r.log.Error("Failed to create user", "error", err, "email", user.Email)
		return storageError("create user", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		r.log.Error("Failed to get user by ID", "error", err)
		return nil, storageError("get user", err)
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = normalizeEmail(email)
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		r.log.Error("Failed to get user by email", "error", err, "email", email)
		return nil, storageError("get user by email", err)
	}
	return user, nil
}

func (r *userRepository) ListExcept(ctx context.Context, id uuid.UUID) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id <> $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to list users", "error", err)
		return nil, storageError("list users", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			r.log.Error("Failed to scan user", "error", err)
			return nil, storageError("scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list users", err)
	}

	return users, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	query := `
		UPDATE users
		SET full_name = COALESCE($2, full_name),
		    bio = COALESCE($3, bio),
		    profile_pic = COALESCE($4, profile_pic),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, id, update.FullName, update.Bio, update.ProfilePic))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		r.log.Error("Failed to update user profile", "error", err)
		return nil, storageError("update profile", err)
	}
	return user, nil
}

func (r *userRepository) SetOnline(ctx context.Context, id uuid.UUID, online bool, at time.Time) error {
	query := `UPDATE users SET is_online = $2, last_seen = $3 WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id, online, at); err != nil {
		r.log.Error("Failed to update presence hint", "error", err, "user_id", id)
		return storageError("set online", err)
	}
	return nil
}

type memoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*domain.User
	byEmail map[string]uuid.UUID
}

func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID:    make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *memoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	user.Email = normalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return apperrors.ErrUserAlreadyExists
	}
	if _, ok := r.byID[user.ID]; ok {
		return fmt.Errorf("create user: duplicate id %s", user.ID)
	}
	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (r *memoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	out := *r.byID[id]
	return &out, nil
}

func (r *memoryUserRepository) ListExcept(ctx context.Context, id uuid.UUID) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*domain.User, 0, len(r.byID))
	for uid, user := range r.byID {
		if uid == id {
			continue
		}
		out := *user
		users = append(users, &out)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func (r *memoryUserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.ProfilePic != nil {
		user.ProfilePic = *update.ProfilePic
	}
	user.UpdatedAt = time.Now().UTC()
	out := *user
	return &out, nil
}

func (r *memoryUserRepository) SetOnline(ctx context.Context, id uuid.UUID, online bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.byID[id]; ok {
		user.IsOnline = online
		user.LastSeen = at
	}
	return nil
}
