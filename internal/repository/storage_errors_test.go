package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	apperrors "quick_chat/pkg/errors"
)

func TestStorageError_Classification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{name: "connection failure", err: &pgconn.PgError{Code: "08006", Message: "connection failure"}, unavailable: true},
		{name: "too many connections", err: &pgconn.PgError{Code: "53300", Message: "too many connections"}, unavailable: true},
		{name: "admin shutdown", err: &pgconn.PgError{Code: "57P01", Message: "terminating connection"}, unavailable: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505", Message: "duplicate key"}},
		{name: "cancelled", err: context.Canceled},
		{name: "network error", err: errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), unavailable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			err := storageError("append message", tt.err)

			req.Error(err)
			req.Contains(err.Error(), "append message")
			req.Equal(tt.unavailable, errors.Is(err, apperrors.ErrStorageUnavailable))
			req.False(errors.Is(err, apperrors.ErrInvalidMessage))
		})
	}
}

func TestStorageError_KeepsPgErrorInChain(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key"}

	var got *pgconn.PgError
	require.True(t, errors.As(storageError("insert", pgErr), &got))
	require.Equal(t, "23505", got.Code)
	require.Nil(t, storageError("insert", nil))
}
