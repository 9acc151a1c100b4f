package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatusFromError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrInvalidMessage, http.StatusBadRequest},
		{ErrNotSender, http.StatusForbidden},
		{ErrWindowExpired, http.StatusConflict},
		{ErrMessageNotFound, http.StatusNotFound},
		{ErrStorageUnavailable, http.StatusServiceUnavailable},
		{ErrRateLimited, http.StatusTooManyRequests},
		{ErrInvalidToken, http.StatusUnauthorized},
		{fmt.Errorf("append message: %w", ErrStorageUnavailable), http.StatusServiceUnavailable},
		{NewAPIError("teapot", http.StatusTeapot), http.StatusTeapot},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, HTTPStatusFromError(tc.err), tc.err.Error())
	}
}

func TestStorageUnavailableIsNotValidation(t *testing.T) {
	err := fmt.Errorf("fetch conversation: %w", ErrStorageUnavailable)
	require.True(t, Is(err, ErrStorageUnavailable))
	require.False(t, Is(err, ErrInvalidMessage))
}
