package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapToHTTPStatus(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		err      error
		expected int
	}{
		{nil, http.StatusOK},
		{ErrBlankContent, http.StatusUnprocessableEntity},
		{ErrContentTooLong, http.StatusUnprocessableEntity},
		{ErrSelfAddressed, http.StatusUnprocessableEntity},
		{ErrInvalidPassword, http.StatusUnprocessableEntity},
		{ErrUnknownUser, http.StatusNotFound},
		{ErrUserAlreadyExists, http.StatusConflict},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
		// Wrapped sentinels still map
		{fmt.Errorf("%w: field Content", ErrBlankContent), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		req.Equal(tt.expected, MapToHTTPStatus(tt.err), "err=%v", tt.err)
	}
}
