package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Validation family: the request itself is wrong, never retried.
	ErrBlankContent   = fmt.Errorf("message content is blank")
	ErrContentTooLong = fmt.Errorf("message content exceeds the configured limit")
	ErrSelfAddressed  = fmt.Errorf("sender and recipient are the same user")

	ErrUnknownUser       = fmt.Errorf("user does not exist")
	ErrUserAlreadyExists = fmt.Errorf("a user with this email already exists")

	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrNotConnected  = fmt.Errorf("no peer selected")
	ErrWorkerPanic   = fmt.Errorf("worker panic")
	ErrEmptyWordlist = fmt.Errorf("no censored words have been found")
)

// MapToHTTPStatus translates domain sentinels into HTTP status codes at the
// web boundary. Anything unrecognized is a 500: storage and delivery
// internals must not leak to callers.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBlankContent),
		errors.Is(err, ErrContentTooLong),
		errors.Is(err, ErrSelfAddressed),
		errors.Is(err, ErrInvalidPassword):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnknownUser):
		return http.StatusNotFound
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
