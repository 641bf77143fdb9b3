package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/jd2q/internal/fetch"
	"github.com/jonathan/jd2q/internal/generation"
	"github.com/jonathan/jd2q/internal/llm"
	"github.com/jonathan/jd2q/internal/vault"
)

// ErrEmailAlreadyExists indicates email is already registered.
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrUserNotFound indicates user was not found.
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus maps an error to the status code its response should carry.
//
// Generation failures distinguish three broad classes: problems with the
// stored credential (unprocessable), upstream quota pressure (too many
// requests), and malformed or blocked model output (bad gateway).
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrEmailAlreadyExists:
		return http.StatusConflict
	case *ErrInvalidCredentials:
		return http.StatusUnauthorized
	case *ErrUserNotFound:
		return http.StatusNotFound
	case *ErrValidation:
		return http.StatusBadRequest
	}

	var decErr *vault.DecryptionError
	if errors.As(err, &decErr) {
		return http.StatusUnprocessableEntity
	}

	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		return http.StatusBadGateway
	}

	var callErr *llm.CallError
	if errors.As(err, &callErr) {
		switch callErr.Kind {
		case llm.KindAuth, llm.KindModelNotFound:
			return http.StatusUnprocessableEntity
		case llm.KindQuota:
			return http.StatusTooManyRequests
		default:
			return http.StatusBadGateway
		}
	}

	var schemaErr *generation.SchemaError
	if errors.As(err, &schemaErr) {
		return http.StatusBadGateway
	}

	var genErr *generation.GenerationError
	if errors.As(err, &genErr) {
		return http.StatusBadGateway
	}
	var ansErr *generation.AnswerError
	if errors.As(err, &ansErr) {
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}
