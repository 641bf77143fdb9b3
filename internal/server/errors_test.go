package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/jd2q/internal/fetch"
	"github.com/jonathan/jd2q/internal/generation"
	"github.com/jonathan/jd2q/internal/llm"
	"github.com/jonathan/jd2q/internal/vault"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"email conflict", &ErrEmailAlreadyExists{Email: "a@b.c"}, http.StatusConflict},
		{"bad credentials", &ErrInvalidCredentials{}, http.StatusUnauthorized},
		{"user missing", &ErrUserNotFound{}, http.StatusNotFound},
		{"validation", &ErrValidation{Field: "email"}, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},

		{"decryption failure", &vault.DecryptionError{}, http.StatusUnprocessableEntity},
		{"fetch failure", &fetch.Error{URL: "http://x", Message: "HTTP status 500"}, http.StatusBadGateway},

		{
			"rejected key inside generation error",
			&generation.GenerationError{
				Model: "m", Message: "model call failed",
				Cause: &llm.CallError{Kind: llm.KindAuth, Message: "API key rejected"},
			},
			http.StatusUnprocessableEntity,
		},
		{
			"quota inside generation error",
			&generation.GenerationError{
				Model: "m", Message: "model call failed",
				Cause: &llm.CallError{Kind: llm.KindQuota, Message: "quota exceeded"},
			},
			http.StatusTooManyRequests,
		},
		{
			"unknown model inside answer error",
			&generation.AnswerError{
				Model: "m", Message: "model call failed",
				Cause: &llm.CallError{Kind: llm.KindModelNotFound, Message: "model not found"},
			},
			http.StatusUnprocessableEntity,
		},
		{
			"blocked response",
			&generation.GenerationError{
				Model: "m", Message: "model call failed",
				Cause: &llm.CallError{Kind: llm.KindBlocked, Message: "no candidates"},
			},
			http.StatusBadGateway,
		},
		{
			"schema violation",
			&generation.GenerationError{
				Model: "m", Message: "schema validation failed",
				Cause: &generation.SchemaError{Message: "missing required field: sections"},
			},
			http.StatusBadGateway,
		},
		{
			"decryption inside generation error",
			&generation.GenerationError{
				Model: "m", Message: "credential decryption failed",
				Cause: &vault.DecryptionError{},
			},
			http.StatusUnprocessableEntity,
		},
		{
			"generation error without cause",
			&generation.GenerationError{Model: "m", Message: "empty credential"},
			http.StatusBadGateway,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
