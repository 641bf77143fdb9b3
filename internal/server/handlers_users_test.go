package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/jd2q/internal/server/middleware"
)

// newBareServer builds a Server with just enough wiring for handler paths
// that never reach the database.
func newBareServer() *Server {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Server{validate: validator.New(), log: log}
}

func TestHandleGetMe_RequiresAuthentication(t *testing.T) {
	s := newBareServer()

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	s.handleGetMe(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleUpdateMe_RequiresAuthentication(t *testing.T) {
	s := newBareServer()

	req := httptest.NewRequest(http.MethodPut, "/users/me", strings.NewReader(`{"name":"New Name"}`))
	rec := httptest.NewRecorder()
	s.handleUpdateMe(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleUpdateMe_RejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"name":`},
		{"empty name", `{"name":""}`},
		{"missing name", `{}`},
		{"name too long", `{"name":"` + strings.Repeat("x", 101) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newBareServer()

			req := httptest.NewRequest(http.MethodPut, "/users/me", strings.NewReader(tt.body))
			req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
			rec := httptest.NewRecorder()
			s.handleUpdateMe(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
