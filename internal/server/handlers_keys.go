package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jd2q/internal/db"
	"github.com/jonathan/jd2q/internal/llm"
	"github.com/jonathan/jd2q/internal/server/middleware"
	"github.com/jonathan/jd2q/internal/vault"
)

// createKeyRequest is the payload for storing a Gemini API key.
type createKeyRequest struct {
	KeyName string `json:"key_name" validate:"required,min=1,max=100"`
	APIKey  string `json:"api_key" validate:"required,min=10"`
}

// testKeyRequest is the payload for probing a key without storing it.
type testKeyRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

// keyView is the public representation of a stored credential. The key
// material itself never leaves the vault unmasked.
type keyView struct {
	ID         uuid.UUID `json:"id"`
	KeyName    string    `json:"key_name"`
	MaskedKey  string    `json:"masked_key"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) keyView(k *db.APIKey) keyView {
	masked := "unavailable"
	if plain, err := s.vault.Decrypt(k.EncryptedKey); err == nil {
		masked = vault.Mask(plain, 4)
	}
	return keyView{
		ID:         k.ID,
		KeyName:    k.KeyName,
		MaskedKey:  masked,
		UsageCount: k.UsageCount,
		CreatedAt:  k.CreatedAt,
	}
}

// handleCreateKey probes the submitted key against the provider, encrypts it
// and stores it for the authenticated user.
func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	valid, reason := llm.Probe(r.Context(), req.APIKey, s.cfg.GeminiModel, s.cfg.GeminiTimeout)
	if !valid {
		s.errorResponse(w, http.StatusUnprocessableEntity, reason)
		return
	}

	encrypted, err := s.vault.Encrypt(req.APIKey)
	if err != nil {
		s.log.WithError(err).Error("failed to encrypt api key")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to store key")
		return
	}

	keyID, err := s.db.CreateAPIKey(r.Context(), userID, req.KeyName, encrypted)
	if err != nil {
		s.log.WithError(err).Error("failed to store api key")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to store key")
		return
	}

	s.logActivity(r.Context(), userID, "key.created", "api_key", keyID.String(), nil)

	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"id":         keyID,
		"key_name":   req.KeyName,
		"masked_key": vault.Mask(req.APIKey, 4),
	})
}

// handleListKeys lists the authenticated user's stored credentials, masked.
func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	keys, err := s.db.ListAPIKeys(r.Context(), userID)
	if err != nil {
		s.log.WithError(err).Error("failed to list api keys")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list keys")
		return
	}

	views := make([]keyView, 0, len(keys))
	for i := range keys {
		views = append(views, s.keyView(&keys[i]))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"keys": views})
}

// handleDeleteKey removes one of the authenticated user's credentials.
func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	keyID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid key ID")
		return
	}

	if err := s.db.DeleteAPIKey(r.Context(), keyID, userID); err != nil {
		s.errorResponse(w, http.StatusNotFound, "Key not found")
		return
	}

	s.logActivity(r.Context(), userID, "key.deleted", "api_key", keyID.String(), nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleTestKey probes a key against the provider without storing it.
func (s *Server) handleTestKey(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		s.errorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req testKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	valid, reason := llm.Probe(r.Context(), req.APIKey, s.cfg.GeminiModel, s.cfg.GeminiTimeout)
	resp := map[string]any{"valid": valid}
	if reason != "" {
		resp["reason"] = reason
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// logActivity records an audit entry; failures are logged, never surfaced.
func (s *Server) logActivity(ctx context.Context, userID uuid.UUID, action, entityType, entityID string, metadata map[string]any) {
	err := s.db.LogActivity(ctx, db.ActivityEntry{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
	})
	if err != nil {
		s.log.WithError(err).Warn("failed to record activity")
	}
}
