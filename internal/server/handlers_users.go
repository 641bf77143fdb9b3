package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/jd2q/internal/server/middleware"
)

// updateMeRequest is the payload for editing the authenticated user's profile.
type updateMeRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// handleGetMe returns the authenticated user's profile.
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := s.db.GetUser(r.Context(), userID)
	if err != nil {
		s.log.WithError(err).Error("failed to load user")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	if user == nil {
		s.errorResponse(w, http.StatusNotFound, "User not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, userInfo(user))
}

// handleUpdateMe updates the authenticated user's display name.
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req updateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	if err := s.db.UpdateUserName(r.Context(), userID, req.Name); err != nil {
		s.log.WithError(err).Error("failed to update user")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	user, err := s.db.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		s.log.WithError(err).Error("failed to reload user after update")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load user")
		return
	}

	s.logActivity(r.Context(), userID, "user.updated", "user", userID.String(), nil)
	s.jsonResponse(w, http.StatusOK, userInfo(user))
}
