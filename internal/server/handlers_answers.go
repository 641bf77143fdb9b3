package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/jd2q/internal/generation"
	"github.com/jonathan/jd2q/internal/server/middleware"
)

// handleGenerateAnswer produces (or returns the cached) model answer for one
// stored question. The generation's original key pays for the call.
func (s *Server) handleGenerateAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	questionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid question ID")
		return
	}

	question, err := s.db.GetQuestion(r.Context(), questionID)
	if err != nil {
		s.log.WithError(err).Error("failed to load question")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load question")
		return
	}
	if question == nil {
		s.errorResponse(w, http.StatusNotFound, "Question not found")
		return
	}

	// Ownership flows through the parent generation.
	gen, err := s.db.GetGenerationRequest(r.Context(), question.GenerationID, userID)
	if err != nil {
		s.log.WithError(err).Error("failed to load generation request")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load generation")
		return
	}
	if gen == nil {
		s.errorResponse(w, http.StatusNotFound, "Question not found")
		return
	}

	if question.GeneratedAnswer != nil {
		s.jsonResponse(w, http.StatusOK, map[string]any{
			"question_id": question.ID,
			"answer":      *question.GeneratedAnswer,
			"cached":      true,
		})
		return
	}

	if gen.APIKeyID == nil {
		s.errorResponse(w, http.StatusConflict, "Original API key no longer exists")
		return
	}
	key, err := s.db.GetAPIKey(r.Context(), *gen.APIKeyID, userID)
	if err != nil {
		s.log.WithError(err).Error("failed to load api key")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load key")
		return
	}
	if key == nil {
		s.errorResponse(w, http.StatusConflict, "Original API key no longer exists")
		return
	}

	roleLevel := ""
	if gen.RoleLevel != nil {
		roleLevel = *gen.RoleLevel
	}
	answer, err := s.gen.GenerateAnswer(r.Context(), generation.QuestionContext{
		RoleLevel:       roleLevel,
		Skill:           question.Skill,
		Type:            question.QuestionType,
		Difficulty:      question.Difficulty,
		Text:            question.QuestionText,
		ExpectedSignals: question.ExpectedSignals,
	}, key.EncryptedKey)
	if err != nil {
		s.log.WithError(err).WithField("question_id", questionID).Warn("answer generation failed")
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	if err := s.db.SetQuestionAnswer(r.Context(), questionID, answer); err != nil {
		s.log.WithError(err).Error("failed to persist answer")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to persist answer")
		return
	}
	if err := s.db.IncrementKeyUsage(r.Context(), key.ID); err != nil {
		s.log.WithError(err).Warn("failed to increment key usage")
	}
	s.logActivity(r.Context(), userID, "answer.generated", "question", questionID.String(), nil)

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"question_id": question.ID,
		"answer":      answer,
		"cached":      false,
	})
}
