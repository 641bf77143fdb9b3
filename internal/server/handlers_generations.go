package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jd2q/internal/db"
	"github.com/jonathan/jd2q/internal/fetch"
	"github.com/jonathan/jd2q/internal/generation"
	"github.com/jonathan/jd2q/internal/server/middleware"
)

const fetchTimeout = 30 * time.Second

// createGenerationRequest is the payload for starting a generation. Exactly
// one of job_description or job_url supplies the input text.
type createGenerationRequest struct {
	JobDescription string `json:"job_description" validate:"required_without=JobURL"`
	JobURL         string `json:"job_url" validate:"omitempty,url"`
	APIKeyID       string `json:"api_key_id" validate:"required,uuid"`
}

// questionView is one stored question in API responses.
type questionView struct {
	ID              uuid.UUID `json:"id"`
	QuestionID      string    `json:"question_id"`
	Type            string    `json:"type"`
	Difficulty      string    `json:"difficulty"`
	Text            string    `json:"text"`
	ExpectedSignals []string  `json:"expected_signals"`
	GeneratedAnswer *string   `json:"generated_answer,omitempty"`
}

// sectionView regroups stored questions under their section headings.
type sectionView struct {
	Title     string         `json:"title"`
	Skill     string         `json:"skill"`
	Questions []questionView `json:"questions"`
}

// generationView is the API representation of a generation request.
type generationView struct {
	ID              uuid.UUID     `json:"id"`
	Status          string        `json:"status"`
	RoleLevel       *string       `json:"role_level,omitempty"`
	ExtractedSkills []string      `json:"extracted_skills,omitempty"`
	ErrorMessage    *string       `json:"error_message,omitempty"`
	TotalQuestions  int           `json:"total_questions"`
	Sections        []sectionView `json:"sections,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// handleCreateGeneration runs the full pipeline: resolve the job description,
// create a pending request, call the model, validate, persist.
func (s *Server) handleCreateGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	jobDescription := strings.TrimSpace(req.JobDescription)
	if jobDescription == "" && req.JobURL != "" {
		fetched, err := fetch.JobDescription(r.Context(), req.JobURL, fetchTimeout)
		if err != nil {
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
		jobDescription = fetched
	}
	if jobDescription == "" {
		s.errorResponse(w, http.StatusBadRequest, "Job description is required")
		return
	}
	if words := len(strings.Fields(jobDescription)); words > s.cfg.MaxJDWords {
		s.errorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("Job description too long: %d words (maximum %d)", words, s.cfg.MaxJDWords))
		return
	}

	keyID, _ := uuid.Parse(req.APIKeyID)
	key, err := s.db.GetAPIKey(r.Context(), keyID, userID)
	if err != nil {
		s.log.WithError(err).Error("failed to load api key")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load key")
		return
	}
	if key == nil {
		s.errorResponse(w, http.StatusNotFound, "API key not found")
		return
	}

	s.runGeneration(w, r, userID, key, jobDescription)
}

// handleRegenerate reruns the pipeline on an existing request's job
// description with its original key, producing a new generation.
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	genID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid generation ID")
		return
	}

	gen, err := s.db.GetGenerationRequest(r.Context(), genID, userID)
	if err != nil {
		s.log.WithError(err).Error("failed to load generation request")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load generation")
		return
	}
	if gen == nil {
		s.errorResponse(w, http.StatusNotFound, "Generation not found")
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

	s.runGeneration(w, r, userID, key, gen.JobDescription)
}

// runGeneration creates a pending request, invokes the orchestrator and
// persists the outcome. Model failures mark the request failed and surface
// the mapped status; the failed row is kept for history.
func (s *Server) runGeneration(w http.ResponseWriter, r *http.Request, userID uuid.UUID, key *db.APIKey, jobDescription string) {
	genID, err := s.db.CreateGenerationRequest(r.Context(), userID, key.ID, jobDescription)
	if err != nil {
		s.log.WithError(err).Error("failed to create generation request")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to create generation")
		return
	}

	result, outcome, err := s.gen.GenerateQuestions(r.Context(), jobDescription, key.EncryptedKey)
	if err != nil {
		s.log.WithError(err).WithField("generation_id", genID).Warn("question generation failed")
		// The model call may have failed because the client went away; the
		// pending row still has to reach a terminal state, so the status
		// update must outlive the request context.
		if failErr := s.db.FailGenerationRequest(detachContext(r.Context()), genID, err.Error()); failErr != nil {
			s.log.WithError(failErr).Error("failed to mark generation failed")
		}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	records := generation.Flatten(result)
	if err := s.db.CompleteGenerationRequest(r.Context(), genID, result.RoleLevel, result.ExtractedSkills); err != nil {
		s.log.WithError(err).Error("failed to complete generation request")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to persist generation")
		return
	}
	if err := s.db.InsertQuestions(r.Context(), genID, records); err != nil {
		s.log.WithError(err).Error("failed to persist questions")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to persist questions")
		return
	}

	if err := s.db.IncrementKeyUsage(r.Context(), key.ID); err != nil {
		s.log.WithError(err).Warn("failed to increment key usage")
	}
	s.logActivity(r.Context(), userID, "generation.created", "generation", genID.String(),
		map[string]any{"total_questions": outcome.TotalQuestions})

	// A shortfall is an internal diagnostic only; the orchestrator has already
	// logged it and the response is a plain success.
	s.jsonResponse(w, http.StatusCreated, generationView{
		ID:              genID,
		Status:          db.StatusCompleted,
		RoleLevel:       &result.RoleLevel,
		ExtractedSkills: result.ExtractedSkills,
		TotalQuestions:  outcome.TotalQuestions,
		Sections:        sectionsFromResult(result),
		CreatedAt:       time.Now().UTC(),
	})
}

// handleListGenerations lists the user's generation history, newest first.
func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	requests, err := s.db.ListGenerationRequests(r.Context(), userID, limit, offset)
	if err != nil {
		s.log.WithError(err).Error("failed to list generation requests")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list generations")
		return
	}

	views := make([]generationView, 0, len(requests))
	for i := range requests {
		views = append(views, summaryView(&requests[i]))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"generations": views})
}

// handleGetGeneration returns one generation with its questions regrouped
// into sections.
func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	gen, questions, status := s.loadGeneration(w, r, userID)
	if status != http.StatusOK {
		return
	}

	view := summaryView(gen)
	view.TotalQuestions = len(questions)
	view.Sections = groupSections(questions)
	s.jsonResponse(w, http.StatusOK, view)
}

// handleDeleteGeneration removes a generation and its questions.
func (s *Server) handleDeleteGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	genID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid generation ID")
		return
	}

	if err := s.db.DeleteGenerationRequest(r.Context(), genID, userID); err != nil {
		s.errorResponse(w, http.StatusNotFound, "Generation not found")
		return
	}
	s.logActivity(r.Context(), userID, "generation.deleted", "generation", genID.String(), nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleExportJSON streams a generation as a standalone JSON document.
func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	gen, questions, status := s.loadGeneration(w, r, userID)
	if status != http.StatusOK {
		return
	}

	view := summaryView(gen)
	view.TotalQuestions = len(questions)
	view.Sections = groupSections(questions)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", exportFilename(gen.ID, "json")))
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(view); err != nil {
		s.log.WithError(err).Error("failed to encode export")
	}
}

// handleExportCSV streams a generation's questions as CSV rows.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		s.errorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	gen, questions, status := s.loadGeneration(w, r, userID)
	if status != http.StatusOK {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", exportFilename(gen.ID, "csv")))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"position", "section", "skill", "type", "difficulty", "question", "expected_signals", "answer"})
	for _, q := range questions {
		answer := ""
		if q.GeneratedAnswer != nil {
			answer = *q.GeneratedAnswer
		}
		_ = cw.Write([]string{
			strconv.Itoa(q.Position),
			q.SectionTitle,
			q.Skill,
			q.QuestionType,
			q.Difficulty,
			q.QuestionText,
			strings.Join(q.ExpectedSignals, "; "),
			answer,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.log.WithError(err).Error("failed to write csv export")
	}
}

// loadGeneration resolves the path ID to an owned generation and its
// questions, writing the error response itself on failure.
func (s *Server) loadGeneration(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*db.GenerationRequest, []db.Question, int) {
	genID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid generation ID")
		return nil, nil, http.StatusBadRequest
	}

	gen, err := s.db.GetGenerationRequest(r.Context(), genID, userID)
	if err != nil {
		s.log.WithError(err).Error("failed to load generation request")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load generation")
		return nil, nil, http.StatusInternalServerError
	}
	if gen == nil {
		s.errorResponse(w, http.StatusNotFound, "Generation not found")
		return nil, nil, http.StatusNotFound
	}

	questions, err := s.db.ListQuestions(r.Context(), genID)
	if err != nil {
		s.log.WithError(err).Error("failed to load questions")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load questions")
		return nil, nil, http.StatusInternalServerError
	}
	return gen, questions, http.StatusOK
}

func summaryView(g *db.GenerationRequest) generationView {
	return generationView{
		ID:              g.ID,
		Status:          g.Status,
		RoleLevel:       g.RoleLevel,
		ExtractedSkills: g.ExtractedSkills,
		ErrorMessage:    g.ErrorMessage,
		CreatedAt:       g.CreatedAt,
	}
}

// groupSections rebuilds the section structure from flattened rows. Rows are
// position-ordered, so questions of one section are contiguous.
func groupSections(questions []db.Question) []sectionView {
	var sections []sectionView
	for _, q := range questions {
		view := questionView{
			ID:              q.ID,
			QuestionID:      q.QuestionID,
			Type:            q.QuestionType,
			Difficulty:      q.Difficulty,
			Text:            q.QuestionText,
			ExpectedSignals: q.ExpectedSignals,
			GeneratedAnswer: q.GeneratedAnswer,
		}
		n := len(sections)
		if n == 0 || sections[n-1].Title != q.SectionTitle || sections[n-1].Skill != q.Skill {
			sections = append(sections, sectionView{Title: q.SectionTitle, Skill: q.Skill})
			n++
		}
		sections[n-1].Questions = append(sections[n-1].Questions, view)
	}
	return sections
}

func sectionsFromResult(result *generation.StructuredResult) []sectionView {
	sections := make([]sectionView, 0, len(result.Sections))
	for _, sec := range result.Sections {
		view := sectionView{Title: sec.Title, Skill: sec.Skill}
		for _, q := range sec.Questions {
			view.Questions = append(view.Questions, questionView{
				QuestionID:      q.ID,
				Type:            q.Type,
				Difficulty:      q.Difficulty,
				Text:            q.Text,
				ExpectedSignals: q.ExpectedSignals,
			})
		}
		sections = append(sections, view)
	}
	return sections
}

func exportFilename(id uuid.UUID, ext string) string {
	return fmt.Sprintf("questions-%s.%s", id.String()[:8], ext)
}

// detachContext derives a context that keeps the parent's values but survives
// its cancellation, for persistence writes that must complete even when the
// client has disconnected.
func detachContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
