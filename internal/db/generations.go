package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jd2q/internal/generation"
)

// CreateGenerationRequest inserts a pending request and returns its ID.
func (db *DB) CreateGenerationRequest(ctx context.Context, userID, apiKeyID uuid.UUID, jobDescription string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO generation_requests (user_id, api_key_id, job_description, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		userID, apiKeyID, jobDescription, StatusPending,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create generation request: %w", err)
	}
	return id, nil
}

// CompleteGenerationRequest moves a pending request to completed with the
// extracted role level and skills. Requests already in a terminal state are
// never mutated; attempting to do so is an error.
func (db *DB) CompleteGenerationRequest(ctx context.Context, genID uuid.UUID, roleLevel string, skills []string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE generation_requests
		 SET status = $1, role_level = $2, extracted_skills = $3, updated_at = NOW()
		 WHERE id = $4 AND status = $5`,
		StatusCompleted, roleLevel, skills, genID, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to complete generation request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("generation request %s is not pending", genID)
	}
	return nil
}

// FailGenerationRequest moves a pending request to failed with an error
// message. Terminal states are never overwritten.
func (db *DB) FailGenerationRequest(ctx context.Context, genID uuid.UUID, errorMessage string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE generation_requests
		 SET status = $1, error_message = $2, updated_at = NOW()
		 WHERE id = $3 AND status = $4`,
		StatusFailed, errorMessage, genID, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark generation request failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("generation request %s is not pending", genID)
	}
	return nil
}

// GetGenerationRequest retrieves one request scoped to its owner, or nil.
func (db *DB) GetGenerationRequest(ctx context.Context, genID, userID uuid.UUID) (*GenerationRequest, error) {
	var g GenerationRequest
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, api_key_id, job_description, status, role_level,
		        extracted_skills, error_message, created_at, updated_at
		 FROM generation_requests WHERE id = $1 AND user_id = $2`,
		genID, userID,
	).Scan(&g.ID, &g.UserID, &g.APIKeyID, &g.JobDescription, &g.Status, &g.RoleLevel,
		&g.ExtractedSkills, &g.ErrorMessage, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get generation request: %w", err)
	}
	return &g, nil
}

// ListGenerationRequests retrieves a user's requests, newest first.
func (db *DB) ListGenerationRequests(ctx context.Context, userID uuid.UUID, limit, offset int) ([]GenerationRequest, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, api_key_id, job_description, status, role_level,
		        extracted_skills, error_message, created_at, updated_at
		 FROM generation_requests
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list generation requests: %w", err)
	}
	defer rows.Close()

	var requests []GenerationRequest
	for rows.Next() {
		var g GenerationRequest
		if err := rows.Scan(&g.ID, &g.UserID, &g.APIKeyID, &g.JobDescription, &g.Status, &g.RoleLevel,
			&g.ExtractedSkills, &g.ErrorMessage, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generation request: %w", err)
		}
		requests = append(requests, g)
	}
	return requests, rows.Err()
}

// DeleteGenerationRequest removes a request and its questions (via cascade),
// scoped to the owner.
func (db *DB) DeleteGenerationRequest(ctx context.Context, genID, userID uuid.UUID) error {
	result, err := db.pool.Exec(ctx,
		`DELETE FROM generation_requests WHERE id = $1 AND user_id = $2`,
		genID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete generation request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("generation request not found: %s", genID)
	}
	return nil
}

// InsertQuestions persists flattened records for a generation, preserving
// their flattened order via position.
func (db *DB) InsertQuestions(ctx context.Context, genID uuid.UUID, records []generation.QuestionRecord) error {
	batch := &pgx.Batch{}
	for i, rec := range records {
		batch.Queue(
			`INSERT INTO questions (generation_id, question_id, section_title, skill,
			                        question_type, difficulty, question_text, expected_signals, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			genID, rec.ID, rec.SectionTitle, rec.Skill,
			rec.Type, rec.Difficulty, rec.Text, rec.ExpectedSignals, i,
		)
	}

	results := db.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert questions: %w", err)
		}
	}
	return nil
}

// ListQuestions retrieves a generation's questions in flattened order.
func (db *DB) ListQuestions(ctx context.Context, genID uuid.UUID) ([]Question, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, generation_id, question_id, section_title, skill, question_type,
		        difficulty, question_text, expected_signals, generated_answer, position, created_at
		 FROM questions WHERE generation_id = $1 ORDER BY position ASC`,
		genID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.GenerationID, &q.QuestionID, &q.SectionTitle, &q.Skill, &q.QuestionType,
			&q.Difficulty, &q.QuestionText, &q.ExpectedSignals, &q.GeneratedAnswer, &q.Position, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetQuestion retrieves one stored question by its row ID, or nil.
func (db *DB) GetQuestion(ctx context.Context, questionID uuid.UUID) (*Question, error) {
	var q Question
	err := db.pool.QueryRow(ctx,
		`SELECT id, generation_id, question_id, section_title, skill, question_type,
		        difficulty, question_text, expected_signals, generated_answer, position, created_at
		 FROM questions WHERE id = $1`,
		questionID,
	).Scan(&q.ID, &q.GenerationID, &q.QuestionID, &q.SectionTitle, &q.Skill, &q.QuestionType,
		&q.Difficulty, &q.QuestionText, &q.ExpectedSignals, &q.GeneratedAnswer, &q.Position, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &q, nil
}

// SetQuestionAnswer stores a generated model answer on a question.
func (db *DB) SetQuestionAnswer(ctx context.Context, questionID uuid.UUID, answer string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE questions SET generated_answer = $1 WHERE id = $2`,
		answer, questionID,
	)
	if err != nil {
		return fmt.Errorf("failed to set question answer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("question not found: %s", questionID)
	}
	return nil
}
