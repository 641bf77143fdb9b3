package db

import (
	"time"

	"github.com/google/uuid"
)

// User is an account record. PasswordHash never leaves this package's callers
// in API responses.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// APIKey is a stored credential. EncryptedKey is a vault token; the plaintext
// key is never persisted.
type APIKey struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	KeyName      string    `json:"key_name"`
	EncryptedKey string    `json:"-"`
	UsageCount   int       `json:"usage_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// GenerationRequest tracks one question-generation attempt through its
// pending -> completed|failed lifecycle.
type GenerationRequest struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	APIKeyID        *uuid.UUID `json:"api_key_id,omitempty"`
	JobDescription  string     `json:"job_description"`
	Status          string     `json:"status"`
	RoleLevel       *string    `json:"role_level,omitempty"`
	ExtractedSkills []string   `json:"extracted_skills,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Question is a persisted flattened question. QuestionID is the model's own
// id, unique within its generation only; Position preserves the flattened
// order.
type Question struct {
	ID              uuid.UUID `json:"id"`
	GenerationID    uuid.UUID `json:"generation_id"`
	QuestionID      string    `json:"question_id"`
	SectionTitle    string    `json:"section_title"`
	Skill           string    `json:"skill"`
	QuestionType    string    `json:"question_type"`
	Difficulty      string    `json:"difficulty"`
	QuestionText    string    `json:"question_text"`
	ExpectedSignals []string  `json:"expected_signals"`
	GeneratedAnswer *string   `json:"generated_answer,omitempty"`
	Position        int       `json:"position"`
	CreatedAt       time.Time `json:"created_at"`
}
