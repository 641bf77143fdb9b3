package generation

import "fmt"

// SchemaError indicates the model response does not match the expected
// question-set schema. Recoverable: the caller may regenerate.
type SchemaError struct {
	Message string
}

func (e *SchemaError) Error() string {
	return e.Message
}

// GenerationError is the single public error for a failed question
// generation. It carries a non-sensitive fingerprint of the key used so
// operators can tell "wrong key" from "key exhausted" without ever seeing
// the credential.
type GenerationError struct {
	Model          string
	KeyFingerprint string
	Message        string
	Cause          error
}

func (e *GenerationError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.KeyFingerprint != "" {
		return fmt.Sprintf("question generation failed (%s | key %s): %s", e.Model, e.KeyFingerprint, msg)
	}
	return fmt.Sprintf("question generation failed (%s): %s", e.Model, msg)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// AnswerError is the single public error for a failed answer generation.
type AnswerError struct {
	Model   string
	Message string
	Cause   error
}

func (e *AnswerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("answer generation failed (%s): %s: %v", e.Model, e.Message, e.Cause)
	}
	return fmt.Sprintf("answer generation failed (%s): %s", e.Model, e.Message)
}

func (e *AnswerError) Unwrap() error {
	return e.Cause
}

// Fingerprint returns a non-sensitive prefix/suffix form of an API key for
// diagnostics. Keys too short to fingerprint safely are reported as SHORT.
func Fingerprint(key string) string {
	if len(key) <= 10 {
		return "SHORT"
	}
	return key[:5] + "..." + key[len(key)-4:]
}
