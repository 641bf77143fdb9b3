package llm

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

// Kind classifies a model-provider failure into a branchable category.
type Kind string

// Failure kinds surfaced by the provider.
const (
	KindAuth          Kind = "auth"            // invalid or unauthorized API key
	KindQuota         Kind = "quota"           // rate limit or quota exhausted
	KindModelNotFound Kind = "model_not_found" // unknown model identifier
	KindBlocked       Kind = "blocked"         // safety-blocked or empty response
	KindUnclassified  Kind = "unclassified"    // anything that matched no known pattern
)

// CallError is the error type returned for every failed provider call.
type CallError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *CallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("model call failed (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("model call failed (%s): %s", e.Kind, e.Message)
}

func (e *CallError) Unwrap() error {
	return e.Cause
}

// Classify maps a raw provider error onto a CallError. HTTP status codes are
// checked first, then well-known status strings; anything else is
// unclassified rather than dropped.
func Classify(err error) *CallError {
	if err == nil {
		return nil
	}

	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 400, 401, 403:
			return &CallError{Kind: KindAuth, Message: "API key rejected", Cause: err}
		case 404:
			return &CallError{Kind: KindModelNotFound, Message: "model not found", Cause: err}
		case 429:
			return &CallError{Kind: KindQuota, Message: "quota exceeded", Cause: err}
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "API_KEY_INVALID") || strings.Contains(msg, "PERMISSION_DENIED"):
		return &CallError{Kind: KindAuth, Message: "API key rejected", Cause: err}
	case strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return &CallError{Kind: KindQuota, Message: "quota exceeded", Cause: err}
	case strings.Contains(msg, "NOT_FOUND"):
		return &CallError{Kind: KindModelNotFound, Message: "model not found", Cause: err}
	}

	return &CallError{Kind: KindUnclassified, Message: "request failed", Cause: err}
}
