package generation

import (
	"fmt"

	"github.com/jonathan/jd2q/internal/prompts"
)

// Outcome reports what the validator accepted. Shortfall marks a response
// with fewer questions than requested; it is an observability signal only
// and never a failure.
type Outcome struct {
	TotalQuestions int
	Shortfall      bool
}

// Validate checks a parsed model response against the template's response
// schema. Checks run in order: required top-level fields (schema declaration
// order decides which missing field is named first), section structure,
// per-question required fields, then total count. Zero questions is the only
// hard quantity failure; a non-zero count below minQuestions is accepted
// with Shortfall set. This two-tier policy is deliberate: shortfalls are
// common and recoverable by regenerating, a zero-question response is not
// worth persisting.
func Validate(response map[string]any, schema prompts.ResponseSchema, minQuestions int) (*Outcome, error) {
	for _, field := range schema.Required {
		if _, ok := response[field]; !ok {
			return nil, &SchemaError{Message: "missing required field: " + field}
		}
	}

	sections, ok := response["sections"].([]any)
	if !ok || len(sections) == 0 {
		return nil, &SchemaError{Message: "response must contain at least one section"}
	}

	total := 0
	for _, raw := range sections {
		section, ok := raw.(map[string]any)
		if !ok {
			return nil, &SchemaError{Message: "section is not an object"}
		}

		title := "Unknown"
		if t, ok := section["title"].(string); ok && t != "" {
			title = t
		}

		rawQuestions, present := section["questions"]
		if !present {
			return nil, &SchemaError{Message: fmt.Sprintf("section %q missing questions", title)}
		}
		questions, ok := rawQuestions.([]any)
		if !ok {
			return nil, &SchemaError{Message: fmt.Sprintf("questions must be a list in section %q", title)}
		}

		total += len(questions)
		for _, q := range questions {
			question, ok := q.(map[string]any)
			if !ok {
				return nil, &SchemaError{Message: fmt.Sprintf("question is not an object in section %q", title)}
			}
			for _, field := range schema.QuestionRequired {
				if _, ok := question[field]; !ok {
					return nil, &SchemaError{Message: "question missing required field: " + field}
				}
			}
		}
	}

	if total < 1 {
		return nil, &SchemaError{Message: "no questions generated"}
	}

	return &Outcome{
		TotalQuestions: total,
		Shortfall:      total < minQuestions,
	}, nil
}
