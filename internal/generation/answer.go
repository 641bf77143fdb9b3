package generation

import (
	"context"
	"strings"

	"github.com/jonathan/jd2q/internal/llm"
	"github.com/jonathan/jd2q/internal/prompts"
)

// QuestionContext carries the fields needed to prompt for a model answer.
type QuestionContext struct {
	RoleLevel       string
	Skill           string
	Type            string
	Difficulty      string
	Text            string
	ExpectedSignals []string
}

// GenerateAnswer produces a free-text model answer for one question. The
// answer is opaque prose; no structural validation is performed. Failures
// surface as a single *AnswerError wrapping the cause.
func (s *Service) GenerateAnswer(ctx context.Context, q QuestionContext, encryptedKey string) (string, error) {
	apiKey, err := s.vault.Decrypt(encryptedKey)
	if err != nil {
		return "", &AnswerError{Model: s.model, Message: "credential decryption failed", Cause: err}
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", &AnswerError{Model: s.model, Message: "empty credential"}
	}

	tpl, err := s.store.Load(templateAnswer)
	if err != nil {
		return "", &AnswerError{Model: s.model, Message: "template load failed", Cause: err}
	}

	prompt := prompts.Substitute(tpl.UserTemplate, map[string]string{
		"role_level":       defaultString(q.RoleLevel, "Mid-level"),
		"skill":            defaultString(q.Skill, "General"),
		"question_type":    defaultString(q.Type, "Conceptual"),
		"difficulty":       defaultString(q.Difficulty, "Mid-level"),
		"question_text":    q.Text,
		"expected_signals": renderSignals(q.ExpectedSignals),
	})

	client, err := s.newClient(ctx, apiKey)
	if err != nil {
		return "", &AnswerError{Model: s.model, Message: "client setup failed", Cause: err}
	}
	defer func() { _ = client.Close() }()

	res, err := client.Generate(ctx, llm.Request{
		Model:             s.model,
		SystemInstruction: tpl.SystemInstruction,
		Prompt:            prompt,
		Sampling: llm.Sampling{
			Temperature:     0.8,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		},
	})
	if err != nil {
		return "", &AnswerError{Model: s.model, Message: "model call failed", Cause: err}
	}

	return strings.TrimSpace(res.Text), nil
}

// renderSignals formats expected signals as one bullet per line.
func renderSignals(signals []string) string {
	lines := make([]string, 0, len(signals))
	for _, signal := range signals {
		lines = append(lines, "- "+signal)
	}
	return strings.Join(lines, "\n")
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
