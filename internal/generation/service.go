package generation

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/jd2q/internal/llm"
	"github.com/jonathan/jd2q/internal/prompts"
	"github.com/jonathan/jd2q/internal/vault"
)

// Template names resolved through the prompt store.
const (
	templateStructured = "v1_structured"
	templateAnswer     = "answer_template"
)

// ClientFactory builds a model client for a decrypted API key. Swappable so
// tests can inject a fake provider.
type ClientFactory func(ctx context.Context, apiKey string) (llm.Client, error)

// Config holds orchestrator settings.
type Config struct {
	Model        string
	MinQuestions int
	Timeout      time.Duration
	Logger       *logrus.Logger
	NewClient    ClientFactory
}

// Service coordinates the credential vault, the prompt store, and the model
// client. Calls are fully synchronous; retry policy belongs to the caller.
type Service struct {
	vault        *vault.Vault
	store        *prompts.Store
	model        string
	minQuestions int
	log          *logrus.Logger
	newClient    ClientFactory
}

// NewService creates a Service. Zero-value config fields fall back to
// sensible defaults; the default client factory talks to Gemini.
func NewService(v *vault.Vault, store *prompts.Store, cfg Config) *Service {
	if cfg.Model == "" {
		cfg.Model = "models/gemini-2.5-flash"
	}
	if cfg.MinQuestions < 1 {
		cfg.MinQuestions = 15
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.NewClient == nil {
		timeout := cfg.Timeout
		cfg.NewClient = func(ctx context.Context, apiKey string) (llm.Client, error) {
			return llm.NewGeminiClient(ctx, apiKey, timeout)
		}
	}

	return &Service{
		vault:        v,
		store:        store,
		model:        cfg.Model,
		minQuestions: cfg.MinQuestions,
		log:          cfg.Logger,
		newClient:    cfg.NewClient,
	}
}

// MinQuestions returns the configured soft minimum.
func (s *Service) MinQuestions() int {
	return s.minQuestions
}

// GenerateQuestions produces a structured question set for a job description
// using the credential stored behind encryptedKey. Every failure surfaces as
// a *GenerationError wrapping its cause; the fingerprint of the decrypted key
// (never the key itself) is attached once known.
func (s *Service) GenerateQuestions(ctx context.Context, jobDescription, encryptedKey string) (*StructuredResult, *Outcome, error) {
	apiKey, err := s.vault.Decrypt(encryptedKey)
	if err != nil {
		return nil, nil, &GenerationError{Model: s.model, Message: "credential decryption failed", Cause: err}
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, nil, &GenerationError{Model: s.model, Message: "empty credential"}
	}
	fp := Fingerprint(apiKey)

	tpl, err := s.store.Load(templateStructured)
	if err != nil {
		return nil, nil, &GenerationError{Model: s.model, KeyFingerprint: fp, Message: "template load failed", Cause: err}
	}

	prompt := prompts.Substitute(tpl.UserTemplate, map[string]string{
		"job_description": jobDescription,
		"min_questions":   strconv.Itoa(s.minQuestions),
	})

	client, err := s.newClient(ctx, apiKey)
	if err != nil {
		return nil, nil, &GenerationError{Model: s.model, KeyFingerprint: fp, Message: "client setup failed", Cause: err}
	}
	defer func() { _ = client.Close() }()

	res, err := client.Generate(ctx, llm.Request{
		Model:             s.model,
		SystemInstruction: tpl.SystemInstruction,
		Prompt:            prompt,
		Sampling: llm.Sampling{
			Temperature:     0.7,
			TopP:            0.95,
			TopK:            40,
			MaxOutputTokens: 8192,
			JSONOnly:        true,
		},
	})
	if err != nil {
		return nil, nil, &GenerationError{Model: s.model, KeyFingerprint: fp, Message: "model call failed", Cause: err}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(res.Text), &raw); err != nil {
		return nil, nil, &GenerationError{Model: s.model, KeyFingerprint: fp, Message: "invalid JSON response", Cause: err}
	}

	outcome, err := Validate(raw, tpl.ResponseSchema, s.minQuestions)
	if err != nil {
		return nil, nil, &GenerationError{Model: s.model, KeyFingerprint: fp, Message: "schema validation failed", Cause: err}
	}

	if outcome.Shortfall {
		s.log.WithFields(logrus.Fields{
			"total":     outcome.TotalQuestions,
			"requested": s.minQuestions,
		}).Warn("model generated fewer questions than requested; proceeding with partial result")
	}

	var result StructuredResult
	if err := json.Unmarshal([]byte(res.Text), &result); err != nil {
		return nil, nil, &GenerationError{Model: s.model, KeyFingerprint: fp, Message: "invalid JSON response", Cause: err}
	}
	return &result, outcome, nil
}
