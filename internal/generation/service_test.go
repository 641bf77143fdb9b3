package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jd2q/internal/llm"
	"github.com/jonathan/jd2q/internal/prompts"
	"github.com/jonathan/jd2q/internal/vault"
)

// fakeClient returns canned results and records the requests it saw.
type fakeClient struct {
	result   *llm.Result
	err      error
	requests []llm.Request
}

func (f *fakeClient) Generate(_ context.Context, req llm.Request) (*llm.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeClient) Close() error { return nil }

func newTestService(t *testing.T, client llm.Client) (*Service, *vault.Vault) {
	t.Helper()

	secret, err := vault.NewSecret()
	require.NoError(t, err)
	v, err := vault.New(secret)
	require.NoError(t, err)

	store, err := prompts.NewStore()
	require.NoError(t, err)

	svc := NewService(v, store, Config{
		MinQuestions: 5,
		NewClient: func(context.Context, string) (llm.Client, error) {
			return client, nil
		},
	})
	return svc, v
}

func encrypt(t *testing.T, v *vault.Vault, plaintext string) string {
	t.Helper()
	token, err := v.Encrypt(plaintext)
	require.NoError(t, err)
	return token
}

func TestGenerateQuestions_Success(t *testing.T) {
	client := &fakeClient{result: &llm.Result{Text: validResponse}}
	svc, v := newTestService(t, client)
	token := encrypt(t, v, "AIzaSyB1234567890abcdefgh")

	result, outcome, err := svc.GenerateQuestions(context.Background(), "We need a senior Go engineer.", token)
	require.NoError(t, err)

	assert.Equal(t, "Senior", result.RoleLevel)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, result.ExtractedSkills)
	assert.Len(t, result.Sections, 2)
	assert.Equal(t, 5, outcome.TotalQuestions)
	assert.False(t, outcome.Shortfall)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Contains(t, req.Prompt, "We need a senior Go engineer.")
	assert.Contains(t, req.Prompt, "5")
	assert.True(t, req.Sampling.JSONOnly)
	assert.InDelta(t, 0.7, req.Sampling.Temperature, 0.001)
	assert.Equal(t, int32(8192), req.Sampling.MaxOutputTokens)
}

func TestGenerateQuestions_ShortfallAccepted(t *testing.T) {
	client := &fakeClient{result: &llm.Result{Text: validResponse}}
	svc, v := newTestService(t, client)
	svc.minQuestions = 15
	token := encrypt(t, v, "AIzaSyB1234567890abcdefgh")

	_, outcome, err := svc.GenerateQuestions(context.Background(), "jd", token)
	require.NoError(t, err)
	assert.True(t, outcome.Shortfall)
	assert.Equal(t, 5, outcome.TotalQuestions)
}

func TestGenerateQuestions_ShortfallLogsDiagnosticOnly(t *testing.T) {
	client := &fakeClient{result: &llm.Result{Text: validResponse}}

	secret, err := vault.NewSecret()
	require.NoError(t, err)
	v, err := vault.New(secret)
	require.NoError(t, err)
	store, err := prompts.NewStore()
	require.NoError(t, err)

	logger, hook := logtest.NewNullLogger()
	svc := NewService(v, store, Config{
		MinQuestions: 15,
		Logger:       logger,
		NewClient: func(context.Context, string) (llm.Client, error) {
			return client, nil
		},
	})

	result, outcome, err := svc.GenerateQuestions(context.Background(), "jd", encrypt(t, v, "AIzaSyB1234567890abcdefgh"))
	require.NoError(t, err, "an under-target count is a success")
	assert.True(t, outcome.Shortfall)
	assert.NotNil(t, result)

	// The shortfall surfaces only as an operator-facing log line.
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.Entries[0].Level)
	assert.Contains(t, hook.Entries[0].Message, "fewer questions")
}

func TestGenerateQuestions_BadCredential(t *testing.T) {
	client := &fakeClient{result: &llm.Result{Text: validResponse}}
	svc, _ := newTestService(t, client)

	_, _, err := svc.GenerateQuestions(context.Background(), "jd", "not-a-vault-token")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	var decErr *vault.DecryptionError
	assert.ErrorAs(t, err, &decErr)
	assert.Empty(t, client.requests, "no model call on a bad credential")
}

func TestGenerateQuestions_ModelFailure(t *testing.T) {
	quotaErr := &llm.CallError{Kind: llm.KindQuota, Message: "quota exceeded"}
	client := &fakeClient{err: quotaErr}
	svc, v := newTestService(t, client)
	token := encrypt(t, v, "AIzaSyB1234567890abcdefgh")

	_, _, err := svc.GenerateQuestions(context.Background(), "jd", token)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "AIzaS...efgh", genErr.KeyFingerprint)

	var callErr *llm.CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, llm.KindQuota, callErr.Kind)
}

func TestGenerateQuestions_InvalidJSON(t *testing.T) {
	client := &fakeClient{result: &llm.Result{Text: "this is not json"}}
	svc, v := newTestService(t, client)
	token := encrypt(t, v, "AIzaSyB1234567890abcdefgh")

	_, _, err := svc.GenerateQuestions(context.Background(), "jd", token)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, genErr.Message, "invalid JSON")
}

func TestGenerateQuestions_SchemaViolation(t *testing.T) {
	client := &fakeClient{result: &llm.Result{Text: `{"extracted_skills": [], "sections": []}`}}
	svc, v := newTestService(t, client)
	token := encrypt(t, v, "AIzaSyB1234567890abcdefgh")

	_, _, err := svc.GenerateQuestions(context.Background(), "jd", token)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "missing required field: role_level", schemaErr.Message)
}

func TestGenerateAnswer_Success(t *testing.T) {
	client := &fakeClient{result: &llm.Result{Text: "  A goroutine is a lightweight thread.\n"}}
	svc, v := newTestService(t, client)
	token := encrypt(t, v, "AIzaSyB1234567890abcdefgh")

	answer, err := svc.GenerateAnswer(context.Background(), QuestionContext{
		RoleLevel:       "Senior",
		Skill:           "Go",
		Type:            "Conceptual",
		Difficulty:      "Mid",
		Text:            "What is a goroutine?",
		ExpectedSignals: []string{"scheduling", "stack growth"},
	}, token)
	require.NoError(t, err)
	assert.Equal(t, "A goroutine is a lightweight thread.", answer)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Contains(t, req.Prompt, "What is a goroutine?")
	assert.Contains(t, req.Prompt, "- scheduling")
	assert.Contains(t, req.Prompt, "- stack growth")
	assert.False(t, req.Sampling.JSONOnly)
	assert.InDelta(t, 0.8, req.Sampling.Temperature, 0.001)
	assert.Equal(t, int32(1024), req.Sampling.MaxOutputTokens)
}

func TestGenerateAnswer_DefaultsForMissingContext(t *testing.T) {
	client := &fakeClient{result: &llm.Result{Text: "answer"}}
	svc, v := newTestService(t, client)
	token := encrypt(t, v, "AIzaSyB1234567890abcdefgh")

	_, err := svc.GenerateAnswer(context.Background(), QuestionContext{Text: "Question?"}, token)
	require.NoError(t, err)

	req := client.requests[0]
	assert.Contains(t, req.Prompt, "Mid-level")
	assert.Contains(t, req.Prompt, "General")
	assert.Contains(t, req.Prompt, "Conceptual")
}

func TestGenerateAnswer_ClientFactoryFailure(t *testing.T) {
	factoryErr := errors.New("dial failed")
	secret, err := vault.NewSecret()
	require.NoError(t, err)
	v, err := vault.New(secret)
	require.NoError(t, err)
	store, err := prompts.NewStore()
	require.NoError(t, err)

	svc := NewService(v, store, Config{
		NewClient: func(context.Context, string) (llm.Client, error) {
			return nil, factoryErr
		},
	})

	_, err = svc.GenerateAnswer(context.Background(), QuestionContext{Text: "q"}, encrypt(t, v, strings.Repeat("k", 20)))
	var ansErr *AnswerError
	require.ErrorAs(t, err, &ansErr)
	assert.ErrorIs(t, err, factoryErr)
}
