// Package llm provides a thin client abstraction over the Gemini API with
// classified errors, so callers can branch on failure kind instead of
// string-matching provider messages.
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Sampling holds the sampling configuration for one generation call.
type Sampling struct {
	Temperature     float32
	TopP            float32
	TopK            int32 // 0 leaves the provider default
	MaxOutputTokens int32
	JSONOnly        bool // instruct the provider to emit application/json
}

// Request describes one outbound generation call.
type Request struct {
	Model             string
	SystemInstruction string
	Prompt            string
	Sampling          Sampling
}

// Result is the explicit data contract for a model response.
type Result struct {
	Text         string
	FinishReason string
}

// Client is an abstraction over the model provider.
type Client interface {
	Generate(ctx context.Context, req Request) (*Result, error)
	Close() error
}

// GeminiClient implements Client for Google Gemini.
type GeminiClient struct {
	client  *genai.Client
	timeout time.Duration
}

// NewGeminiClient creates a Gemini client for the given API key. The timeout
// bounds each Generate call; zero means no explicit deadline.
func NewGeminiClient(ctx context.Context, apiKey string, timeout time.Duration) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &CallError{Kind: KindAuth, Message: "API key is required"}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(strings.TrimSpace(apiKey)))
	if err != nil {
		return nil, Classify(err)
	}

	return &GeminiClient{client: client, timeout: timeout}, nil
}

// Generate performs one synchronous generation call. The call is not
// cancellable once issued beyond context expiry.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (*Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := c.client.GenerativeModel(req.Model)
	if req.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemInstruction)},
		}
	}

	model.SetTemperature(req.Sampling.Temperature)
	if req.Sampling.TopP > 0 {
		model.SetTopP(req.Sampling.TopP)
	}
	if req.Sampling.TopK > 0 {
		model.SetTopK(req.Sampling.TopK)
	}
	if req.Sampling.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(req.Sampling.MaxOutputTokens)
	}
	if req.Sampling.JSONOnly {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, Classify(err)
	}

	result, err := extractResult(resp)
	if err != nil {
		return nil, err
	}
	if req.Sampling.JSONOnly {
		result.Text = CleanJSONBlock(result.Text)
	}
	return result, nil
}

// Close releases resources held by the client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractResult converts a provider response into the Result contract.
// Responses with no usable text (safety-blocked or empty) map to KindBlocked.
func extractResult(resp *genai.GenerateContentResponse) (*Result, error) {
	if len(resp.Candidates) == 0 {
		return nil, &CallError{Kind: KindBlocked, Message: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	finish := candidate.FinishReason.String()

	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, &CallError{
			Kind:    KindBlocked,
			Message: "no content in response (finish reason: " + finish + ")",
		}
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return nil, &CallError{
			Kind:    KindBlocked,
			Message: "no text parts in response (finish reason: " + finish + ")",
		}
	}

	return &Result{Text: strings.Join(parts, ""), FinishReason: finish}, nil
}

// CleanJSONBlock strips markdown code fences that models sometimes emit even
// in JSON mode.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
