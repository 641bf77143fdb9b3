package llm

import (
	"context"
	"errors"
	"strings"
	"time"
)

// minKeyLength is a structural lower bound; real provider keys are longer.
const minKeyLength = 10

// Probe checks whether an API key is accepted by the provider by issuing a
// minimal generation request. It returns (true, "") for a usable key, and
// (false, reason) otherwise. A model-not-found answer still means the key
// itself was accepted.
func Probe(ctx context.Context, apiKey, model string, timeout time.Duration) (bool, string) {
	if len(strings.TrimSpace(apiKey)) < minKeyLength {
		return false, "malformed API key"
	}

	client, err := NewGeminiClient(ctx, apiKey, timeout)
	if err != nil {
		return false, probeReason(err)
	}
	defer func() { _ = client.Close() }()

	_, err = client.Generate(ctx, Request{
		Model:  model,
		Prompt: "Say 'ok'.",
		Sampling: Sampling{
			Temperature:     0.0,
			MaxOutputTokens: 10,
		},
	})
	if err == nil {
		return true, ""
	}

	var ce *CallError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case KindModelNotFound:
			// The request was authenticated before the model lookup failed.
			return true, "model not found, but key appears valid"
		case KindBlocked:
			// Safety-filtered or empty probe output still proves the key works.
			return true, ""
		}
	}
	return false, probeReason(err)
}

func probeReason(err error) string {
	var ce *CallError
	if !errors.As(err, &ce) {
		return "API test failed: " + err.Error()
	}

	switch ce.Kind {
	case KindAuth:
		return "invalid API key structure or key has been revoked"
	case KindQuota:
		return "API quota exceeded for this key"
	default:
		return "API test failed: " + ce.Error()
	}
}
