package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ai_app_server/config"

	"go.uber.org/zap"
)

// Generator sends a composed prompt to a generative-text service and returns its text.
// Implementations make exactly one attempt per call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrEmptyPrompt is returned before any network I/O when the prompt is empty.
var ErrEmptyPrompt = errors.New("prompt is required")

// UpstreamError is a non-success answer (or no answer) from the generation service.
type UpstreamError struct {
	StatusCode int    // 0 when the request never got a response
	Message    string // upstream error.message, or a generic message
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NewGenerator picks the provider named by cfg.AIProvider.
func NewGenerator(cfg config.Config, logger *zap.Logger) (Generator, error) {
	httpClient := &http.Client{Timeout: cfg.AIRequestTimeout}

	switch strings.ToLower(cfg.AIProvider) {
	case "gemini":
		return NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, httpClient, logger), nil
	case "openai":
		return NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, httpClient, logger), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.AIProvider)
	}
}
