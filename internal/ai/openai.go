package ai

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const openAIGenericError = "OpenAI API error"

// OpenAIClient implements Generator over chat completions.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIClient(apiKey, model, baseURL string, httpClient *http.Client, logger *zap.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = openai.GPT4o
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger.Named("OpenAIClient"),
	}
}

// Generate sends prompt as a one-turn user conversation.
// Zero choices in a successful response yields "".
func (o *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			msg := apiErr.Message
			if msg == "" {
				msg = openAIGenericError
			}
			o.logger.Warn("OpenAI returned an error", zap.Int("status", apiErr.HTTPStatusCode), zap.String("message", msg))
			return "", &UpstreamError{StatusCode: apiErr.HTTPStatusCode, Message: msg, Err: err}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", &UpstreamError{StatusCode: reqErr.HTTPStatusCode, Message: openAIGenericError, Err: err}
		}
		return "", &UpstreamError{Message: err.Error(), Err: err}
	}

	if len(resp.Choices) == 0 {
		o.logger.Info("OpenAI response has no choices, treating as empty output", zap.Any("usage", resp.Usage))
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
