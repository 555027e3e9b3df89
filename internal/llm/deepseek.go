package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	defaultDeepSeekBaseURL = "https://api.deepseek.com/v1"
	defaultDeepSeekModel   = "deepseek-chat"
)

// DeepSeekClient implements the Client interface for DeepSeek's
// OpenAI-compatible API, always requesting a JSON object reply.
type DeepSeekClient struct {
	client  llms.Model
	model   string
	baseURL string
}

// NewDeepSeekClient creates a DeepSeek client. The key is read from DEEPSEEK_API_KEY.
func NewDeepSeekClient(model, baseURL string) (*DeepSeekClient, error) {
	apiKey := os.Getenv("DEEPSEEK_API_KEY")
	if apiKey == "" {
		return nil, errors.New("DEEPSEEK_API_KEY is not set")
	}
	if model == "" {
		model = defaultDeepSeekModel
	}
	if baseURL == "" {
		baseURL = defaultDeepSeekBaseURL
	}

	client, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
		openai.WithResponseFormat(&openai.ResponseFormat{
			Type: "json_object",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating deepseek client: %w", err)
	}

	return &DeepSeekClient{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Chat sends messages to DeepSeek and returns the response.
func (c *DeepSeekClient) Chat(ctx context.Context, messages []Message) (string, error) {
	return generate(ctx, c.client, messages, llms.WithTemperature(0.5))
}
