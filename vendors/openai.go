package vendors

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Octopus-Moneycoach/coaching-ai/config"
	"github.com/Octopus-Moneycoach/coaching-ai/log"
	"github.com/sashabaranov/go-openai"
)

// ErrDisabled is returned by a vendor client whose service is not configured
var ErrDisabled = errors.New("vendor not configured")

var (
	openaiClient     *OpenAIClient
	openaiClientOnce sync.Once
	openaiLogger     = log.GetLogger("OpenAI")
)

// OpenAIConfig holds connection and sampling settings
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// OpenAIClient wraps the OpenAI client. It implements assessment.Completer.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// CompletionOptions holds options for completions
type CompletionOptions struct {
	SystemPrompt string
	Prompt       string
	MaxTokens    int
	Temperature  float32
	JSONMode     bool
}

// CompletionResponse represents a completion response
type CompletionResponse struct {
	Content      string
	FinishReason string
	Usage        struct {
		PromptTokens     int
		CompletionTokens int
		TotalTokens      int
	}
}

// NewOpenAIClient returns nil when no API key is configured
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.APIKey == "" {
		return nil
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" && cfg.BaseURL != "https://api.openai.com/v1" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

// GetOpenAIClient returns the singleton OpenAI client, or nil when disabled
func GetOpenAIClient() *OpenAIClient {
	openaiClientOnce.Do(func() {
		cfg := config.Get()
		openaiClient = NewOpenAIClient(OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			MaxTokens:   cfg.OpenAIMaxTokens,
			Temperature: cfg.OpenAITemperature,
		})
		if openaiClient == nil {
			openaiLogger.Warn().Msg("OPENAI_API_KEY not configured, OpenAI disabled")
			return
		}
		openaiLogger.Info().Str("model", cfg.OpenAIModel).Str("baseURL", cfg.OpenAIBaseURL).Msg("OpenAI initialized")
	})

	return openaiClient
}

// Chat performs a chat completion
func (o *OpenAIClient) Chat(ctx context.Context, opts CompletionOptions) (*CompletionResponse, error) {
	if o == nil {
		return nil, ErrDisabled
	}

	var messages []openai.ChatCompletionMessage
	if opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: opts.Prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       o.cfg.Model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	openaiLogger.Debug().
		Str("model", o.cfg.Model).
		Int("promptLength", len(opts.Prompt)).
		Int("maxTokens", opts.MaxTokens).
		Float32("temperature", opts.Temperature).
		Bool("jsonMode", opts.JSONMode).
		Msg("openai request")

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	out := &CompletionResponse{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
	}
	out.Usage.PromptTokens = resp.Usage.PromptTokens
	out.Usage.CompletionTokens = resp.Usage.CompletionTokens
	out.Usage.TotalTokens = resp.Usage.TotalTokens

	openaiLogger.Debug().
		Str("finishReason", out.FinishReason).
		Int("promptTokens", out.Usage.PromptTokens).
		Int("completionTokens", out.Usage.CompletionTokens).
		Msg("openai response")

	return out, nil
}

// Complete scores one transcript chunk. The reply is returned as-is; a reply
// cut off at max_tokens is still returned so the validator can repair it.
func (o *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if o == nil {
		return "", ErrDisabled
	}

	resp, err := o.Chat(ctx, CompletionOptions{
		SystemPrompt: caseCheckSystemPrompt,
		Prompt:       prompt,
		MaxTokens:    o.cfg.MaxTokens,
		Temperature:  o.cfg.Temperature,
		JSONMode:     true,
	})
	if err != nil {
		return "", err
	}

	if resp.FinishReason == string(openai.FinishReasonLength) {
		openaiLogger.Warn().
			Int("completionTokens", resp.Usage.CompletionTokens).
			Msg("response was truncated due to max_tokens limit")
	}
	return resp.Content, nil
}

// Embed generates embeddings for texts, in input order
func (o *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if o == nil {
		return nil, ErrDisabled
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.AdaEmbeddingV2,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}

	result := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index >= 0 && item.Index < len(result) {
			result[item.Index] = item.Embedding
		}
	}
	return result, nil
}
