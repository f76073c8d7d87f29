package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"policy-rag/internal/config"
)

// ErrEmptyResponse is returned when the model answers with no text
var ErrEmptyResponse = errors.New("empty response from language model")

// Generator sends one assembled prompt to a hosted chat model
type Generator struct {
	model llms.Model
	cfg   config.LLMConfig
}

// NewGenerator builds an OpenAI compatible generator from config
func NewGenerator(llmConfig *config.LLMConfig) (*Generator, error) {
	l := log.Debug().
		Str("base_url", llmConfig.BaseURL).
		Str("model", llmConfig.Model).
		Int("max_tokens", llmConfig.MaxTokens)
	if llmConfig.Temperature != nil {
		l = l.Float64("temperature", *llmConfig.Temperature)
	}
	l.Msg("Creating generator")

	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing openai client: %w", err)
	}
	return NewGeneratorWithModel(llm, llmConfig), nil
}

// NewGeneratorWithModel wraps an existing langchaingo model
func NewGeneratorWithModel(model llms.Model, llmConfig *config.LLMConfig) *Generator {
	return &Generator{model: model, cfg: *llmConfig}
}

// Generate returns the model's answer to prompt
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	res, err := GenerateContent(ctx, g.model, &g.cfg, nil, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	answer := strings.TrimSpace(res.Choices[0].Content)
	if answer == "" {
		return "", ErrEmptyResponse
	}
	return answer, nil
}

// call llm
func GenerateContent(ctx context.Context, llm llms.Model, llmConfig *config.LLMConfig, tools []llms.Tool, messages []llms.MessageContent) (*llms.ContentResponse, error) {
	opts := []llms.CallOption{}
	if llmConfig.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*llmConfig.Temperature))
	}
	if llmConfig.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(llmConfig.MaxTokens))
	}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}
	return llm.GenerateContent(ctx, messages, opts...)
}
