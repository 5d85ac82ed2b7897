package llm

import (
	"context"

	"github.com/godyjooce/1win-predictor.01-international4/pkg/llm/providers"

	"go.uber.org/zap"
)

// Client обертка над провайдером с единым логированием
type Client struct {
	provider providers.Provider
	logger   *zap.Logger
}

// Message совместимый тип (переиспользуем из providers)
type Message = providers.Message

// ChatResponse совместимый тип
type ChatResponse = providers.ChatResponse

// Choice совместимый тип
type Choice = providers.Choice

// Usage совместимый тип
type Usage = providers.Usage

// StreamChunk совместимый тип
type StreamChunk = providers.StreamChunk

// ToolCall совместимый тип
type ToolCall = providers.ToolCall

// NewClientWithProvider создает клиент с готовым провайдером
func NewClientWithProvider(provider providers.Provider, logger *zap.Logger) *Client {
	return &Client{
		provider: provider,
		logger:   logger,
	}
}

// ChatCompletion выполняет запрос к LLM (делегирует провайдеру)
func (c *Client) ChatCompletion(ctx context.Context, model string, messages []Message) (*ChatResponse, error) {
	if len(messages) == 0 {
		return nil, ErrEmptyMessages
	}

	c.logger.Debug("Executing chat completion",
		zap.String("provider", c.provider.GetName()),
		zap.String("model", model),
		zap.Int("messages_count", len(messages)),
	)

	return c.provider.ChatCompletion(ctx, model, messages)
}

// ChatCompletionStream выполняет стриминговый запрос к LLM
func (c *Client) ChatCompletionStream(ctx context.Context, model string, messages []Message) (<-chan StreamChunk, error) {
	if len(messages) == 0 {
		return nil, ErrEmptyMessages
	}

	c.logger.Debug("Executing streaming chat completion",
		zap.String("provider", c.provider.GetName()),
		zap.String("model", model),
		zap.Int("messages_count", len(messages)),
	)

	return c.provider.ChatCompletionStream(ctx, model, messages)
}

// GetProviderName возвращает имя используемого провайдера
func (c *Client) GetProviderName() string {
	return c.provider.GetName()
}

// GetSupportedModels возвращает список поддерживаемых моделей провайдера
func (c *Client) GetSupportedModels() []string {
	return c.provider.GetSupportedModels()
}
