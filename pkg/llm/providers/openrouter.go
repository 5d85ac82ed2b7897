package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"go.uber.org/zap"
)

// OpenRouterProvider OpenAI-совместимый доступ к моделям через OpenRouter.
// Поддерживает нативный tool-calling: структурные вызовы приходят в чанках
// с заполненным ToolCall.
type OpenRouterProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	client     *openai.Client
	logger     *zap.Logger
}

func NewOpenRouterProvider(config Config, logger *zap.Logger) (Provider, error) {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://openrouter.ai/api/v1"
	}

	provider := &OpenRouterProvider{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger.With(zap.String("provider", "openrouter")),
	}

	// Initialize OpenAI-compatible client for OpenRouter
	oaClient := openai.NewClient(
		option.WithBaseURL(provider.baseURL),
		option.WithAPIKey(provider.apiKey),
		option.WithHTTPClient(provider.httpClient),
	)
	provider.client = &oaClient

	if err := provider.ValidateConfig(); err != nil {
		return nil, err
	}

	return provider, nil
}

func (p *OpenRouterProvider) GetName() string {
	return "openrouter"
}

func (p *OpenRouterProvider) ValidateConfig() error {
	if p.baseURL == "" {
		return fmt.Errorf("base URL is required for OpenRouter")
	}
	if p.apiKey == "" {
		return fmt.Errorf("API key is required for OpenRouter")
	}
	return nil
}

func (p *OpenRouterProvider) GetSupportedModels() []string {
	return []string{
		"openai/gpt-4o",
		"anthropic/claude-sonnet-4",
		"meta/llama-3.1-8b-instruct:free",
	}
}

func (p *OpenRouterProvider) convertMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	oaMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			oaMessages = append(oaMessages, openai.SystemMessage(msg.Content))
		case "assistant":
			oaMessages = append(oaMessages, openai.AssistantMessage(msg.Content))
		default:
			oaMessages = append(oaMessages, openai.UserMessage(msg.Content))
		}
	}
	return oaMessages
}

func (p *OpenRouterProvider) ChatCompletion(ctx context.Context, model string, messages []Message) (*ChatResponse, error) {
	p.logger.Debug("Sending OpenRouter request",
		zap.String("model", model),
		zap.Int("messages_count", len(messages)),
	)

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    p.convertMessages(messages),
		Temperature: openai.Float(0.6),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get completion: %w", err)
	}

	return p.convertResponse(resp), nil
}

func (p *OpenRouterProvider) ChatCompletionStream(ctx context.Context, model string, messages []Message) (<-chan StreamChunk, error) {
	p.logger.Debug("Sending streaming OpenRouter request",
		zap.String("model", model),
		zap.Int("messages_count", len(messages)),
	)

	stream := p.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    p.convertMessages(messages),
		Temperature: openai.Float(0.6),
	})

	chunks := make(chan StreamChunk, 100)

	go func() {
		defer close(chunks)
		defer stream.Close()

		// Отправка не должна зависнуть навечно на забитом буфере,
		// если потребитель ушёл: отмена контекста прерывает её
		send := func(chunk StreamChunk) bool {
			select {
			case chunks <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		// Терминальный чанк стараемся доставить даже при уже
		// отменённом контексте, если в буфере есть место
		sendTerminal := func(chunk StreamChunk) {
			select {
			case chunks <- chunk:
			default:
				send(chunk)
			}
		}

		acc := openai.ChatCompletionAccumulator{}

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			// Завершённый нативный tool-вызов отдаём структурно
			if tool, ok := acc.JustFinishedToolCall(); ok {
				if !send(StreamChunk{ToolCall: &ToolCall{
					ID:        fmt.Sprintf("call_%d", tool.Index),
					Name:      tool.Name,
					Arguments: tool.Arguments,
				}}) {
					return
				}
			}

			if len(chunk.Choices) > 0 {
				choice := chunk.Choices[0]
				if choice.Delta.Content != "" {
					if !send(StreamChunk{Content: choice.Delta.Content}) {
						return
					}
				}
				if choice.FinishReason != "" {
					sendTerminal(StreamChunk{Done: true})
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			sendTerminal(StreamChunk{Error: fmt.Errorf("stream error: %w", err)})
			return
		}
		sendTerminal(StreamChunk{Done: true})
	}()

	return chunks, nil
}

func (p *OpenRouterProvider) convertResponse(resp *openai.ChatCompletion) *ChatResponse {
	choices := make([]Choice, len(resp.Choices))
	for i, choice := range resp.Choices {
		choices[i] = Choice{
			Index: int(choice.Index),
			Message: Message{
				Role:    "assistant",
				Content: choice.Message.Content,
			},
			FinishReason: choice.FinishReason,
		}
	}

	return &ChatResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Choices: choices,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
}
