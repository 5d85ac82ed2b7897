// pkg/llm/providers/interfaces.go
package providers

import (
	"context"
	"time"
)

// Message представляет сообщение в диалоге (универсальный формат)
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolCall структурный вызов инструмента, пришедший из нативного
// протокола провайдера.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // сырой JSON аргументов
}

// ChatResponse представляет ответ от LLM (универсальный формат)
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk чанк потокового ответа. Ровно одно из полей Content/ToolCall
// заполнено у содержательных чанков; Done/Error — терминальные.
type StreamChunk struct {
	Content  string
	ToolCall *ToolCall
	Done     bool
	Error    error
}

// Provider интерфейс LLM-провайдера
type Provider interface {
	// GetName возвращает идентификатор провайдера
	GetName() string

	// ChatCompletion выполняет запрос без стриминга
	ChatCompletion(ctx context.Context, model string, messages []Message) (*ChatResponse, error)

	// ChatCompletionStream выполняет стриминговый запрос. Канал закрывается
	// после терминального чанка; отмена ctx освобождает транспорт.
	ChatCompletionStream(ctx context.Context, model string, messages []Message) (<-chan StreamChunk, error)

	// GetSupportedModels возвращает список поддерживаемых моделей
	GetSupportedModels() []string

	// ValidateConfig проверяет корректность конфигурации
	ValidateConfig() error
}

// Config общая конфигурация для всех провайдеров
type Config struct {
	Provider string        `mapstructure:"provider"`
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Enabled  *bool         `mapstructure:"enabled"` // nil = выводится из наличия ключа
}

// IsEnabled провайдер включён, если задан ключ и нет явного запрета.
func (c Config) IsEnabled() bool {
	if c.Enabled != nil && !*c.Enabled {
		return false
	}
	return c.APIKey != ""
}

// ProviderFactory создает провайдеров
type ProviderFactory interface {
	CreateProvider(config Config) (Provider, error)
	GetSupportedProviders() []string
}
