// pkg/llm/providers/google.go
package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GoogleProvider провайдер Google Generative AI (genai SDK).
// Нативного tool-calling не использует: tool-вызовы для его моделей
// представляются маркерами в тексте (manual-стратегия диспетчера).
type GoogleProvider struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	client *genai.Client
}

func NewGoogleProvider(config Config, logger *zap.Logger) (Provider, error) {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	p := &GoogleProvider{
		cfg:    config,
		logger: logger.With(zap.String("provider", "google")),
	}

	if err := p.ValidateConfig(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *GoogleProvider) GetName() string {
	return "google"
}

func (p *GoogleProvider) ValidateConfig() error {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return fmt.Errorf("API key is required for Google provider")
	}
	return nil
}

func (p *GoogleProvider) GetSupportedModels() []string {
	return []string{
		"gemini-2.0-flash",
		"gemini-1.5-pro",
		"gemini-1.5-flash",
	}
}

// ensureClient лениво инициализирует genai клиент
func (p *GoogleProvider) ensureClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(p.cfg.APIKey)}
	if strings.TrimSpace(p.cfg.BaseURL) != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(p.cfg.BaseURL, "/")))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	p.client = client
	return client, nil
}

// buildChat раскладывает универсальные сообщения на системную инструкцию,
// историю и последнюю реплику, которую нужно отправить.
func (p *GoogleProvider) buildChat(model *genai.GenerativeModel, messages []Message) (history []*genai.Content, last genai.Part) {
	var systemParts []string

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemParts = append(systemParts, msg.Content)
		case "assistant":
			history = append(history, &genai.Content{
				Role:  "model", // в genai ассистент называется "model"
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		default:
			history = append(history, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}

	if len(systemParts) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(systemParts, "\n\n"))},
		}
	}

	// Последняя реплика уходит как текущее сообщение, остальное — история
	if len(history) > 0 {
		lastContent := history[len(history)-1]
		history = history[:len(history)-1]
		if len(lastContent.Parts) > 0 {
			if t, ok := lastContent.Parts[0].(genai.Text); ok {
				return history, t
			}
		}
	}

	return history, genai.Text("")
}

func (p *GoogleProvider) ChatCompletion(ctx context.Context, modelName string, messages []Message) (*ChatResponse, error) {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(modelName)
	history, last := p.buildChat(model, messages)

	cs := model.StartChat()
	cs.History = history

	p.logger.Debug("Sending Google request",
		zap.String("model", modelName),
		zap.Int("messages_count", len(messages)),
	)

	resp, err := cs.SendMessage(ctx, last)
	if err != nil {
		return nil, fmt.Errorf("failed to get completion: %w", err)
	}

	return p.convertResponse(modelName, resp), nil
}

func (p *GoogleProvider) ChatCompletionStream(ctx context.Context, modelName string, messages []Message) (<-chan StreamChunk, error) {
	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(modelName)
	history, last := p.buildChat(model, messages)

	cs := model.StartChat()
	cs.History = history

	p.logger.Debug("Sending streaming Google request",
		zap.String("model", modelName),
		zap.Int("messages_count", len(messages)),
	)

	iter := cs.SendMessageStream(ctx, last)
	chunks := make(chan StreamChunk, 100)

	go func() {
		defer close(chunks)

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

		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				sendTerminal(StreamChunk{Done: true})
				return
			}
			if err != nil {
				sendTerminal(StreamChunk{Error: fmt.Errorf("stream error: %w", err)})
				return
			}

			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if t, ok := part.(genai.Text); ok && string(t) != "" {
						if !send(StreamChunk{Content: string(t)}) {
							return
						}
					}
				}
			}
		}
	}()

	return chunks, nil
}

func (p *GoogleProvider) convertResponse(modelName string, resp *genai.GenerateContentResponse) *ChatResponse {
	choices := make([]Choice, 0, len(resp.Candidates))

	for i, cand := range resp.Candidates {
		var sb strings.Builder
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					sb.WriteString(string(t))
				}
			}
		}

		choices = append(choices, Choice{
			Index: i,
			Message: Message{
				Role:    "assistant",
				Content: sb.String(),
			},
			FinishReason: fmt.Sprintf("%v", cand.FinishReason),
		})
	}

	out := &ChatResponse{
		ID:      fmt.Sprintf("google-%d", time.Now().Unix()),
		Model:   modelName,
		Choices: choices,
	}

	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return out
}
