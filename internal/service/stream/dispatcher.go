package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godyjooce/1win-predictor.01-international4/internal/registry"
	"github.com/godyjooce/1win-predictor.01-international4/internal/service/prompt"
	"github.com/godyjooce/1win-predictor.01-international4/internal/storage/models"
	"github.com/godyjooce/1win-predictor.01-international4/pkg/llm"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyMessages     = errors.New("messages array cannot be empty")
	ErrProviderNotWired  = errors.New("no client configured for provider")
	ErrStrategyNotStored = errors.New("no strategy registered for tool call type")
)

// Request один запрос на стриминговый ответ
type Request struct {
	Messages []models.Message
	Model    registry.ModelDescriptor
	ChatID   string
}

// StrategyFunc превращает чанки провайдера в события сессии.
// Терминальные чанки (Done/Error) обрабатывает сама стратегия.
type StrategyFunc func(ctx context.Context, chunks <-chan llm.StreamChunk, s *Session, d *Dispatcher)

// Dispatcher выбирает стратегию стриминга по дескриптору модели и
// отдаёт инкрементальный поток событий. Стратегии лежат в таблице по
// ToolCallType: третья стратегия — одна строчка регистрации, не иерархия.
type Dispatcher struct {
	clients    map[string]*llm.Client // providerID -> клиент
	strategies map[registry.ToolCallType]StrategyFunc
	grammar    Grammar // маркеры tool-вызовов для manual-стратегии
	prompts    *prompt.Loader
	metrics    *Metrics
	searchMode bool // в этом деплое поиск жёстко выключен
	logger     *zap.Logger
}

func NewDispatcher(clients map[string]*llm.Client, prompts *prompt.Loader, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		clients:    clients,
		strategies: make(map[registry.ToolCallType]StrategyFunc),
		grammar:    DefaultGrammar{},
		prompts:    prompts,
		metrics:    NewMetrics(),
		searchMode: false,
		logger:     logger,
	}

	d.RegisterStrategy(registry.ToolCallNative, nativeStrategy)
	d.RegisterStrategy(registry.ToolCallManual, manualStrategy)

	return d
}

// RegisterStrategy регистрирует стратегию для типа tool-calling
func (d *Dispatcher) RegisterStrategy(t registry.ToolCallType, fn StrategyFunc) {
	d.strategies[t] = fn
}

// SetGrammar меняет грамматику маркеров manual-стратегии.
// Протокол маркеров принадлежит провайдеру модели, поэтому он
// настраивается, а не зашит. Вызывать до первого Dispatch.
func (d *Dispatcher) SetGrammar(g Grammar) {
	d.grammar = g
}

// Metrics счётчики диспетчера
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// Dispatch валидирует запрос, выбирает стратегию и начинает стрим.
// Пустой батч отклоняется до какого-либо обращения к модели.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Session, error) {
	if len(req.Messages) == 0 {
		return nil, ErrEmptyMessages
	}

	client, ok := d.clients[req.Model.ProviderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotWired, req.Model.ProviderID)
	}

	strategy, ok := d.strategies[req.Model.ToolCallType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotStored, req.Model.ToolCallType)
	}

	sctx, cancel := context.WithCancel(ctx)
	session := newSession(uuid.New().String(), cancel)

	d.metrics.RecordStart()
	d.logger.Info("Dispatching stream",
		zap.String("chat_id", req.ChatID),
		zap.String("model", req.Model.ID),
		zap.String("provider", req.Model.ProviderID),
		zap.String("strategy", string(req.Model.ToolCallType)),
		zap.Int("messages_count", len(req.Messages)),
	)

	go d.run(sctx, session, client, strategy, req)

	return session, nil
}

func (d *Dispatcher) run(ctx context.Context, s *Session, client *llm.Client, strategy StrategyFunc, req Request) {
	defer s.cancel()
	defer close(s.events)

	start := time.Now()
	messages := d.buildMessages(ctx, req.Messages)

	chunks, err := client.ChatCompletionStream(ctx, req.Model.ID, messages)
	if err != nil {
		d.fail(ctx, s, fmt.Errorf("failed to start stream: %w", err))
		return
	}

	strategy(ctx, chunks, s, d)

	d.logger.Debug("Stream finished",
		zap.String("chat_id", req.ChatID),
		zap.String("message_id", s.MessageID),
		zap.Bool("stopped", s.Stopped()),
		zap.Duration("duration", time.Since(start)),
	)
}

// buildMessages ставит системный промпт перед историей диалога
func (d *Dispatcher) buildMessages(ctx context.Context, history []models.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history)+1)
	out = append(out, llm.Message{
		Role:    models.RoleSystem,
		Content: d.prompts.System(ctx, d.searchMode),
	})

	for _, m := range history {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}

	return out
}

// fail эмитит терминальную ошибку, если поток не был остановлен
// пользователем. Остановка не считается сбоем.
func (d *Dispatcher) fail(ctx context.Context, s *Session, err error) {
	if s.Stopped() || errors.Is(err, context.Canceled) {
		d.metrics.RecordStopped()
		return
	}

	d.metrics.RecordFailed()
	d.logger.Error("Stream failed", zap.String("message_id", s.MessageID), zap.Error(err))

	// Ошибка фиксируется на сессии до закрытия канала: если буфер событий
	// забит медленным потребителем, событие не влезет, но сбой всё равно
	// останется отличим от остановки пользователем через Session.Err.
	s.setErr(err)

	// Отправляем напрямую, минуя emit: терминальная ошибка должна уйти
	// даже при отменённом контексте (например, по таймауту).
	select {
	case s.events <- Event{Type: EventError, MessageID: s.MessageID, Err: err}:
	default:
	}
}

func (d *Dispatcher) finish(ctx context.Context, s *Session) {
	if s.emit(ctx, Event{Type: EventDone}) {
		d.metrics.RecordCompleted()
	} else {
		d.metrics.RecordStopped()
	}
}
