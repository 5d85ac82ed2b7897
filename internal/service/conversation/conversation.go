package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/godyjooce/1win-predictor.01-international4/internal/registry"
	"github.com/godyjooce/1win-predictor.01-international4/internal/service/gate"
	"github.com/godyjooce/1win-predictor.01-international4/internal/service/stream"
	"github.com/godyjooce/1win-predictor.01-international4/internal/storage/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status состояние диалога
type Status int

const (
	Idle Status = iota
	Submitting
	Streaming
)

func (s Status) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Streaming:
		return "streaming"
	default:
		return "idle"
	}
}

var (
	// ErrRegistrationRequired гейт заблокировал операцию: нужно пройти
	// внешнюю верификацию и повторить. Никакого сетевого вызова не было.
	ErrRegistrationRequired = errors.New("registration required before continuing")
	// ErrStreamActive на диалог допустим только один активный стрим
	ErrStreamActive = errors.New("a stream is already active for this conversation")
)

// Submitter запускает стрим для собранной истории. Резолвинг модели
// происходит внутри на каждый вызов.
type Submitter interface {
	Submit(ctx context.Context, messages []models.Message, chatID string, model registry.ModelDescriptor) (*stream.Session, error)
}

// Conversation упорядоченный журнал сообщений одной сессии плюс
// машина состояний Idle -> Submitting -> Streaming -> Idle.
// Журнал только дополняется или усекается с хвоста, никогда не
// переупорядочивается. Терминального состояния нет.
type Conversation struct {
	mu sync.Mutex

	id        string
	messages  []models.Message
	status    Status
	model     registry.ModelDescriptor
	submitter Submitter
	regState  *gate.State
	logger    *zap.Logger

	session *stream.Session
	lastErr error
	drained chan struct{}
}

func New(id string, submitter Submitter, regState *gate.State, logger *zap.Logger) *Conversation {
	if id == "" {
		id = uuid.New().String()
	}
	return &Conversation{
		id:        id,
		status:    Idle,
		model:     registry.DefaultModel(),
		submitter: submitter,
		regState:  regState,
		logger:    logger.With(zap.String("conversation_id", id)),
	}
}

func (c *Conversation) ID() string {
	return c.id
}

func (c *Conversation) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Messages копия журнала в порядке реплик
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Err последняя ошибка стрима (nil после нормального завершения
// или остановки пользователем)
func (c *Conversation) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// SelectModel запоминает клиентский выбор модели. Выбор — подсказка,
// резолвинг всё равно выполняется на каждый submit.
func (c *Conversation) SelectModel(m registry.ModelDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = m
}

// checkGate вызывается под мьютексом перед каждой мутирующей операцией
func (c *Conversation) checkGate() error {
	if gate.Check(c.messages, c.regState) == gate.Blocked {
		c.logger.Info("Operation blocked by registration gate")
		return ErrRegistrationRequired
	}
	return nil
}

// Append добавляет сообщение пользователя и запускает стрим ответа.
// Допустим только из Idle.
func (c *Conversation) Append(ctx context.Context, msg models.Message) error {
	c.mu.Lock()
	if c.status != Idle {
		c.mu.Unlock()
		return ErrStreamActive
	}
	if err := c.checkGate(); err != nil {
		c.mu.Unlock()
		return err
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	c.messages = append(c.messages, msg)
	c.status = Submitting
	c.mu.Unlock()

	return c.submit(ctx)
}

// EditAndRegenerate заменяет содержимое сообщения, отбрасывает всё
// после него и перезапускает генерацию. Неизвестный id — no-op.
// Перед стартом регенерации отредактированное сообщение всегда
// является хвостом журнала.
func (c *Conversation) EditAndRegenerate(ctx context.Context, messageID, newContent string) error {
	c.mu.Lock()
	if c.status != Idle {
		c.mu.Unlock()
		return ErrStreamActive
	}
	if err := c.checkGate(); err != nil {
		c.mu.Unlock()
		return err
	}

	idx := c.indexOf(messageID)
	if idx == -1 {
		c.mu.Unlock()
		return nil
	}

	c.messages[idx].Content = newContent
	c.messages = c.messages[:idx+1]
	c.status = Submitting
	c.mu.Unlock()

	return c.submit(ctx)
}

// ReloadFrom усекает журнал до ближайшего пользовательского сообщения
// на позиции messageID или раньше (включительно) и пересабмитит.
// Если такого сообщения нет — журнал уходит без изменений (защитный
// фолбэк, не ошибка).
func (c *Conversation) ReloadFrom(ctx context.Context, messageID string) error {
	c.mu.Lock()
	if c.status != Idle {
		c.mu.Unlock()
		return ErrStreamActive
	}
	if err := c.checkGate(); err != nil {
		c.mu.Unlock()
		return err
	}

	if idx := c.indexOf(messageID); idx != -1 {
		for i := idx; i >= 0; i-- {
			if c.messages[i].Role == models.RoleUser {
				c.messages = c.messages[:i+1]
				break
			}
		}
	}

	c.status = Submitting
	c.mu.Unlock()

	return c.submit(ctx)
}

// Stop останавливает активный стрим. Идемпотентна: вне Streaming — no-op.
// Полученный к этому моменту частичный ответ остаётся обычным сообщением.
func (c *Conversation) Stop() {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session != nil {
		session.Stop()
	}
}

// Wait блокируется до завершения текущего стрима (для вызывающих,
// которым нужен собранный результат)
func (c *Conversation) Wait() {
	c.mu.Lock()
	drained := c.drained
	c.mu.Unlock()

	if drained != nil {
		<-drained
	}
}

func (c *Conversation) indexOf(messageID string) int {
	for i, m := range c.messages {
		if m.ID == messageID {
			return i
		}
	}
	return -1
}

func (c *Conversation) submit(ctx context.Context) error {
	c.mu.Lock()
	history := make([]models.Message, len(c.messages))
	copy(history, c.messages)
	model := c.model
	c.mu.Unlock()

	session, err := c.submitter.Submit(ctx, history, c.id, model)
	if err != nil {
		c.mu.Lock()
		c.status = Idle
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.session = session
	c.status = Streaming
	c.lastErr = nil
	c.drained = make(chan struct{})
	c.messages = append(c.messages, models.Message{
		ID:        session.MessageID,
		Role:      models.RoleAssistant,
		CreatedAt: time.Now(),
	})
	drained := c.drained
	c.mu.Unlock()

	go c.consume(session, drained)
	return nil
}

// consume дописывает чанки в сообщение ассистента в порядке прихода.
// Склеенный контент равен конкатенации чанков.
func (c *Conversation) consume(session *stream.Session, drained chan struct{}) {
	defer close(drained)

	var failed error

	for ev := range session.Events() {
		switch ev.Type {
		case stream.EventContent:
			c.appendContent(session.MessageID, ev.Content)

		case stream.EventToolCall:
			c.appendToolCall(ev)

		case stream.EventError:
			failed = ev.Err

		case stream.EventDone:
			// терминальное событие, канал закроется следом
		}
	}

	// Терминальная ошибка могла не влезть в буфер событий
	if failed == nil {
		failed = session.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastErr = failed
	c.session = nil
	c.status = Idle
	c.drained = nil

	// Пустое сообщение ассистента после сбоя или мгновенной остановки
	// в журнале не оставляем
	if n := len(c.messages); n > 0 {
		last := c.messages[n-1]
		if last.ID == session.MessageID && last.Role == models.RoleAssistant && last.Content == "" {
			c.messages = c.messages[:n-1]
		}
	}

	if failed != nil {
		c.logger.Warn("Stream ended with error, partial content retained", zap.Error(failed))
	}
}

func (c *Conversation) appendContent(messageID, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].ID == messageID {
			c.messages[i].Content += content
			return
		}
	}
}

func (c *Conversation) appendToolCall(ev stream.Event) {
	if ev.ToolCall == nil {
		return
	}

	payload, err := json.Marshal(ev.ToolCall)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleTool,
		Content:   string(payload),
		CreatedAt: time.Now(),
	})
}
