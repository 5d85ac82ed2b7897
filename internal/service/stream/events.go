package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/godyjooce/1win-predictor.01-international4/pkg/llm"
)

// EventType тип события в потоке ответа
type EventType string

const (
	// EventContent очередной фрагмент текста
	EventContent EventType = "content"
	// EventToolCall запрошенный моделью вызов инструмента
	EventToolCall EventType = "tool_call"
	// EventDone нормальное завершение потока
	EventDone EventType = "done"
	// EventError сбой бэкенда. Отличим и от done, и от остановки
	// пользователем (остановка закрывает канал без терминального события).
	EventError EventType = "error"
)

type Event struct {
	Type      EventType     `json:"type"`
	MessageID string        `json:"message_id,omitempty"`
	Content   string        `json:"content,omitempty"`
	ToolCall  *llm.ToolCall `json:"tool_call,omitempty"`
	Err       error         `json:"-"`
}

// Session один стриминговый запрос/ответ. Живёт от принятия запроса
// до завершения, ошибки или отмены потока.
type Session struct {
	MessageID string

	events  chan Event
	cancel  context.CancelFunc
	stopped atomic.Bool
	once    sync.Once

	errMu       sync.Mutex
	terminalErr error
}

func newSession(messageID string, cancel context.CancelFunc) *Session {
	return &Session{
		MessageID: messageID,
		events:    make(chan Event, 100),
		cancel:    cancel,
	}
}

// Events канал событий. Закрывается после терминального события
// или после Stop.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Stop кооперативная остановка. Идемпотентна: повторный вызов — no-op.
// После остановки события не эмитятся, частичный результат считается
// финальным, транспорт освобождается отменой контекста.
func (s *Session) Stop() {
	s.once.Do(func() {
		s.stopped.Store(true)
		s.cancel()
	})
}

// Stopped true, если поток остановлен пользователем
func (s *Session) Stopped() bool {
	return s.stopped.Load()
}

// Err терминальная ошибка стрима. Фиксируется до закрытия канала:
// потребитель обязан проверить её после исчерпания Events, иначе сбой
// с забитым буфером событий неотличим от остановки пользователем.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.terminalErr
}

func (s *Session) setErr(err error) {
	s.errMu.Lock()
	s.terminalErr = err
	s.errMu.Unlock()
}

// emit отправляет событие, если сессия не остановлена.
// Не блокируется навечно: отмена контекста прерывает отправку.
func (s *Session) emit(ctx context.Context, ev Event) bool {
	if s.stopped.Load() {
		return false
	}
	ev.MessageID = s.MessageID
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
