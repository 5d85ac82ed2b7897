package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/godyjooce/1win-predictor.01-international4/pkg/llm"
)

// Grammar грамматика маркеров tool-вызовов в текстовом потоке.
// Протокол маркеров принадлежит провайдеру модели, поэтому грамматика
// подключаемая, а не зашитая.
type Grammar interface {
	OpenMarker() string
	CloseMarker() string
	// ParseCall разбирает тело между маркерами. Ошибка означает
	// "это не вызов" — текст уйдёт клиенту как есть.
	ParseCall(body string) (*llm.ToolCall, error)
}

// DefaultGrammar маркеры <tool_call>{...json...}</tool_call>
type DefaultGrammar struct{}

func (DefaultGrammar) OpenMarker() string  { return "<tool_call>" }
func (DefaultGrammar) CloseMarker() string { return "</tool_call>" }

func (DefaultGrammar) ParseCall(body string) (*llm.ToolCall, error) {
	var raw struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &raw); err != nil {
		return nil, fmt.Errorf("malformed tool call body: %w", err)
	}
	if raw.Name == "" {
		return nil, fmt.Errorf("tool call without a name")
	}
	return &llm.ToolCall{Name: raw.Name, Arguments: string(raw.Arguments)}, nil
}

// Тело вызова длиннее этого лимита считается не-вызовом и уходит текстом
const maxMarkerBody = 16 * 1024

// markerParser инкрементальный разбор маркеров в потоке чанков.
// Маркер может быть разрезан границей чанка, поэтому хвост, похожий на
// начало маркера, придерживается до следующего чанка. Любой битый или
// незакрытый маркер деградирует до обычного текста — поток не падает.
type markerParser struct {
	grammar Grammar
	emit    func(Event) bool

	buf    strings.Builder
	inCall bool
}

func newMarkerParser(g Grammar, emit func(Event) bool) *markerParser {
	return &markerParser{grammar: g, emit: emit}
}

func (p *markerParser) Feed(text string) bool {
	p.buf.WriteString(text)

	for {
		data := p.buf.String()

		if p.inCall {
			closeIdx := strings.Index(data, p.grammar.CloseMarker())
			if closeIdx == -1 {
				if len(data) > maxMarkerBody {
					// Слишком длинное "тело" — это не вызов
					p.inCall = false
					p.buf.Reset()
					return p.emit(Event{Type: EventContent, Content: p.grammar.OpenMarker() + data})
				}
				return true
			}

			body := data[:closeIdx]
			rest := data[closeIdx+len(p.grammar.CloseMarker()):]
			p.inCall = false
			p.buf.Reset()
			p.buf.WriteString(rest)

			if call, err := p.grammar.ParseCall(body); err == nil {
				if !p.emit(Event{Type: EventToolCall, ToolCall: call}) {
					return false
				}
			} else {
				// Битый маркер — отдаём как текст вместе с тегами
				raw := p.grammar.OpenMarker() + body + p.grammar.CloseMarker()
				if !p.emit(Event{Type: EventContent, Content: raw}) {
					return false
				}
			}
			continue
		}

		openIdx := strings.Index(data, p.grammar.OpenMarker())
		if openIdx >= 0 {
			if openIdx > 0 {
				if !p.emit(Event{Type: EventContent, Content: data[:openIdx]}) {
					return false
				}
			}
			p.inCall = true
			p.buf.Reset()
			p.buf.WriteString(data[openIdx+len(p.grammar.OpenMarker()):])
			continue
		}

		// Придерживаем хвост, который может оказаться началом маркера
		hold := markerPrefixLen(data, p.grammar.OpenMarker())
		flush := data[:len(data)-hold]
		p.buf.Reset()
		p.buf.WriteString(data[len(data)-hold:])

		if flush != "" {
			return p.emit(Event{Type: EventContent, Content: flush})
		}
		return true
	}
}

// Flush сбрасывает остаток буфера в конце потока. Незакрытый маркер
// уходит как обычный текст.
func (p *markerParser) Flush() bool {
	data := p.buf.String()
	p.buf.Reset()

	if p.inCall {
		p.inCall = false
		data = p.grammar.OpenMarker() + data
	}

	if data == "" {
		return true
	}
	return p.emit(Event{Type: EventContent, Content: data})
}

// markerPrefixLen длина максимального суффикса data, являющегося
// собственным префиксом marker
func markerPrefixLen(data, marker string) int {
	max := len(marker) - 1
	if max > len(data) {
		max = len(data)
	}
	for k := max; k > 0; k-- {
		if strings.HasSuffix(data, marker[:k]) {
			return k
		}
	}
	return 0
}

// manualStrategy стратегия для моделей без нативного tool-calling:
// вызовы инструментов вытаскиваются из текста по маркерам грамматики
// диспетчера.
func manualStrategy(ctx context.Context, chunks <-chan llm.StreamChunk, s *Session, d *Dispatcher) {
	parser := newMarkerParser(d.grammar, func(ev Event) bool {
		if !s.emit(ctx, ev) {
			return false
		}
		d.metrics.RecordChunk()
		return true
	})

	for chunk := range chunks {
		switch {
		case chunk.Error != nil:
			d.fail(ctx, s, chunk.Error)
			return

		case chunk.Done:
			if !parser.Flush() {
				return
			}
			d.finish(ctx, s)
			return

		case chunk.Content != "":
			if !parser.Feed(chunk.Content) {
				return
			}
		}
	}

	if !parser.Flush() {
		return
	}
	d.finish(ctx, s)
}
