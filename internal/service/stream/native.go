package stream

import (
	"context"

	"github.com/godyjooce/1win-predictor.01-international4/pkg/llm"
)

// nativeStrategy стратегия для моделей с нативным tool-calling:
// структурное оформление вызовов делает протокол бэкенда, здесь
// чанки только транслируются в события один к одному.
func nativeStrategy(ctx context.Context, chunks <-chan llm.StreamChunk, s *Session, d *Dispatcher) {
	for chunk := range chunks {
		switch {
		case chunk.Error != nil:
			d.fail(ctx, s, chunk.Error)
			return

		case chunk.Done:
			d.finish(ctx, s)
			return

		case chunk.ToolCall != nil:
			if !s.emit(ctx, Event{Type: EventToolCall, ToolCall: chunk.ToolCall}) {
				return
			}
			d.metrics.RecordChunk()

		case chunk.Content != "":
			if !s.emit(ctx, Event{Type: EventContent, Content: chunk.Content}) {
				return
			}
			d.metrics.RecordChunk()
		}
	}

	// Канал провайдера закрылся без терминального чанка — считаем done
	d.finish(ctx, s)
}
