package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// sseChunk один SSE-чанк OpenAI-совместимого стрима с текстом "x"
const sseChunk = `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":"x"},"finish_reason":null}]}` + "\n\n"

func TestOpenRouterStreamReleasesProducerOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		if !ok {
			return
		}
		// Чанков заметно больше ёмкости буфера, чтобы отправитель
		// гарантированно упёрся в него
		for i := 0; i < 300; i++ {
			if _, err := fmt.Fprint(w, sseChunk); err != nil {
				return
			}
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	provider, err := NewOpenRouterProvider(Config{
		Provider: "openrouter",
		APIKey:   "test-key",
		BaseURL:  srv.URL,
		Timeout:  30 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	before := runtime.NumGoroutine()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunks, err := provider.ChatCompletionStream(ctx, "m", []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	// Потребитель ничего не читает: буфер заполняется и отправитель
	// блокируется на очередном чанке
	require.Eventually(t, func() bool {
		return len(chunks) == cap(chunks)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	// Отмена контекста освобождает горутину-отправителя даже без
	// читателя на другом конце канала
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, 5*time.Second, 10*time.Millisecond)
}
