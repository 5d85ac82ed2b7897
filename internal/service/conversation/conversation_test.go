package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godyjooce/1win-predictor.01-international4/internal/registry"
	"github.com/godyjooce/1win-predictor.01-international4/internal/service/gate"
	"github.com/godyjooce/1win-predictor.01-international4/internal/service/prompt"
	"github.com/godyjooce/1win-predictor.01-international4/internal/service/stream"
	"github.com/godyjooce/1win-predictor.01-international4/internal/storage/models"
	"github.com/godyjooce/1win-predictor.01-international4/pkg/llm"
	"github.com/godyjooce/1win-predictor.01-international4/pkg/llm/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedProvider отдаёт заранее заданные чанки и считает запросы
type scriptedProvider struct {
	script   []llm.StreamChunk
	holdOpen bool

	mu    sync.Mutex
	calls int
}

func (p *scriptedProvider) GetName() string { return "scripted" }

func (p *scriptedProvider) ChatCompletion(ctx context.Context, model string, messages []providers.Message) (*providers.ChatResponse, error) {
	return nil, errors.New("not implemented")
}

func (p *scriptedProvider) ChatCompletionStream(ctx context.Context, model string, messages []providers.Message) (<-chan providers.StreamChunk, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	out := make(chan providers.StreamChunk)
	go func() {
		defer close(out)
		for _, chunk := range p.script {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if p.holdOpen {
			<-ctx.Done()
		}
	}()
	return out, nil
}

func (p *scriptedProvider) GetSupportedModels() []string { return nil }
func (p *scriptedProvider) ValidateConfig() error        { return nil }

func (p *scriptedProvider) streamCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newTestConversation(t *testing.T, provider providers.Provider) (*Conversation, *gate.State) {
	t.Helper()

	logger := zap.NewNop()
	clients := map[string]*llm.Client{
		"google": llm.NewClientWithProvider(provider, logger),
	}
	prompts := prompt.NewLoader("", "", time.Second, logger)
	dispatcher := stream.NewDispatcher(clients, prompts, logger)
	resolver := registry.NewResolver(func(string) bool { return true }, logger)
	engine := NewEngine(resolver, dispatcher, logger)

	state := gate.NewState("u-test")
	conv := New("conv-1", engine, state, logger)
	conv.SelectModel(registry.ModelDescriptor{
		ID:           "test-model",
		Name:         "Test Model",
		Provider:     "Google Generative AI",
		ProviderID:   "google",
		Enabled:      true,
		ToolCallType: registry.ToolCallNative,
	})
	return conv, state
}

func userMsg(id, content string) models.Message {
	return models.Message{ID: id, Role: models.RoleUser, Content: content}
}

func TestAppendStreamsAssistantReply(t *testing.T) {
	provider := &scriptedProvider{script: []llm.StreamChunk{
		{Content: "Hi"},
		{Content: " there"},
		{Done: true},
	}}
	conv, _ := newTestConversation(t, provider)

	require.NoError(t, conv.Append(context.Background(), userMsg("u-1", "hello")))
	conv.Wait()

	require.NoError(t, conv.Err())
	assert.Equal(t, Idle, conv.Status())

	messages := conv.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, models.RoleAssistant, messages[1].Role)
	// Склеенный контент равен конкатенации чанков в порядке прихода
	assert.Equal(t, "Hi there", messages[1].Content)
}

func TestGateBlocksUnregisteredFollowUp(t *testing.T) {
	provider := &scriptedProvider{script: []llm.StreamChunk{
		{Content: "reply"},
		{Done: true},
	}}
	conv, state := newTestConversation(t, provider)

	// Первое сообщение проходит: пользовательских сообщений ещё нет
	require.NoError(t, conv.Append(context.Background(), userMsg("u-1", "hello")))
	conv.Wait()
	require.Equal(t, 1, provider.streamCalls())

	// Второе блокируется гейтом до какого-либо сетевого вызова
	err := conv.Append(context.Background(), userMsg("u-2", "more"))
	require.ErrorIs(t, err, ErrRegistrationRequired)
	assert.Equal(t, 1, provider.streamCalls())
	assert.Len(t, conv.Messages(), 2)

	// После подтверждения регистрации операция проходит
	state.MarkRegistered()
	require.NoError(t, conv.Append(context.Background(), userMsg("u-2", "more")))
	conv.Wait()
	assert.Equal(t, 2, provider.streamCalls())
}

func TestAppendWhileStreamingRejected(t *testing.T) {
	provider := &scriptedProvider{
		script:   []llm.StreamChunk{{Content: "partial"}},
		holdOpen: true,
	}
	conv, state := newTestConversation(t, provider)
	state.MarkRegistered()

	require.NoError(t, conv.Append(context.Background(), userMsg("u-1", "hello")))

	err := conv.Append(context.Background(), userMsg("u-2", "impatient"))
	require.ErrorIs(t, err, ErrStreamActive)

	conv.Stop()
	conv.Wait()
}

func TestStopRetainsPartialContent(t *testing.T) {
	provider := &scriptedProvider{
		script:   []llm.StreamChunk{{Content: "partial answer"}},
		holdOpen: true,
	}
	conv, _ := newTestConversation(t, provider)

	require.NoError(t, conv.Append(context.Background(), userMsg("u-1", "hello")))

	// Дожидаемся, пока фрагмент доедет до журнала
	require.Eventually(t, func() bool {
		messages := conv.Messages()
		return len(messages) == 2 && messages[1].Content == "partial answer"
	}, 5*time.Second, 10*time.Millisecond)

	conv.Stop()
	conv.Stop() // идемпотентность
	conv.Wait()

	// Остановка — не сбой: частичный ответ остаётся обычным сообщением
	require.NoError(t, conv.Err())
	assert.Equal(t, Idle, conv.Status())

	messages := conv.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "partial answer", messages[1].Content)
}

func TestStopOutsideStreamingIsNoOp(t *testing.T) {
	conv, _ := newTestConversation(t, &scriptedProvider{})

	conv.Stop()
	assert.Equal(t, Idle, conv.Status())
}

func TestEditAndRegenerate(t *testing.T) {
	provider := &scriptedProvider{script: []llm.StreamChunk{
		{Content: "reply"},
		{Done: true},
	}}
	conv, state := newTestConversation(t, provider)
	state.MarkRegistered()

	require.NoError(t, conv.Append(context.Background(), userMsg("u-1", "original")))
	conv.Wait()

	firstReplyID := conv.Messages()[1].ID

	require.NoError(t, conv.EditAndRegenerate(context.Background(), "u-1", "edited"))
	conv.Wait()

	messages := conv.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "edited", messages[0].Content)
	assert.Equal(t, models.RoleAssistant, messages[1].Role)
	// Старый ответ отброшен, сгенерирован новый
	assert.NotEqual(t, firstReplyID, messages[1].ID)
	assert.Equal(t, 2, provider.streamCalls())
}

func TestEditUnknownMessageIsNoOp(t *testing.T) {
	provider := &scriptedProvider{script: []llm.StreamChunk{
		{Content: "reply"},
		{Done: true},
	}}
	conv, state := newTestConversation(t, provider)
	state.MarkRegistered()

	require.NoError(t, conv.Append(context.Background(), userMsg("u-1", "hello")))
	conv.Wait()

	before := conv.Messages()
	require.NoError(t, conv.EditAndRegenerate(context.Background(), "no-such-id", "whatever"))

	assert.Equal(t, before, conv.Messages())
	assert.Equal(t, 1, provider.streamCalls())
	assert.Equal(t, Idle, conv.Status())
}

func TestReloadFromAssistantMessage(t *testing.T) {
	provider := &scriptedProvider{script: []llm.StreamChunk{
		{Content: "reply"},
		{Done: true},
	}}
	conv, state := newTestConversation(t, provider)
	state.MarkRegistered()

	require.NoError(t, conv.Append(context.Background(), userMsg("u-a", "a")))
	conv.Wait()
	require.NoError(t, conv.Append(context.Background(), userMsg("u-c", "c")))
	conv.Wait()

	// Журнал: [user a, assistant b, user c, assistant d]
	before := conv.Messages()
	require.Len(t, before, 4)
	staleReplyID := before[3].ID

	require.NoError(t, conv.ReloadFrom(context.Background(), staleReplyID))
	conv.Wait()

	messages := conv.Messages()
	require.Len(t, messages, 4)
	// Префикс [a, b, c] сохранён, последний ответ перегенерирован
	assert.Equal(t, before[0].ID, messages[0].ID)
	assert.Equal(t, before[1].ID, messages[1].ID)
	assert.Equal(t, before[2].ID, messages[2].ID)
	assert.NotEqual(t, staleReplyID, messages[3].ID)
}

func TestReloadFromUnknownIDResubmitsUnchanged(t *testing.T) {
	provider := &scriptedProvider{script: []llm.StreamChunk{
		{Content: "reply"},
		{Done: true},
	}}
	conv, state := newTestConversation(t, provider)
	state.MarkRegistered()

	require.NoError(t, conv.Append(context.Background(), userMsg("u-1", "hello")))
	conv.Wait()

	before := conv.Messages()
	require.NoError(t, conv.ReloadFrom(context.Background(), "no-such-id"))
	conv.Wait()

	messages := conv.Messages()
	// Журнал не усечён, просто добавлен новый ответ
	require.Len(t, messages, len(before)+1)
	assert.Equal(t, 2, provider.streamCalls())
}

func TestEmptyAssistantReplyDropped(t *testing.T) {
	provider := &scriptedProvider{script: []llm.StreamChunk{{Done: true}}}
	conv, _ := newTestConversation(t, provider)

	require.NoError(t, conv.Append(context.Background(), userMsg("u-1", "hello")))
	conv.Wait()

	messages := conv.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, models.RoleUser, messages[0].Role)
}

func TestStreamErrorRetainsPartialAndSetsErr(t *testing.T) {
	provider := &scriptedProvider{script: []llm.StreamChunk{
		{Content: "partial"},
		{Error: errors.New("backend exploded")},
	}}
	conv, _ := newTestConversation(t, provider)

	require.NoError(t, conv.Append(context.Background(), userMsg("u-1", "hello")))
	conv.Wait()

	require.Error(t, conv.Err())
	assert.Equal(t, Idle, conv.Status())

	messages := conv.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "partial", messages[1].Content)
}

func TestManualModelToolCallLandsInJournal(t *testing.T) {
	provider := &scriptedProvider{script: []llm.StreamChunk{
		{Content: `<tool_call>{"name":"search","arguments":{"q":"go"}}</tool_call>`},
		{Content: "answer"},
		{Done: true},
	}}
	conv, _ := newTestConversation(t, provider)
	conv.SelectModel(registry.DefaultModel())

	require.NoError(t, conv.Append(context.Background(), userMsg("u-1", "hello")))
	conv.Wait()

	messages := conv.Messages()
	var toolMessages, assistantContent int
	for _, m := range messages {
		switch {
		case m.Role == models.RoleTool:
			toolMessages++
			assert.Contains(t, m.Content, "search")
		case m.Role == models.RoleAssistant && m.Content != "":
			assistantContent++
			assert.Equal(t, "answer", m.Content)
		}
	}
	assert.Equal(t, 1, toolMessages)
	assert.Equal(t, 1, assistantContent)
}
