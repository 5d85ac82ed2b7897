package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectParser() (*markerParser, *[]Event) {
	var events []Event
	p := newMarkerParser(DefaultGrammar{}, func(ev Event) bool {
		events = append(events, ev)
		return true
	})
	return p, &events
}

func joinedContent(events []Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Type == EventContent {
			b.WriteString(ev.Content)
		}
	}
	return b.String()
}

func TestMarkerParserPlainText(t *testing.T) {
	p, events := collectParser()

	require.True(t, p.Feed("hello "))
	require.True(t, p.Feed("world"))
	require.True(t, p.Flush())

	assert.Equal(t, "hello world", joinedContent(*events))
	for _, ev := range *events {
		assert.Equal(t, EventContent, ev.Type)
	}
}

func TestMarkerParserWellFormedCall(t *testing.T) {
	p, events := collectParser()

	require.True(t, p.Feed(`before <tool_call>{"name":"search","arguments":{"q":"go"}}</tool_call> after`))
	require.True(t, p.Flush())

	assert.Equal(t, "before  after", joinedContent(*events))

	var calls []Event
	for _, ev := range *events {
		if ev.Type == EventToolCall {
			calls = append(calls, ev)
		}
	}
	require.Len(t, calls, 1)
	assert.Equal(t, "search", calls[0].ToolCall.Name)
	assert.JSONEq(t, `{"q":"go"}`, calls[0].ToolCall.Arguments)
}

func TestMarkerParserCallSplitAcrossChunks(t *testing.T) {
	p, events := collectParser()

	// Маркеры и тело нарезаны произвольными границами чанков
	for _, chunk := range []string{"text <tool", "_call>{\"name\":\"calc\",", "\"arguments\":{}}</tool", "_call> done"} {
		require.True(t, p.Feed(chunk))
	}
	require.True(t, p.Flush())

	assert.Equal(t, "text  done", joinedContent(*events))

	var gotCall bool
	for _, ev := range *events {
		if ev.Type == EventToolCall {
			gotCall = true
			assert.Equal(t, "calc", ev.ToolCall.Name)
		}
	}
	assert.True(t, gotCall)
}

func TestMarkerParserHoldsBackMarkerPrefix(t *testing.T) {
	p, events := collectParser()

	// Хвост "<tool" может оказаться началом маркера и не должен уйти клиенту
	require.True(t, p.Feed("abc <tool"))
	assert.Equal(t, "abc ", joinedContent(*events))

	// Оказался обычным текстом
	require.True(t, p.Feed("box>"))
	require.True(t, p.Flush())
	assert.Equal(t, "abc <toolbox>", joinedContent(*events))
}

func TestMarkerParserMalformedBodyDegradesToText(t *testing.T) {
	p, events := collectParser()

	require.True(t, p.Feed("<tool_call>not json at all</tool_call>"))
	require.True(t, p.Flush())

	assert.Equal(t, "<tool_call>not json at all</tool_call>", joinedContent(*events))
	for _, ev := range *events {
		assert.Equal(t, EventContent, ev.Type)
	}
}

func TestMarkerParserBodyWithoutNameDegradesToText(t *testing.T) {
	p, events := collectParser()

	require.True(t, p.Feed(`<tool_call>{"arguments":{}}</tool_call>`))
	require.True(t, p.Flush())

	assert.Equal(t, `<tool_call>{"arguments":{}}</tool_call>`, joinedContent(*events))
}

func TestMarkerParserUnterminatedCallFlushesAsText(t *testing.T) {
	p, events := collectParser()

	require.True(t, p.Feed(`<tool_call>{"name":"search"`))
	require.True(t, p.Flush())

	assert.Equal(t, `<tool_call>{"name":"search"`, joinedContent(*events))
}

func TestMarkerParserOversizedBodyDegradesToText(t *testing.T) {
	p, events := collectParser()

	big := strings.Repeat("x", maxMarkerBody+1)
	require.True(t, p.Feed("<tool_call>" + big))

	got := joinedContent(*events)
	assert.True(t, strings.HasPrefix(got, "<tool_call>x"))
	assert.Contains(t, got, big[:100])
}

func TestMarkerParserTwoCallsInOneChunk(t *testing.T) {
	p, events := collectParser()

	require.True(t, p.Feed(`<tool_call>{"name":"a","arguments":{}}</tool_call><tool_call>{"name":"b","arguments":{}}</tool_call>`))
	require.True(t, p.Flush())

	var names []string
	for _, ev := range *events {
		if ev.Type == EventToolCall {
			names = append(names, ev.ToolCall.Name)
		}
	}
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestMarkerPrefixLen(t *testing.T) {
	marker := "<tool_call>"

	assert.Equal(t, 0, markerPrefixLen("plain text", marker))
	assert.Equal(t, 5, markerPrefixLen("abc <tool", marker))
	assert.Equal(t, 1, markerPrefixLen("abc <", marker))
	// Полный маркер не придерживается, он обрабатывается раньше
	assert.Equal(t, 0, markerPrefixLen("abc", marker))
}
