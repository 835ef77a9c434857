package debug

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/poncho-assist/pkg/events"
)

func emitAll(r *Recorder, evs ...events.Event) {
	for _, e := range evs {
		r.Emit(context.Background(), e)
	}
}

func readTrace(t *testing.T, path string) Trace {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var tr Trace
	require.NoError(t, json.Unmarshal(raw, &tr))
	return tr
}

func TestRecorder_SavesTraceOnDone(t *testing.T) {
	r, err := NewRecorder(Config{LogsDir: t.TempDir(), MaxResultSize: 10})
	require.NoError(t, err)

	emitAll(r,
		events.New(events.EventThinking, events.ThinkingData{Query: "weather in Paris?", Iteration: 1}),
		events.New(events.EventToolCall, events.ToolCallData{ToolName: "weather", Input: "Paris"}),
		events.New(events.EventToolResult, events.ToolResultData{
			ToolName: "weather", Result: "Paris: 18°C, clear sky", Duration: 40 * time.Millisecond,
		}),
		events.New(events.EventToolCall, events.ToolCallData{ToolName: "search", Input: "Paris"}),
		events.New(events.EventToolResult, events.ToolResultData{ToolName: "search", Result: "Error running search: 429"}),
		events.New(events.EventThinking, events.ThinkingData{Query: "weather in Paris?", Iteration: 2}),
		events.New(events.EventDone, events.MessageData{Content: "It is 18°C in Paris."}),
	)

	path := r.LastPath()
	require.NotEmpty(t, path)
	tr := readTrace(t, path)

	assert.Equal(t, "weather in Paris?", tr.Query)
	assert.Equal(t, "It is 18°C in Paris.", tr.Answer)
	require.Len(t, tr.Iterations, 2)
	require.Len(t, tr.Iterations[0].Tools, 2)

	weather := tr.Iterations[0].Tools[0]
	assert.True(t, weather.Success)
	assert.True(t, weather.ResultTruncated)
	assert.Equal(t, "Paris: 18°...[truncated]", weather.Result)
	assert.EqualValues(t, 40, weather.Duration)
	assert.False(t, tr.Iterations[0].Tools[1].Success)

	assert.Equal(t, 2, tr.Summary.LLMCalls)
	assert.Equal(t, 2, tr.Summary.ToolsExecuted)
	assert.Equal(t, []string{"search", "weather"}, tr.Summary.VisitedTools)
	assert.Len(t, tr.Summary.Errors, 1)
}

func TestRecorder_SavesTraceOnError(t *testing.T) {
	r, err := NewRecorder(Config{LogsDir: t.TempDir()})
	require.NoError(t, err)

	emitAll(r,
		events.New(events.EventThinking, events.ThinkingData{Query: "hi", Iteration: 1}),
		events.New(events.EventError, events.ErrorData{Err: errors.New("llm down")}),
	)

	tr := readTrace(t, r.LastPath())
	assert.Equal(t, "llm down", tr.Error)
	assert.Contains(t, tr.Summary.Errors, "llm down")
}

func TestRecorder_SeparateFilesPerQuery(t *testing.T) {
	r, err := NewRecorder(Config{LogsDir: t.TempDir()})
	require.NoError(t, err)

	var paths []string
	for _, q := range []string{"first", "second"} {
		emitAll(r,
			events.New(events.EventThinking, events.ThinkingData{Query: q, Iteration: 1}),
			events.New(events.EventDone, events.MessageData{Content: "ok"}),
		)
		paths = append(paths, r.LastPath())
	}
	assert.NotEqual(t, paths[0], paths[1])
	assert.Equal(t, "second", readTrace(t, paths[1]).Query)
}

func TestRecorder_TruncatesMultibyteResultOnRuneBoundary(t *testing.T) {
	r, err := NewRecorder(Config{LogsDir: t.TempDir(), MaxResultSize: 5})
	require.NoError(t, err)

	emitAll(r,
		events.New(events.EventThinking, events.ThinkingData{Query: "погода", Iteration: 1}),
		events.New(events.EventToolCall, events.ToolCallData{ToolName: "weather", Input: "Москва"}),
		events.New(events.EventToolResult, events.ToolResultData{ToolName: "weather", Result: "Москва: облачно, +3°C"}),
		events.New(events.EventDone, events.MessageData{Content: "ok"}),
	)

	raw, err := os.ReadFile(r.LastPath())
	require.NoError(t, err)
	assert.True(t, utf8.Valid(raw))

	res := readTrace(t, r.LastPath()).Iterations[0].Tools[0].Result
	assert.True(t, utf8.ValidString(res))
	assert.Equal(t, "Москв...[truncated]", res)
}
