package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/events"
	"github.com/ilkoid/poncho-assist/pkg/llm"
	"github.com/ilkoid/poncho-assist/pkg/memory"
	"github.com/ilkoid/poncho-assist/pkg/tools"
	"github.com/ilkoid/poncho-assist/pkg/tools/std"
	"github.com/ilkoid/poncho-assist/pkg/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel по очереди отдаёт заготовленные ответы и запоминает,
// какие инструменты ему предложили.
type fakeModel struct {
	mu      sync.Mutex
	steps   []func(messages []llm.Message) llm.Message
	offered [][]string
	calls   int
}

func (f *fakeModel) Generate(_ context.Context, messages []llm.Message, opts ...any) (llm.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string
	for _, opt := range opts {
		if defs, ok := opt.([]tools.ToolDefinition); ok {
			for _, def := range defs {
				names = append(names, def.Name)
			}
		}
	}
	f.offered = append(f.offered, names)

	step := f.steps[min(f.calls, len(f.steps)-1)]
	f.calls++
	return step(messages), nil
}

func callTool(name, args string) func([]llm.Message) llm.Message {
	return func([]llm.Message) llm.Message {
		return llm.Message{
			Role:      llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{{ID: "call_" + name, Name: name, Args: args}},
		}
	}
}

// echoLastTool отвечает содержимым последнего результата инструмента.
func echoLastTool(messages []llm.Message) llm.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleTool {
			return llm.Message{Role: llm.RoleAssistant, Content: "Here is what I found. " + messages[i].Content}
		}
	}
	return llm.Message{Role: llm.RoleAssistant, Content: "no tool result"}
}

func reply(text string) func([]llm.Message) llm.Message {
	return func([]llm.Message) llm.Message {
		return llm.Message{Role: llm.RoleAssistant, Content: text}
	}
}

func TestDispatcher_ParisWeather(t *testing.T) {
	var gotLocation atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLocation.Store(r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{
			"name": "Paris", "sys": {"country": "FR"},
			"weather": [{"main": "Clear", "description": "clear sky"}],
			"main": {"temp": 21.5, "feels_like": 21.0, "temp_min": 19.0, "temp_max": 23.0, "humidity": 40, "pressure": 1020},
			"wind": {"speed": 2.1}, "clouds": {"all": 0}, "cod": 200
		}`))
	}))
	defer srv.Close()

	wc, err := weather.NewFromConfig(config.WeatherConfig{
		APIKey: "owm-key", BaseURL: srv.URL, RateLimit: 6000, BurstLimit: 10, RetryAttempts: 1,
	})
	require.NoError(t, err)

	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(std.NewWeatherTool(wc)))

	model := &fakeModel{steps: []func([]llm.Message) llm.Message{
		callTool("weather", `{"input":"Paris"}`),
		echoLastTool,
	}}
	mem := memory.NewBuffer()
	d := New(model, reg, mem, Config{})

	answer := d.Answer(context.Background(), ParseQuery("What's the weather like in Paris?"))

	assert.Equal(t, "Paris", gotLocation.Load())
	assert.Contains(t, answer, "Paris")
	assert.Regexp(t, `\d`, answer)
	assert.NotContains(t, answer, "An error occurred")

	turns := mem.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, memory.UserTurn("What's the weather like in Paris?"), turns[0])
	assert.Equal(t, llm.RoleAssistant, turns[1].Role)
}

func documentTool(name string, calls *atomic.Int32) *tools.Adapter {
	return tools.NewAdapter(name, "reads a document", func(ctx context.Context, input string) (string, error) {
		calls.Add(1)
		return "document text", nil
	}, tools.WithKind(tools.KindDocument))
}

func TestDispatcher_NoAttachmentNeverInvokesDocumentTools(t *testing.T) {
	var docCalls atomic.Int32
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(tools.NewAdapter("search", "web search", func(ctx context.Context, input string) (string, error) {
		return "result for " + input, nil
	})))
	for _, name := range []string{config.ToolOCR, config.ToolPDFExtractor, config.ToolPDFIngestion} {
		require.NoError(t, reg.Register(documentTool(name, &docCalls)))
	}

	// Модель всё равно просит документные инструменты
	model := &fakeModel{steps: []func([]llm.Message) llm.Message{
		callTool(config.ToolOCR, `{"input":"scan.png"}`),
		callTool(config.ToolPDFIngestion, `{"input":"doc.pdf"}`),
		callTool("search", `{"input":"golang"}`),
		echoLastTool,
	}}
	d := New(model, reg, nil, Config{})

	var results []string
	rec := recorder(func(ev events.Event) {
		if data, ok := ev.Data.(events.ToolResultData); ok {
			results = append(results, data.Result)
		}
	})
	d.SetEmitter(rec)

	answer, err := d.Execute(context.Background(), ParseQuery("what is go?"))
	require.NoError(t, err)
	assert.Contains(t, answer, "result for golang")

	assert.Zero(t, docCalls.Load())
	for _, offered := range model.offered {
		assert.Equal(t, []string{"search"}, offered)
	}
	require.Len(t, results, 3)
	assert.Contains(t, results[0], "Error")
	assert.Contains(t, results[1], "Error")
}

func TestDispatcher_AttachmentOffersDocumentTools(t *testing.T) {
	var docCalls atomic.Int32
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(documentTool(config.ToolPDFIngestion, &docCalls)))

	model := &fakeModel{steps: []func([]llm.Message) llm.Message{
		callTool(config.ToolPDFIngestion, `{"input":"report.pdf"}`),
		echoLastTool,
	}}
	d := New(model, reg, nil, Config{})

	answer, err := d.Execute(context.Background(), ParseQuery("summarize @report.pdf"))
	require.NoError(t, err)
	assert.Contains(t, answer, "document text")
	assert.Equal(t, int32(1), docCalls.Load())
	assert.Equal(t, []string{config.ToolPDFIngestion}, model.offered[0])
}

func TestDispatcher_MaxIterations(t *testing.T) {
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(tools.NewAdapter("search", "web search", func(ctx context.Context, input string) (string, error) {
		return "more", nil
	})))

	model := &fakeModel{steps: []func([]llm.Message) llm.Message{callTool("search", `{"input":"loop"}`)}}
	mem := memory.NewBuffer()
	d := New(model, reg, mem, Config{MaxIterations: 3})

	_, err := d.Execute(context.Background(), ParseQuery("loop forever"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxIterations))
	assert.Equal(t, 3, model.calls)
	assert.Empty(t, mem.Turns(), "failed exchange is not remembered")
}

func TestDispatcher_AnswerConvertsErrors(t *testing.T) {
	failing := llm.ProviderFunc(func(context.Context, []llm.Message, ...any) (llm.Message, error) {
		return llm.Message{}, errors.New("401 unauthorized")
	})
	d := New(failing, nil, nil, Config{})

	answer := d.Answer(context.Background(), ParseQuery("hi"))
	assert.True(t, strings.HasPrefix(answer, "An error occurred: "))
	assert.Contains(t, answer, "401 unauthorized")

	assert.Equal(t, "An error occurred: empty query", d.Answer(context.Background(), ParseQuery("   ")))
}

func TestDispatcher_ToolTimeout(t *testing.T) {
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(tools.NewAdapter("slow", "slow tool", func(ctx context.Context, input string) (string, error) {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return "late", nil
	})))

	model := &fakeModel{steps: []func([]llm.Message) llm.Message{callTool("slow", `{}`), echoLastTool}}
	d := New(model, reg, nil, Config{ToolTimeouts: map[string]time.Duration{"slow": 10 * time.Millisecond}})

	answer, err := d.Execute(context.Background(), ParseQuery("be slow"))
	require.NoError(t, err)
	assert.Contains(t, answer, "exceeded timeout")
}

func TestDispatcher_UsesMemoryHistory(t *testing.T) {
	mem := memory.NewBuffer()
	require.NoError(t, mem.Append(context.Background(), memory.UserTurn("my name is Ann")))
	require.NoError(t, mem.Append(context.Background(), memory.AssistantTurn("Nice to meet you, Ann")))

	var seen []llm.Message
	model := llm.ProviderFunc(func(_ context.Context, messages []llm.Message, _ ...any) (llm.Message, error) {
		seen = messages
		return llm.Message{Role: llm.RoleAssistant, Content: "Your name is Ann."}, nil
	})
	d := New(model, nil, mem, Config{SystemPrompt: "You are a topic expert."})

	answer, err := d.Execute(context.Background(), ParseQuery("what is my name?"))
	require.NoError(t, err)
	assert.Equal(t, "Your name is Ann.", answer)

	require.Len(t, seen, 4)
	assert.Equal(t, "You are a topic expert.", seen[0].Content)
	assert.Equal(t, "my name is Ann", seen[1].Content)
	assert.Contains(t, seen[3].Content, "what is my name?")
	assert.Len(t, mem.Turns(), 4)
}

func TestDispatcher_SummaryMemoryFoldsOncePerExchange(t *testing.T) {
	var chatCalls, summaryCalls atomic.Int32
	chat := llm.ProviderFunc(func(_ context.Context, _ []llm.Message, _ ...any) (llm.Message, error) {
		chatCalls.Add(1)
		return llm.Message{Role: llm.RoleAssistant, Content: "Hello!"}, nil
	})
	summarizer := llm.ProviderFunc(func(_ context.Context, messages []llm.Message, _ ...any) (llm.Message, error) {
		summaryCalls.Add(1)
		return llm.Message{Role: llm.RoleAssistant, Content: "User greeted the assistant."}, nil
	})
	mem := memory.NewSummary(summarizer, memory.SummaryOptions{})
	d := New(chat, nil, mem, Config{PlainPrompt: true})

	assert.Equal(t, "Hello!", d.Answer(context.Background(), NewQuery("hello", "")))
	assert.EqualValues(t, 1, chatCalls.Load())
	assert.EqualValues(t, 1, summaryCalls.Load())
	assert.Equal(t, "User greeted the assistant.", mem.CurrentSummary())
	assert.Len(t, mem.Turns(), 2)
}

func TestDispatcher_PlainPromptSendsTextVerbatim(t *testing.T) {
	var seen []llm.Message
	model := llm.ProviderFunc(func(_ context.Context, messages []llm.Message, opts ...any) (llm.Message, error) {
		seen = messages
		assert.Empty(t, opts, "no tools registered, no definitions offered")
		return llm.Message{Role: llm.RoleAssistant, Content: "Hello!"}, nil
	})
	d := New(model, nil, memory.NewWindow(2), Config{PlainPrompt: true})

	_, err := d.Execute(context.Background(), NewQuery("hi there", ""))
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, "hi there", seen[1].Content)
}

type recorder func(events.Event)

func (r recorder) Emit(_ context.Context, ev events.Event) { r(ev) }
