// Package agent связывает модель, инструменты и память диалога.
//
// Dispatcher отправляет запрос модели вместе с определениями
// инструментов, выполняет запрошенные вызовы и возвращает финальный
// ответ. Выбор инструмента и рассуждение целиком на стороне модели.
//
// Basic usage:
//
//	d := agent.New(provider, registry, memory.NewBuffer(), agent.Config{})
//	answer := d.Answer(ctx, agent.ParseQuery("weather in Paris?"))
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/events"
	"github.com/ilkoid/poncho-assist/pkg/llm"
	"github.com/ilkoid/poncho-assist/pkg/memory"
	"github.com/ilkoid/poncho-assist/pkg/tools"
	"github.com/ilkoid/poncho-assist/pkg/utils"
)

const (
	DefaultMaxIterations = 10
	DefaultToolTimeout   = 60 * time.Second
)

var (
	// ErrMaxIterations: модель так и не дала ответ без вызова инструментов.
	ErrMaxIterations = errors.New("max iterations exceeded")

	// ErrEmptyQuery: нет ни текста, ни файла.
	ErrEmptyQuery = errors.New("empty query")
)

// Config: параметры диспетчера. Нулевые значения заменяются дефолтами.
type Config struct {
	Model         string // Переопределение имени модели; пусто = из ModelDef
	MaxIterations int
	Verbose       bool
	ToolTimeout   time.Duration
	ToolTimeouts  map[string]time.Duration
	SystemPrompt  string

	// PlainPrompt отправляет текст запроса как есть, без подсказок
	// по инструментам (чат с памятью без инструментов).
	PlainPrompt bool
}

// Dispatcher выполняет один ход диалога за раз.
//
// Thread-safe: Execute сериализован, emitter можно менять на лету.
type Dispatcher struct {
	provider llm.Provider
	registry *tools.Registry
	memory   memory.Memory
	cfg      Config

	turnMu    sync.Mutex
	emitterMu sync.RWMutex
	emitter   events.Emitter
}

// New создаёт диспетчер. mem может быть nil: тогда история не хранится.
func New(provider llm.Provider, registry *tools.Registry, mem memory.Memory, cfg Config) *Dispatcher {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = DefaultToolTimeout
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if registry == nil {
		registry = tools.NewRegistry()
	}

	return &Dispatcher{
		provider: provider,
		registry: registry,
		memory:   mem,
		cfg:      cfg,
		emitter:  events.Nop{},
	}
}

// SetEmitter подключает получателя событий (UI, лог в консоль).
func (d *Dispatcher) SetEmitter(e events.Emitter) {
	if e == nil {
		e = events.Nop{}
	}
	d.emitterMu.Lock()
	defer d.emitterMu.Unlock()
	d.emitter = e
}

// Memory возвращает память диалога (может быть nil).
func (d *Dispatcher) Memory() memory.Memory {
	return d.memory
}

// Registry возвращает реестр инструментов.
func (d *Dispatcher) Registry() *tools.Registry {
	return d.registry
}

func (d *Dispatcher) emit(ctx context.Context, t events.EventType, data events.EventData) {
	d.emitterMu.RLock()
	e := d.emitter
	d.emitterMu.RUnlock()
	e.Emit(ctx, events.New(t, data))
}

// Answer выполняет запрос и всегда возвращает текст для пользователя.
func (d *Dispatcher) Answer(ctx context.Context, q Query) string {
	answer, err := d.Execute(ctx, q)
	if err != nil {
		utils.Error("Query failed", "query", q.Text, "error", err)
		return fmt.Sprintf("An error occurred: %s", err.Error())
	}
	return answer
}

// Execute отправляет запрос модели и крутит цикл вызова инструментов,
// пока модель не ответит текстом или не кончатся итерации.
// Успешный обмен сохраняется в память.
func (d *Dispatcher) Execute(ctx context.Context, q Query) (string, error) {
	d.turnMu.Lock()
	defer d.turnMu.Unlock()

	if q.Text == "" && !q.HasFile() {
		return "", ErrEmptyQuery
	}
	if d.provider == nil {
		return "", fmt.Errorf("dispatcher has no llm provider")
	}

	utils.Info("Processing query", "query", q.Text, "file", q.FilePath, "file_kind", q.FileKind)

	defs := d.registry.Definitions(offered(q))
	messages := d.buildMessages(q)

	var opts []any
	if len(defs) > 0 {
		opts = append(opts, defs)
	}
	if d.cfg.Model != "" {
		opts = append(opts, llm.WithModel(d.cfg.Model))
	}

	for iter := 1; iter <= d.cfg.MaxIterations; iter++ {
		d.emit(ctx, events.EventThinking, events.ThinkingData{Query: q.Text, Iteration: iter})

		resp, err := d.provider.Generate(ctx, messages, opts...)
		if err != nil {
			d.emit(ctx, events.EventError, events.ErrorData{Err: err})
			return "", fmt.Errorf("llm generation failed (iteration %d): %w", iter, err)
		}
		messages = append(messages, resp)

		if !resp.HasToolCalls() {
			answer := strings.TrimSpace(resp.Content)
			d.remember(ctx, q, answer)
			d.emit(ctx, events.EventMessage, events.MessageData{Content: answer})
			d.emit(ctx, events.EventDone, events.MessageData{Content: answer})
			utils.Info("Query processed", "iterations", iter, "answer_length", len(answer))
			return answer, nil
		}

		for _, tc := range resp.ToolCalls {
			result := d.runTool(ctx, q, tc)
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: tc.ID,
				Content:    result,
			})
		}

		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("query cancelled: %w", err)
		}
	}

	err := fmt.Errorf("%w (%d)", ErrMaxIterations, d.cfg.MaxIterations)
	d.emit(ctx, events.EventError, events.ErrorData{Err: err})
	return "", err
}

// buildMessages: system, история из памяти, текущий запрос.
func (d *Dispatcher) buildMessages(q Query) []llm.Message {
	messages := []llm.Message{llm.NewSystemMessage(d.cfg.SystemPrompt)}
	if d.memory != nil {
		messages = append(messages, d.memory.Messages()...)
	}
	prompt := q.Text
	if !d.cfg.PlainPrompt {
		prompt = BuildPrompt(q, d.registry.Has(config.ToolPDFIngestion))
	}
	return append(messages, llm.NewUserMessage(prompt))
}

// remember сохраняет обмен. Сбой памяти не отменяет уже готовый ответ.
func (d *Dispatcher) remember(ctx context.Context, q Query, answer string) {
	if d.memory == nil {
		return
	}
	if err := d.memory.Append(ctx, memory.UserTurn(q.Text), memory.AssistantTurn(answer)); err != nil {
		utils.Warn("Memory update failed", "error", err)
	}
}

// offered: документные инструменты видны модели только при вложении.
func offered(q Query) func(tools.ToolDefinition) bool {
	return func(def tools.ToolDefinition) bool {
		return q.HasFile() || def.Kind != tools.KindDocument
	}
}

func (d *Dispatcher) timeoutFor(name string) time.Duration {
	if t, ok := d.cfg.ToolTimeouts[name]; ok && t > 0 {
		return t
	}
	return d.cfg.ToolTimeout
}

// runTool выполняет один вызов и всегда возвращает строку для модели.
func (d *Dispatcher) runTool(ctx context.Context, q Query, tc llm.ToolCall) string {
	start := time.Now()
	args := utils.CleanJsonBlock(tc.Args)
	d.emit(ctx, events.EventToolCall, events.ToolCallData{ToolName: tc.Name, Input: tools.ParseInput(args)})

	result := d.invoke(ctx, q, tc.Name, args)
	duration := time.Since(start)

	if d.cfg.Verbose {
		utils.Info("Tool call",
			"tool", tc.Name,
			"args", args,
			"result", utils.Preview(result, 300),
			"duration_ms", duration.Milliseconds())
	}
	d.emit(ctx, events.EventToolResult, events.ToolResultData{ToolName: tc.Name, Result: result, Duration: duration})
	return result
}

func (d *Dispatcher) invoke(ctx context.Context, q Query, name, args string) string {
	tool, err := d.registry.Get(name)
	if err != nil {
		utils.Warn("Model requested unknown tool", "tool", name)
		return fmt.Sprintf("Error: tool %q not found", name)
	}
	if tool.Definition().Kind == tools.KindDocument && !q.HasFile() {
		utils.Warn("Document tool requested without attachment", "tool", name)
		return fmt.Sprintf("Error: tool %q needs an attached file and none was provided", name)
	}

	timeout := d.timeoutFor(name)
	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type execResult struct {
		output string
		err    error
	}
	done := make(chan execResult, 1)
	go func() {
		out, err := tool.Execute(toolCtx, args)
		done <- execResult{out, err}
	}()

	select {
	case <-toolCtx.Done():
		if errors.Is(toolCtx.Err(), context.DeadlineExceeded) {
			utils.Warn("Tool execution timeout", "tool", name, "timeout", timeout)
			return fmt.Sprintf("Error: tool %q exceeded timeout of %v", name, timeout)
		}
		return "Error: tool execution was cancelled"
	case res := <-done:
		if res.err != nil {
			return fmt.Sprintf("Error: %v", res.err)
		}
		return res.output
	}
}
