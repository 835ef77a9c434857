package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ilkoid/poncho-assist/pkg/events"
	"github.com/ilkoid/poncho-assist/pkg/utils"
)

// Config: настройки Recorder.
type Config struct {
	LogsDir string

	// MaxResultSize обрезает результаты инструментов (0 = без ограничений).
	MaxResultSize int
}

// Recorder собирает трейс из событий диспетчера и сохраняет его
// по EventDone или EventError. Потокобезопасен.
type Recorder struct {
	mu    sync.Mutex
	cfg   Config
	trace *Trace
	start time.Time
	last  string // путь последнего сохранённого файла
	seq   int
	now   func() time.Time
}

// NewRecorder создаёт Recorder и директорию для трейсов.
func NewRecorder(cfg Config) (*Recorder, error) {
	if cfg.LogsDir != "" {
		if err := os.MkdirAll(cfg.LogsDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create logs directory: %w", err)
		}
	}
	return &Recorder{cfg: cfg, now: time.Now}, nil
}

// Emit реализует events.Emitter.
func (r *Recorder) Emit(_ context.Context, event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch d := event.Data.(type) {
	case events.ThinkingData:
		if r.trace == nil || d.Iteration == 1 {
			r.begin(d.Query)
		}
		r.trace.Iterations = append(r.trace.Iterations, Iteration{Number: d.Iteration})

	case events.ToolCallData:
		if it := r.current(); it != nil {
			it.Tools = append(it.Tools, ToolExecution{Name: d.ToolName, Input: d.Input})
		}

	case events.ToolResultData:
		r.recordResult(d)

	case events.MessageData:
		if event.Type == events.EventDone && r.trace != nil {
			r.trace.Answer = d.Content
			r.finish()
		}

	case events.ErrorData:
		if r.trace == nil {
			r.begin("")
		}
		r.trace.Error = d.Err.Error()
		r.finish()
	}
}

// LastPath возвращает путь последнего сохранённого трейса.
func (r *Recorder) LastPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Recorder) begin(query string) {
	r.start = r.now()
	r.seq++
	r.trace = &Trace{
		RunID:     fmt.Sprintf("debug_%s_%03d", r.start.Format("20060102_150405"), r.seq),
		Timestamp: r.start,
		Query:     query,
	}
}

func (r *Recorder) current() *Iteration {
	if r.trace == nil || len(r.trace.Iterations) == 0 {
		return nil
	}
	return &r.trace.Iterations[len(r.trace.Iterations)-1]
}

// recordResult дописывает результат к последнему вызову с тем же именем.
func (r *Recorder) recordResult(d events.ToolResultData) {
	it := r.current()
	if it == nil {
		return
	}
	for i := len(it.Tools) - 1; i >= 0; i-- {
		exec := &it.Tools[i]
		if exec.Name != d.ToolName || exec.Duration != 0 || exec.Result != "" {
			continue
		}
		exec.Result = d.Result
		if limit := r.cfg.MaxResultSize; limit > 0 && utf8.RuneCountInString(exec.Result) > limit {
			exec.Result = utils.Truncate(exec.Result, limit)
			exec.ResultTruncated = true
		}
		exec.Duration = d.Duration.Milliseconds()
		exec.Success = !strings.HasPrefix(d.Result, "Error")
		return
	}
}

func (r *Recorder) finish() {
	t := r.trace
	r.trace = nil
	t.Duration = r.now().Sub(r.start).Milliseconds()
	t.Summary = summarize(t)

	path, err := r.write(t)
	if err != nil {
		utils.Error("Failed to save debug trace", "run_id", t.RunID, "error", err)
		return
	}
	r.last = path
	utils.Debug("Debug trace saved", "path", path)
}

func summarize(t *Trace) Summary {
	s := Summary{LLMCalls: len(t.Iterations)}
	visited := make(map[string]struct{})
	for _, it := range t.Iterations {
		for _, exec := range it.Tools {
			s.ToolsExecuted++
			s.ToolDuration += exec.Duration
			visited[exec.Name] = struct{}{}
			if !exec.Success {
				s.Errors = append(s.Errors, fmt.Sprintf("Tool %s: %s", exec.Name, utils.Preview(exec.Result, 200)))
			}
		}
	}
	for name := range visited {
		s.VisitedTools = append(s.VisitedTools, name)
	}
	sort.Strings(s.VisitedTools)
	if t.Error != "" {
		s.Errors = append(s.Errors, t.Error)
	}
	return s
}

func (r *Recorder) write(t *Trace) (string, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal debug trace: %w", err)
	}
	path := filepath.Join(r.cfg.LogsDir, t.RunID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write debug trace: %w", err)
	}
	return path, nil
}

var _ events.Emitter = (*Recorder)(nil)
