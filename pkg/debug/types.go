// Package debug записывает трейс обработки запроса в JSON файл.
//
// Recorder подключается к диспетчеру как events.Emitter и собирает
// итерации, вызовы инструментов и финальный ответ. Включается через
// app.debug в config.yaml; файлы кладутся в app.log_dir.
package debug

import "time"

// Trace: трейс одного запроса.
type Trace struct {
	RunID      string      `json:"run_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Query      string      `json:"query"`
	Duration   int64       `json:"duration_ms"`
	Iterations []Iteration `json:"iterations"`
	Summary    Summary     `json:"summary"`
	Answer     string      `json:"answer,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Iteration: один запрос к модели и вызванные по его итогу инструменты.
type Iteration struct {
	Number int             `json:"iteration"`
	Tools  []ToolExecution `json:"tools_executed,omitempty"`
}

// ToolExecution: один вызов инструмента.
type ToolExecution struct {
	Name            string `json:"name"`
	Input           string `json:"input,omitempty"`
	Result          string `json:"result,omitempty"`
	ResultTruncated bool   `json:"result_truncated,omitempty"`
	Duration        int64  `json:"duration_ms"`
	Success         bool   `json:"success"`
}

// Summary: агрегаты по трейсу.
type Summary struct {
	LLMCalls      int      `json:"total_llm_calls"`
	ToolsExecuted int      `json:"total_tools_executed"`
	ToolDuration  int64    `json:"total_tool_duration_ms"`
	VisitedTools  []string `json:"visited_tools,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}
