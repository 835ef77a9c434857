// Package utils предоставляет файловый логгер для CLI и TUI приложений.
//
// Логгер создаёт .log файл с timestamp в имени, чтобы вывод не мешал
// диалогу в терминале. Внутри: zerolog с ConsoleWriter без цветов.
// Thread-safe.
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logMutex sync.RWMutex
	logger   = zerolog.Nop()
	logFile  *os.File
)

// InitLogger создает .log файл в dir (пусто = текущая директория).
//
// Имя файла: <prefix>-YYYY-MM-DD-HH-MM.log. Возвращает полный путь.
// Повторный вызов не открывает второй файл.
func InitLogger(dir, prefix string) (string, error) {
	logMutex.Lock()
	defer logMutex.Unlock()

	if logFile != nil {
		return logFile.Name(), nil
	}
	if prefix == "" {
		prefix = "poncho"
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create log dir: %w", err)
		}
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.log", prefix, time.Now().Format("2006-01-02-15-04")))
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to open log file: %w", err)
	}

	logFile = f
	logger = newLogger(f)
	logger.Info().Str("file", filename).Msg("Logger initialized")
	return filename, nil
}

// SetOutput направляет лог в произвольный writer (stderr, буфер в тестах).
func SetOutput(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logger = newLogger(w)
}

// SetDebug включает DEBUG уровень.
func SetDebug(enabled bool) {
	if enabled {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func newLogger(w io.Writer) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05",
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// Info - информационное сообщение.
func Info(msg string, keyvals ...any) {
	write(zerolog.InfoLevel, msg, keyvals)
}

// Error - сообщение об ошибке.
func Error(msg string, keyvals ...any) {
	write(zerolog.ErrorLevel, msg, keyvals)
}

// Debug - отладочное сообщение.
func Debug(msg string, keyvals ...any) {
	write(zerolog.DebugLevel, msg, keyvals)
}

// Warn - предупреждение.
func Warn(msg string, keyvals ...any) {
	write(zerolog.WarnLevel, msg, keyvals)
}

func write(level zerolog.Level, msg string, keyvals []any) {
	logMutex.RLock()
	l := logger
	logMutex.RUnlock()

	ev := l.WithLevel(level)
	if ev == nil {
		return
	}
	if len(keyvals) > 0 {
		ev = ev.Fields(keyvals)
	}
	ev.Msg(msg)
}

// Close закрывает лог-файл. Вызывается через defer в main().
func Close() {
	logMutex.Lock()
	defer logMutex.Unlock()

	if logFile != nil {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "[LOGGER WARNING: Close failed: %v]\n", err)
		}
		logFile = nil
	}
	logger = zerolog.Nop()
}
