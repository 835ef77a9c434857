// Package app собирает компоненты приложения из конфигурации.
//
// Глобальных синглтонов нет: Build возвращает Components, которые
// утилиты (cmd/*) передают дальше явно.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilkoid/poncho-assist/pkg/agent"
	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/debug"
	"github.com/ilkoid/poncho-assist/pkg/events"
	"github.com/ilkoid/poncho-assist/pkg/extract"
	"github.com/ilkoid/poncho-assist/pkg/llm"
	"github.com/ilkoid/poncho-assist/pkg/memory"
	"github.com/ilkoid/poncho-assist/pkg/models"
	"github.com/ilkoid/poncho-assist/pkg/s3storage"
	"github.com/ilkoid/poncho-assist/pkg/tools"
	"github.com/ilkoid/poncho-assist/pkg/tools/std"
	"github.com/ilkoid/poncho-assist/pkg/transcript"
	"github.com/ilkoid/poncho-assist/pkg/utils"
)

// Components содержит всё, что нужно утилите для работы.
type Components struct {
	Config     *config.AppConfig
	Models     *models.Registry
	Chat       llm.Provider
	Tools      *tools.Registry
	Memory     memory.Memory
	Files      *std.FileResolver
	Storage    *s3storage.Client // nil, если s3.enabled = false
	Transcript *transcript.Store // nil, если storage.transcript_path пуст
	Debug      *debug.Recorder   // nil, если app.debug = false
	Dispatcher *agent.Dispatcher
}

// Options: то, чем утилиты отличаются друг от друга.
type Options struct {
	Tools          ToolSet
	MemoryStrategy string // переопределяет memory.strategy (флаг -memory)
	Verbose        bool
	WithTranscript bool
	SystemPrompt   string // переопределяет app.system_prompt
	PlainPrompt    bool
}

// Build создаёт и связывает все компоненты.
func Build(cfg *config.AppConfig, opts Options) (*Components, error) {
	if opts.MemoryStrategy != "" {
		cfg.Memory.Strategy = opts.MemoryStrategy
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if opts.Tools != 0 {
		if err := cfg.ValidateTools(); err != nil {
			return nil, err
		}
	}
	utils.Info("Initializing components",
		"tool_set", opts.Tools,
		"memory", cfg.Memory.Strategy,
		"s3", cfg.S3.Enabled)

	c := &Components{Config: cfg}

	// 1. Модели
	reg, err := models.NewRegistryFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build model registry: %w", err)
	}
	c.Models = reg

	chat, _, err := reg.For(models.RoleChat)
	if err != nil {
		return nil, err
	}
	c.Chat = chat

	// 2. S3 (опционально)
	var storage s3storage.Storage
	if cfg.S3.Enabled {
		s3Client, err := s3storage.New(cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		c.Storage = s3Client
		storage = s3Client
		utils.Info("S3 client initialized", "bucket", cfg.S3.Bucket)
	}
	c.Files = std.NewFileResolver(storage)

	// 3. Инструменты
	c.Tools = tools.NewRegistry()
	if err := SetupTools(c.Tools, cfg, reg, c.Files, opts.Tools); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	// 4. Память
	summaryProvider, _, err := reg.For(models.RoleSummary)
	if err != nil {
		return nil, err
	}
	mem, err := memory.New(cfg.Memory, summaryProvider, memory.SummaryOptions{})
	if err != nil {
		return nil, err
	}
	c.Memory = mem

	// 5. Транскрипт
	if opts.WithTranscript && cfg.Storage.TranscriptPath != "" {
		store, err := transcript.Open(cfg.Storage.TranscriptPath)
		if err != nil {
			return nil, err
		}
		c.Transcript = store
	}

	// 6. Диспетчер
	systemPrompt := cfg.App.SystemPrompt
	if opts.SystemPrompt != "" {
		systemPrompt = opts.SystemPrompt
	}
	c.Dispatcher = agent.New(chat, c.Tools, mem, agent.Config{
		MaxIterations: cfg.App.MaxIterations,
		Verbose:       opts.Verbose || cfg.App.Verbose,
		ToolTimeouts:  toolTimeouts(cfg, c.Tools),
		SystemPrompt:  systemPrompt,
		PlainPrompt:   opts.PlainPrompt,
	})

	// 7. Трейсы запросов
	if cfg.App.Debug {
		rec, err := debug.NewRecorder(debug.Config{LogsDir: cfg.App.LogDir, MaxResultSize: 4000})
		if err != nil {
			return nil, err
		}
		c.Debug = rec
	}
	c.SetEmitter()

	utils.Info("Components initialized",
		"tools", c.Tools.Names(),
		"models", reg.ListNames())
	return c, nil
}

// SetEmitter подключает получателей событий диспетчера. Recorder
// трейсов (app.debug) остаётся подключённым всегда.
func (c *Components) SetEmitter(extra ...events.Emitter) {
	var all events.Multi
	if c.Debug != nil {
		all = append(all, c.Debug)
	}
	all = append(all, extra...)
	c.Dispatcher.SetEmitter(all)
}

// ExtractOptions: настройки извлечения из конфигурации.
func ExtractOptions(cfg *config.AppConfig) extract.Options {
	return extract.Options{
		ExtractImages: cfg.Extraction.ExtractImages,
		OutputDir:     cfg.Extraction.OutputDir,
	}
}

func toolTimeouts(cfg *config.AppConfig, reg *tools.Registry) map[string]time.Duration {
	out := make(map[string]time.Duration)
	for _, name := range reg.Names() {
		if t := cfg.ToolTimeout(name); t > 0 {
			out[name] = t
		}
	}
	return out
}

// Close освобождает ресурсы: транскрипт и скачанные из S3 файлы.
func (c *Components) Close() error {
	var errs []error
	if c.Transcript != nil {
		errs = append(errs, c.Transcript.Close())
	}
	if c.Files != nil {
		errs = append(errs, c.Files.Cleanup())
	}
	return errors.Join(errs...)
}
