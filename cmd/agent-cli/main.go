/*
Agent CLI - ассистент с инструментами: поиск, погода, OCR, разбор PDF.

Файл прикрепляется последним токеном @path (локальный путь или s3://key):

	> what is written here? @scan.png
	> summarize this document @report.pdf
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ilkoid/poncho-assist/internal/cli"
	"github.com/ilkoid/poncho-assist/pkg/agent"
	"github.com/ilkoid/poncho-assist/pkg/app"
	"github.com/ilkoid/poncho-assist/pkg/events"
	"github.com/ilkoid/poncho-assist/pkg/utils"
)

func main() {
	configFlag := flag.String("config", "", "path to config.yaml (default: auto-discovery, then environment)")
	memoryFlag := flag.String("memory", "", "memory strategy: buffer, window or summary (overrides config)")
	verbose := flag.Bool("verbose", false, "print every tool call and result")
	flag.Parse()

	if err := run(*configFlag, *memoryFlag, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, memoryStrategy string, verbose bool) error {
	cfg, cfgPath, err := app.InitializeConfig(&app.DefaultConfigPathFinder{ConfigFlag: configPath})
	if err != nil {
		return err
	}

	logPath, err := utils.InitLogger(cfg.App.LogDir, "agent-cli")
	if err != nil {
		return err
	}
	utils.SetDebug(cfg.App.Debug)
	ctx, shutdown := utils.SetupGracefulShutdown()
	defer shutdown()
	utils.Info("Starting agent-cli", "config", cfgPath)

	c, err := app.Build(cfg, app.Options{
		Tools:          app.ToolsAll,
		MemoryStrategy: memoryStrategy,
		Verbose:        verbose,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	if verbose {
		c.SetEmitter(events.NewWriterEmitter(os.Stderr))
	}

	fmt.Printf("Poncho Assist | model: %s | tools: %v\n", cfg.Models.DefaultChat, c.Tools.Names())
	fmt.Printf("Log: %s\n", logPath)

	loop := &cli.Loop{
		In:     os.Stdin,
		Out:    os.Stdout,
		Prompt: "\nEnter your question (q to quit, @path attaches a file): ",
		Handler: func(ctx context.Context, line string) string {
			return c.Dispatcher.Answer(ctx, agent.ParseQuery(line))
		},
	}
	return loop.Run(ctx)
}
