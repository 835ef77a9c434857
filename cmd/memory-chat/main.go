/*
Memory Chat - диалог без инструментов с выбираемой памятью.

После каждого ответа печатает память так, как её увидит модель:

	memory-chat -memory window
	memory-chat -memory summary
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ilkoid/poncho-assist/internal/cli"
	"github.com/ilkoid/poncho-assist/pkg/agent"
	"github.com/ilkoid/poncho-assist/pkg/app"
	"github.com/ilkoid/poncho-assist/pkg/memory"
	"github.com/ilkoid/poncho-assist/pkg/utils"
)

const systemPrompt = "You are a helpful AI assistant with memory of the conversation."

func main() {
	configFlag := flag.String("config", "", "path to config.yaml")
	memoryFlag := flag.String("memory", "", "memory strategy: buffer, window or summary (overrides config)")
	flag.Parse()

	if err := run(*configFlag, *memoryFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, memoryStrategy string) error {
	cfg, _, err := app.InitializeConfig(&app.DefaultConfigPathFinder{ConfigFlag: configPath})
	if err != nil {
		return err
	}
	if _, err := utils.InitLogger(cfg.App.LogDir, "memory-chat"); err != nil {
		return err
	}
	utils.SetDebug(cfg.App.Debug)
	ctx, shutdown := utils.SetupGracefulShutdown()
	defer shutdown()

	c, err := app.Build(cfg, app.Options{
		MemoryStrategy: memoryStrategy,
		SystemPrompt:   systemPrompt,
		PlainPrompt:    true,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Printf("Chat started with %s memory! (Type 'quit' to exit)\n", cfg.Memory.Strategy)

	loop := &cli.Loop{
		In:     os.Stdin,
		Out:    os.Stdout,
		Prompt: "\nYou: ",
		Handler: func(ctx context.Context, line string) string {
			return c.Dispatcher.Answer(ctx, agent.NewQuery(line, ""))
		},
		AfterAnswer: func(w io.Writer) {
			fmt.Fprintf(w, "\nCurrent Memory:\n%s\n", memory.Format(c.Memory))
		},
	}
	return loop.Run(ctx)
}
