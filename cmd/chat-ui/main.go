/*
Chat UI - чат на Bubble Tea поверх диспетчера с инструментами.

Реплики сохраняются в sqlite (storage.transcript_path) по имени сессии
и проигрываются в память при следующем запуске с тем же -session.
-sessions печатает сохраненные сессии, -reset начинает сессию заново.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/poncho-assist/internal/ui"
	"github.com/ilkoid/poncho-assist/pkg/agent"
	"github.com/ilkoid/poncho-assist/pkg/app"
	"github.com/ilkoid/poncho-assist/pkg/events"
	"github.com/ilkoid/poncho-assist/pkg/memory"
	"github.com/ilkoid/poncho-assist/pkg/utils"
)

func main() {
	configFlag := flag.String("config", "", "path to config.yaml")
	memoryFlag := flag.String("memory", "", "memory strategy: buffer, window or summary (overrides config)")
	session := flag.String("session", "default", "transcript session id")
	verbose := flag.Bool("verbose", false, "log every tool call and result")
	listSessions := flag.Bool("sessions", false, "list saved sessions and exit")
	reset := flag.Bool("reset", false, "delete the saved transcript of -session before starting")
	flag.Parse()

	opts := runOptions{
		configPath:     *configFlag,
		memoryStrategy: *memoryFlag,
		session:        *session,
		verbose:        *verbose,
		listSessions:   *listSessions,
		reset:          *reset,
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runOptions struct {
	configPath     string
	memoryStrategy string
	session        string
	verbose        bool
	listSessions   bool
	reset          bool
}

func run(opts runOptions) error {
	session := opts.session
	cfg, _, err := app.InitializeConfig(&app.DefaultConfigPathFinder{ConfigFlag: opts.configPath})
	if err != nil {
		return err
	}
	// В TUI лог только в файл, иначе он ломает экран
	if _, err := utils.InitLogger(cfg.App.LogDir, "chat-ui"); err != nil {
		return err
	}
	utils.SetDebug(cfg.App.Debug)
	ctx, shutdown := utils.SetupGracefulShutdown()
	defer shutdown()

	c, err := app.Build(cfg, app.Options{
		Tools:          app.ToolsAll,
		MemoryStrategy: opts.memoryStrategy,
		Verbose:        opts.verbose,
		WithTranscript: true,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	if opts.listSessions {
		if c.Transcript == nil {
			return fmt.Errorf("transcript storage is disabled")
		}
		sessions, err := c.Transcript.Sessions(ctx)
		if err != nil {
			return err
		}
		for _, id := range sessions {
			fmt.Println(id)
		}
		return nil
	}

	var history []memory.Turn
	if c.Transcript != nil {
		if opts.reset {
			if err := c.Transcript.Delete(ctx, session); err != nil {
				return err
			}
			utils.Info("Session reset", "session", session)
		}
		n, err := c.Transcript.Replay(ctx, session, c.Memory)
		if err != nil {
			return fmt.Errorf("replay session %s: %w", session, err)
		}
		entries, err := c.Transcript.Load(ctx, session)
		if err != nil {
			return err
		}
		for _, e := range entries {
			history = append(history, e.Turn)
		}
		utils.Info("Session restored", "session", session, "turns", n)
	}

	emitter := events.NewChanEmitter(64)
	defer emitter.Close()
	c.SetEmitter(emitter)

	model := ui.New(c.Dispatcher, emitter.Subscribe(), ui.Config{
		ModelName: cfg.Models.DefaultChat,
		Session:   session,
		History:   history,
		OnExchange: func(q agent.Query, answer string) {
			if c.Transcript == nil {
				return
			}
			bg := context.Background()
			for _, turn := range []memory.Turn{memory.UserTurn(q.Text), memory.AssistantTurn(answer)} {
				if err := c.Transcript.Append(bg, session, turn); err != nil {
					utils.Error("Transcript append failed", "session", session, "error", err)
				}
			}
		},
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
