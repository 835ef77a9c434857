package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupGracefulShutdown возвращает контекст, который отменяется по
// SIGINT/SIGTERM, и функцию очистки для defer (снимает обработчик и
// закрывает лог).
//
//	ctx, shutdown := utils.SetupGracefulShutdown()
//	defer shutdown()
func SetupGracefulShutdown() (context.Context, func()) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return ctx, func() {
		stop()
		Close()
	}
}
