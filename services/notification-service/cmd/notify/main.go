package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jesuscorral/ticketwave/pkg/bus"
	"github.com/jesuscorral/ticketwave/pkg/config"
	"github.com/jesuscorral/ticketwave/pkg/logging"
	"github.com/jesuscorral/ticketwave/pkg/obs"
	"github.com/jesuscorral/ticketwave/services/notification-service/internal/notifier"
	"github.com/jesuscorral/ticketwave/services/notification-service/internal/worker"
)

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())
	cfg.Bus.Source = "notification-service"
	logger := logging.New("notification-service", cfg.Env)

	shutdownTracer := obs.InitTracer("notification-service")
	defer func() { _ = shutdownTracer(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := must(bus.Connect(ctx, cfg.Bus, logger))
	defer b.Close()

	cons := worker.NewConsumer(notifier.NewConsole(logger), logger)
	must(0, cons.Register(ctx, b))
	logger.Info().Msg("notification consumers registered")

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	logger.Info().Msg("stopped")
}
