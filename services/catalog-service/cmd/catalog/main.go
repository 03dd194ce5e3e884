package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jesuscorral/ticketwave/pkg/bus"
	"github.com/jesuscorral/ticketwave/pkg/clock"
	"github.com/jesuscorral/ticketwave/pkg/config"
	"github.com/jesuscorral/ticketwave/pkg/db"
	"github.com/jesuscorral/ticketwave/pkg/events"
	"github.com/jesuscorral/ticketwave/pkg/logging"
	"github.com/jesuscorral/ticketwave/pkg/obs"
	"github.com/jesuscorral/ticketwave/services/catalog-service/internal/consumer"
	"github.com/jesuscorral/ticketwave/services/catalog-service/internal/repository"
	"github.com/jesuscorral/ticketwave/services/catalog-service/internal/service"
	httpx "github.com/jesuscorral/ticketwave/services/catalog-service/internal/transport/http"
)

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())
	cfg.Bus.Source = "catalog-service"
	logger := logging.New("catalog-service", cfg.Env)

	shutdownTracer := obs.InitTracer("catalog-service")
	defer func() { _ = shutdownTracer(context.Background()) }()

	gdb := must(db.Open(cfg.PGCatalogDSN))
	repo := repository.NewTicketRepo(gdb)
	must(0, repo.Migrate())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := must(bus.Connect(ctx, cfg.Bus, logger))
	defer b.Close()

	svc := service.NewReservationService(repo, clock.NewSystem())

	inv := consumer.NewInventoryConsumer(svc, repo, b, "catalog-service", logger)
	must(0, b.Subscribe(ctx, events.RKInventoryUpdateRequested, inv.Handle))
	logger.Info().Str("eventType", events.RKInventoryUpdateRequested).Msg("consumer registered")

	bk := consumer.NewBookingConsumer(svc, repo, logger)
	must(0, b.Subscribe(ctx, events.RKBookingConfirmed, bk.HandleConfirmed))
	logger.Info().Str("eventType", events.RKBookingConfirmed).Msg("consumer registered")

	sweeper := service.NewSweeper(svc, time.Minute, logger)
	go sweeper.Run(ctx)

	r := gin.Default()
	httpx.NewHandler(svc).Register(r)
	go func() {
		logger.Info().Str("addr", cfg.CatalogHTTPAddr).Msg("http listening")
		if err := r.Run(cfg.CatalogHTTPAddr); err != nil {
			logger.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	logger.Info().Msg("stopped")
}
