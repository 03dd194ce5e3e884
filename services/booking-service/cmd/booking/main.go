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
	twdomain "github.com/jesuscorral/ticketwave/pkg/domain"
	"github.com/jesuscorral/ticketwave/pkg/events"
	"github.com/jesuscorral/ticketwave/pkg/logging"
	"github.com/jesuscorral/ticketwave/pkg/obs"
	cons "github.com/jesuscorral/ticketwave/services/booking-service/internal/consumer"
	"github.com/jesuscorral/ticketwave/services/booking-service/internal/repository"
	"github.com/jesuscorral/ticketwave/services/booking-service/internal/service"
	httpx "github.com/jesuscorral/ticketwave/services/booking-service/internal/transport/http"
)

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())
	cfg.Bus.Source = "booking-service"
	logger := logging.New("booking-service", cfg.Env)

	shutdownTracer := obs.InitTracer("booking-service")
	defer func() { _ = shutdownTracer(context.Background()) }()

	gdb := must(db.Open(cfg.PGBookingDSN))
	repo := repository.NewBookingRepo(gdb)
	must(0, repo.Migrate())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := must(bus.Connect(ctx, cfg.Bus, logger))
	defer b.Close()

	dispatcher := twdomain.NewDispatcher()
	service.RegisterEventHandlers(dispatcher, b, "booking-service")
	svc := service.NewBookingService(repo, dispatcher, clock.NewSystem())

	pc := cons.NewPaymentConsumer(svc, logger)
	must(0, b.Subscribe(ctx, events.RKPaymentCompleted, pc.HandleCompleted))
	must(0, b.Subscribe(ctx, events.RKPaymentFailed, pc.HandleFailed))
	logger.Info().Msg("payment consumers registered")

	ic := cons.NewInventoryConsumer(svc, logger)
	must(0, b.Subscribe(ctx, events.RKInventoryUpdateFailed, ic.HandleUpdateFailed))
	logger.Info().Str("eventType", events.RKInventoryUpdateFailed).Msg("consumer registered")

	sweeper := service.NewSweeper(svc, time.Minute, logger)
	go sweeper.Run(ctx)

	r := gin.Default()
	httpx.NewHandler(svc).Register(r)
	go func() {
		logger.Info().Str("addr", cfg.BookingHTTPAddr).Msg("http listening")
		if err := r.Run(cfg.BookingHTTPAddr); err != nil {
			logger.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	logger.Info().Msg("stopped")
}
