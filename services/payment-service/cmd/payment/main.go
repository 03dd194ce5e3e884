package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/jesuscorral/ticketwave/pkg/bus"
	"github.com/jesuscorral/ticketwave/pkg/config"
	"github.com/jesuscorral/ticketwave/pkg/db"
	"github.com/jesuscorral/ticketwave/pkg/events"
	"github.com/jesuscorral/ticketwave/pkg/logging"
	"github.com/jesuscorral/ticketwave/pkg/obs"
	cons "github.com/jesuscorral/ticketwave/services/payment-service/internal/consumer"
	httpx "github.com/jesuscorral/ticketwave/services/payment-service/internal/http"
	omisecli "github.com/jesuscorral/ticketwave/services/payment-service/internal/omise"
	"github.com/jesuscorral/ticketwave/services/payment-service/internal/repository"
	"github.com/jesuscorral/ticketwave/services/payment-service/internal/service"
)

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())
	cfg.Bus.Source = "payment-service"
	logger := logging.New("payment-service", cfg.Env)

	shutdownTracer := obs.InitTracer("payment-service")
	defer func() { _ = shutdownTracer(context.Background()) }()

	gdb := must(db.Open(cfg.PGPaymentDSN))
	repo := repository.NewPaymentRepo(gdb)
	must(0, repo.Migrate())

	omc := must(omisecli.New(cfg.OmisePublicKey, cfg.OmiseSecretKey))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := must(bus.Connect(ctx, cfg.Bus, logger))
	defer b.Close()

	svc := service.NewPaymentService(repo, omc, b, "payment-service", logger)

	pc := cons.NewPrepareConsumer(svc, logger)
	must(0, b.Subscribe(ctx, events.RKPaymentPrepareRequested, pc.Handle))
	logger.Info().Msg("prepare consumer registered")

	r := gin.Default()
	httpx.NewHandler(svc, omc, logger).Register(r)
	go func() {
		logger.Info().Str("addr", cfg.PaymentHTTPAddr).Msg("http listening")
		if err := r.Run(cfg.PaymentHTTPAddr); err != nil {
			logger.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	logger.Info().Msg("stopped")
}
