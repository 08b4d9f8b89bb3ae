// Command server is an in-memory development backend for the court
// reservation client.  It serves the REST API under /api and publishes
// reservation changes on the configured push channel.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/court-reservation/internal/config"
	"github.com/iliyamo/court-reservation/internal/handler"
	"github.com/iliyamo/court-reservation/internal/logger"
	"github.com/iliyamo/court-reservation/internal/middleware"
	"github.com/iliyamo/court-reservation/internal/repository"
	"github.com/iliyamo/court-reservation/internal/router"
	"github.com/iliyamo/court-reservation/internal/service"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		l := logger.New("dev", "info")
		l.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Server, log zerolog.Logger) error {
	opens, closes, err := cfg.Hours()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Redis is optional: without it there is no cache, no rate limit and
	// no redis push driver.
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn().Str("addr", cfg.Redis.Address()).Msg("redis unavailable; cache and rate limit disabled")
	} else {
		defer rdb.Close()
	}

	var pub service.Publisher
	switch cfg.Push.Driver {
	case config.PushAMQP:
		pub = service.NewAMQPPublisher(cfg.Push.RabbitURL, cfg.Push.Exchange, log)
	case config.PushRedis:
		if rdb == nil {
			return errors.New("PUSH_DRIVER=redis needs a reachable redis")
		}
		pub = service.NewRedisPublisher(rdb, cfg.Push.ChannelPrefix)
	default:
		pub = service.NopPublisher{}
	}
	defer pub.Close()

	courts := repository.NewCourtRepo(repository.SlotPlan{
		Courts:   cfg.CourtCount,
		Opens:    opens,
		Closes:   closes,
		Days:     cfg.SlotDays,
		Location: loc,
	}, nil)
	svc := service.NewReservations(courts, repository.NewReservationRepo(), pub, log)

	janitor, err := service.NewJanitor(svc, cfg.CleanupSchedule, log, nil)
	if err != nil {
		return err
	}
	janitor.Start()
	defer janitor.Stop()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(log.With().Str("component", "http").Logger()))
	router.RegisterRoutes(e, handler.NewReservationHandler(svc, log), router.Middlewares{
		Cache:     middleware.NewRedisCache(cfg.Cache, rdb, log),
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() { errc <- e.Start(addr) }()
	log.Info().Str("addr", addr).Str("env", cfg.Env).Str("push", cfg.Push.Driver).Msg("listening")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return e.Shutdown(shutdownCtx)
}
