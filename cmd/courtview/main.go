// Command courtview is a console client for booking badminton courts.  It
// shows live court availability, follows other users' bookings over the
// push channel and reserves slots through the REST API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/iliyamo/court-reservation/internal/booking"
	"github.com/iliyamo/court-reservation/internal/client"
	"github.com/iliyamo/court-reservation/internal/config"
	"github.com/iliyamo/court-reservation/internal/console"
	"github.com/iliyamo/court-reservation/internal/logger"
	"github.com/iliyamo/court-reservation/internal/queue"
	"github.com/iliyamo/court-reservation/internal/render"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		l := logger.New("dev", "info")
		l.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("courtview stopped")
	}
}

// pushChannel is a subscriber that also owns its transport loop.
type pushChannel interface {
	booking.Subscriber
	Run(ctx context.Context) error
}

func newPushChannel(cfg config.Client, log zerolog.Logger) (pushChannel, error) {
	switch cfg.Push.Driver {
	case config.PushAMQP:
		return queue.NewAMQPSubscriber(cfg.Push.RabbitURL, cfg.Push.Exchange, log), nil
	case config.PushRedis:
		rdb := config.NewRedisClient(cfg.Redis)
		if rdb == nil {
			return nil, fmt.Errorf("redis at %s is not reachable", cfg.Redis.Address())
		}
		return queue.NewRedisSubscriber(rdb, cfg.Push.ChannelPrefix, log), nil
	default:
		return nil, nil
	}
}

func run(ctx context.Context, cfg config.Client, log zerolog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	push, err := newPushChannel(cfg, log)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	var sub booking.Subscriber
	if push != nil {
		sub = push
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = push.Run(ctx)
		}()
	}

	renderer := render.New(loc, true)
	var outMu sync.Mutex
	draw := func(s booking.Snapshot) {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprint(os.Stdout, "\n"+renderer.Render(s))
	}

	view := booking.NewView(
		client.New(cfg.APIURL, cfg.HTTPTimeout, log),
		sub,
		log,
		booking.Options{
			SuccessFlash:       cfg.SuccessFlash,
			DedupByID:          cfg.PushDedup,
			RefreshAfterSubmit: cfg.RefreshAfterSubmit,
			OnChange:           draw,
		},
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = view.Run(ctx)
	}()
	view.Initialize()

	fmt.Fprintln(os.Stdout, console.Help)
	err = console.New(view, renderer, loc, os.Stdout, log).Run(ctx, os.Stdin)
	cancel()
	wg.Wait()
	return err
}
