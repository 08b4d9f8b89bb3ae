package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Expirer removes reservations that have ended.
type Expirer interface {
	Expire(ctx context.Context, now time.Time) (int, error)
}

// Janitor periodically deletes reservations whose slot has passed, so the
// grid offered to clients never shows stale bookings.
type Janitor struct {
	cron *cron.Cron
	svc  Expirer
	now  func() time.Time
	log  zerolog.Logger
}

// NewJanitor schedules Sweep.  schedule uses cron syntax or a descriptor
// such as "@every 1m".  now defaults to time.Now.
func NewJanitor(svc Expirer, schedule string, log zerolog.Logger, now func() time.Time) (*Janitor, error) {
	if now == nil {
		now = time.Now
	}
	j := &Janitor{
		cron: cron.New(),
		svc:  svc,
		now:  now,
		log:  log.With().Str("component", "janitor").Logger(),
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.Sweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start runs the schedule in the background.
func (j *Janitor) Start() { j.cron.Start() }

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() { <-j.cron.Stop().Done() }

// Sweep removes expired reservations once.
func (j *Janitor) Sweep(ctx context.Context) {
	n, err := j.svc.Expire(ctx, j.now())
	if err != nil {
		j.log.Error().Err(err).Msg("sweep failed")
		return
	}
	if n > 0 {
		j.log.Info().Int("removed", n).Msg("expired reservations removed")
	}
}
