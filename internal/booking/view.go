package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/queue"
)

// API is the backend surface the view model consumes.
type API interface {
	ListCourts(ctx context.Context) ([]model.Court, error)
	ListReservations(ctx context.Context) ([]model.Reservation, error)
	CreateReservation(ctx context.Context, req model.CreateReservationRequest) (*model.Reservation, error)
}

// Subscriber is the push channel capability.  The channel itself lives for
// the whole process; a View only registers and removes its handlers.
type Subscriber interface {
	Subscribe(event string, fn queue.Handler) error
	Unsubscribe(event string) error
}

// Options tune a View.
type Options struct {
	SuccessFlash       time.Duration  // how long the success indicator stays up
	DedupByID          bool           // skip reservations whose id is already listed
	RefreshAfterSubmit bool           // re-fetch reservations after a successful submit
	OnChange           func(Snapshot) // called on the loop after every handled event
}

// DefaultOptions returns the standard behavior: a 3 second success
// indicator and id-based dedup of pushed reservations.
func DefaultOptions() Options {
	return Options{SuccessFlash: 3 * time.Second, DedupByID: true}
}

const eventBuffer = 64

type event struct {
	fn    func()
	quiet bool // queries do not trigger OnChange
}

// View runs a State on a single event loop.  User input, network results,
// push messages and timers are all posted to the loop and applied one at a
// time, so State never needs locking.  Network calls run on their own
// goroutines and post their results back; a result that arrives after a
// newer event is still applied.
//
// Every exported method is safe to call from any goroutine once Run has
// started.  OnChange runs on the loop and must not call back into the View
// synchronously.
type View struct {
	api  API
	push Subscriber
	log  zerolog.Logger
	opts Options

	events chan event
	done   chan struct{}

	// Owned by the loop goroutine.
	ctx        context.Context
	state      *State
	subscribed []string // events with a registered handler
	flash      *time.Timer
}

// NewView wires a view model to its collaborators.  push may be nil when
// no push channel is configured.
func NewView(api API, push Subscriber, log zerolog.Logger, opts Options) *View {
	if opts.SuccessFlash <= 0 {
		opts.SuccessFlash = 3 * time.Second
	}
	return &View{
		api:    api,
		push:   push,
		log:    log.With().Str("component", "view").Logger(),
		opts:   opts,
		events: make(chan event, eventBuffer),
		done:   make(chan struct{}),
		ctx:    context.Background(),
		state:  NewState(opts.DedupByID),
	}
}

// Run processes events until ctx is cancelled, then unsubscribes from the
// push channel and stops pending timers.  It must be called exactly once.
func (v *View) Run(ctx context.Context) error {
	v.ctx = ctx
	defer close(v.done)
	for {
		select {
		case <-ctx.Done():
			v.teardown()
			return nil
		case ev := <-v.events:
			ev.fn()
			if !ev.quiet && v.opts.OnChange != nil {
				v.opts.OnChange(v.state.Snapshot())
			}
		}
	}
}

// post queues fn for the loop.  It reports false once the loop has exited.
func (v *View) post(fn func()) bool {
	return v.send(event{fn: fn})
}

func (v *View) send(ev event) bool {
	select {
	case <-v.done:
		return false
	default:
	}
	select {
	case v.events <- ev:
		return true
	case <-v.done:
		return false
	}
}

// call runs fn on the loop and waits for its answer.  After the loop has
// exited it answers false.
func (v *View) call(fn func() bool) bool {
	reply := make(chan bool, 1)
	if !v.post(func() { reply <- fn() }) {
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-v.done:
		return false
	}
}

// Initialize subscribes to push notifications and fetches courts and
// reservations.  The two fetches run concurrently; if either fails the
// view reports a failed load and keeps no partial data.  There is no retry.
func (v *View) Initialize() {
	v.post(v.initialize)
}

func (v *View) initialize() {
	v.subscribe()
	v.state.BeginLoad()
	ctx := v.ctx
	go func() {
		var (
			wg           sync.WaitGroup
			courts       []model.Court
			reservations []model.Reservation
			courtsErr    error
			resErr       error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			courts, courtsErr = v.api.ListCourts(ctx)
		}()
		go func() {
			defer wg.Done()
			reservations, resErr = v.api.ListReservations(ctx)
		}()
		wg.Wait()

		err := errors.Join(courtsErr, resErr)
		v.post(func() {
			if err != nil {
				v.log.Error().Err(err).Msg("load courts and reservations failed")
			} else {
				v.log.Info().Int("courts", len(courts)).Int("reservations", len(reservations)).Msg("loaded")
			}
			v.state.FinishLoad(courts, reservations, err)
		})
	}()
}

func (v *View) subscribe() {
	if len(v.subscribed) > 0 || v.push == nil {
		return
	}
	handlers := []struct {
		event string
		fn    queue.Handler
	}{
		{queue.EventNewReservation, v.onNewReservation},
		{queue.EventDeletedReservation, v.onDeletedReservation},
	}
	for _, h := range handlers {
		if err := v.push.Subscribe(h.event, h.fn); err != nil {
			v.log.Error().Err(err).Str("event", h.event).Msg("subscribe failed")
			continue
		}
		v.subscribed = append(v.subscribed, h.event)
	}
}

func (v *View) teardown() {
	if v.flash != nil {
		v.flash.Stop()
	}
	for _, ev := range v.subscribed {
		if err := v.push.Unsubscribe(ev); err != nil {
			v.log.Warn().Err(err).Str("event", ev).Msg("unsubscribe failed")
		}
	}
	v.subscribed = nil
}

// onNewReservation runs on the push transport's goroutine.
func (v *View) onNewReservation(payload []byte) {
	r, err := queue.DecodeNewReservation(payload)
	if err != nil {
		v.log.Warn().Err(err).Msg("dropping malformed push")
		return
	}
	v.post(func() {
		if !v.state.AddReservation(r) {
			v.log.Debug().Str("id", r.ID).Msg("push duplicate skipped")
		}
	})
}

// onDeletedReservation runs on the push transport's goroutine.
func (v *View) onDeletedReservation(payload []byte) {
	id, err := queue.DecodeDeletedReservation(payload)
	if err != nil {
		v.log.Warn().Err(err).Msg("dropping malformed push")
		return
	}
	v.post(func() { v.state.RemoveReservation(id) })
}

// SelectCell selects a free cell and reports whether the selection
// changed.  Reserved or unknown cells leave the selection untouched.
func (v *View) SelectCell(courtID string, start model.Instant) bool {
	return v.call(func() bool { return v.state.SelectCell(courtID, start) })
}

// Hover shows the details of the reservation in the given cell, if any.
func (v *View) Hover(courtID string, start model.Instant) {
	v.post(func() { v.state.Hover(courtID, start) })
}

// ClearHover hides the hover details.
func (v *View) ClearHover() { v.post(v.state.ClearHover) }

// SetName updates the booking user's name.
func (v *View) SetName(name string) {
	v.post(func() { v.state.SetName(name) })
}

// SetPartyNames updates the party member list.
func (v *View) SetPartyNames(names string) {
	v.post(func() { v.state.SetPartyNames(names) })
}

// Submit sends the current selection as a reservation and reports whether
// a request was issued.  With a blank field, no selection or a submit
// already pending it does nothing.  The outcome is applied when the
// response arrives: success resets the form and raises the success
// indicator, failure leaves everything as it was.
func (v *View) Submit() bool {
	return v.call(func() bool {
		req, ok := v.state.BeginSubmit()
		if !ok {
			v.log.Debug().Msg("submit ignored: form incomplete")
			return false
		}
		ctx := v.ctx
		go func() {
			created, err := v.api.CreateReservation(ctx, req)
			v.post(func() { v.submitDone(req, created, err) })
		}()
		return true
	})
}

func (v *View) submitDone(req model.CreateReservationRequest, created *model.Reservation, err error) {
	if err != nil {
		v.log.Error().Err(err).Str("court_id", req.CourtID).Stringer("start", req.StartTime).Msg("create reservation failed")
		v.state.SubmitFailed()
		return
	}
	ev := v.log.Info().Str("court_id", req.CourtID).Stringer("start", req.StartTime)
	if created != nil {
		ev = ev.Str("id", created.ID)
	}
	ev.Msg("reservation created")

	gen := v.state.SubmitSucceeded(created)
	if v.flash != nil {
		v.flash.Stop()
	}
	v.flash = time.AfterFunc(v.opts.SuccessFlash, func() {
		v.post(func() { v.state.ClearSuccess(gen) })
	})
	if v.opts.RefreshAfterSubmit {
		v.refresh()
	}
}

func (v *View) refresh() {
	v.state.BeginRefresh()
	ctx := v.ctx
	go func() {
		reservations, err := v.api.ListReservations(ctx)
		v.post(func() {
			if err != nil {
				v.log.Error().Err(err).Msg("refresh reservations failed")
			}
			v.state.FinishRefresh(reservations, err)
		})
	}()
}

// Snapshot returns the current state.  Once the loop has exited it returns
// the final state.
func (v *View) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if v.send(event{fn: func() { reply <- v.state.Snapshot() }, quiet: true}) {
		select {
		case s := <-reply:
			return s
		case <-v.done:
		}
	}
	<-v.done
	return v.state.Snapshot()
}
