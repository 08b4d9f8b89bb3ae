package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/queue"
)

// Validation errors returned by Reservations.Create.  Handlers translate
// them into HTTP 400 responses.
var (
	ErrMissingField = errors.New("courtId, userName, partyNames and startTime are required")
	ErrInvalidSlot  = errors.New("startTime is not a slot of this court")
	ErrInvalidRange = errors.New("endTime must be after startTime")
)

// CourtStore is the court lookup the service needs.
type CourtStore interface {
	List(ctx context.Context) ([]model.Court, error)
	GetByID(ctx context.Context, id string) (model.Court, error)
}

// ReservationStore is the reservation storage the service needs.
type ReservationStore interface {
	List(ctx context.Context) ([]model.Reservation, error)
	GetByID(ctx context.Context, id string) (model.Reservation, error)
	Create(ctx context.Context, r model.Reservation) (model.Reservation, error)
	Delete(ctx context.Context, id string) (model.Reservation, error)
	DeleteEndedBefore(ctx context.Context, t time.Time) ([]model.Reservation, error)
}

// Reservations validates and stores reservations and announces every change
// on the push channel.  A failed publish is logged and otherwise ignored:
// the stored state is authoritative and clients re-fetch on their next load.
type Reservations struct {
	courts CourtStore
	store  ReservationStore
	pub    Publisher
	log    zerolog.Logger
}

// NewReservations wires the service.
func NewReservations(courts CourtStore, store ReservationStore, pub Publisher, log zerolog.Logger) *Reservations {
	return &Reservations{courts: courts, store: store, pub: pub, log: log}
}

// Courts returns every court with its slots.
func (s *Reservations) Courts(ctx context.Context) ([]model.Court, error) {
	return s.courts.List(ctx)
}

// List returns every reservation ordered by start, then court number.
func (s *Reservations) List(ctx context.Context) ([]model.Reservation, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	courts, err := s.courts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courts: %w", err)
	}
	number := make(map[string]int, len(courts))
	for _, c := range courts {
		number[c.ID] = c.CourtNumber
	}
	slices.SortStableFunc(list, func(a, b model.Reservation) int {
		if c := a.StartTime.Time().Compare(b.StartTime.Time()); c != 0 {
			return c
		}
		return number[a.CourtID] - number[b.CourtID]
	})
	return list, nil
}

// Get returns one reservation or repository.ErrReservationNotFound.
func (s *Reservations) Get(ctx context.Context, id string) (model.Reservation, error) {
	return s.store.GetByID(ctx, id)
}

// Create validates req against the court's slots, stores the reservation
// and publishes it.  It returns repository.ErrCourtNotFound for an unknown
// court and repository.ErrConflict when the slot is already held.
func (s *Reservations) Create(ctx context.Context, req model.CreateReservationRequest) (model.Reservation, error) {
	req.CourtID = strings.TrimSpace(req.CourtID)
	req.UserName = strings.TrimSpace(req.UserName)
	req.PartyNames = strings.TrimSpace(req.PartyNames)
	if req.CourtID == "" || req.UserName == "" || req.PartyNames == "" || req.StartTime.IsZero() {
		return model.Reservation{}, ErrMissingField
	}
	court, err := s.courts.GetByID(ctx, req.CourtID)
	if err != nil {
		return model.Reservation{}, err
	}
	slot, ok := court.SlotAt(req.StartTime)
	if !ok {
		return model.Reservation{}, ErrInvalidSlot
	}
	end := req.EndTime
	if end.IsZero() {
		end = slot.End()
	}
	if !req.StartTime.Before(end) {
		return model.Reservation{}, ErrInvalidRange
	}

	created, err := s.store.Create(ctx, model.Reservation{
		CourtID:    court.ID,
		StartTime:  slot.StartTime,
		EndTime:    end,
		UserName:   req.UserName,
		PartyNames: req.PartyNames,
	})
	if err != nil {
		return model.Reservation{}, err
	}
	s.log.Info().Str("id", created.ID).Int("court", court.CourtNumber).Stringer("start", created.StartTime).Msg("reservation created")
	s.publish(ctx, queue.EventNewReservation, created)
	return created, nil
}

// Delete removes a reservation and publishes its id.  It returns
// repository.ErrReservationNotFound for an unknown id.
func (s *Reservations) Delete(ctx context.Context, id string) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.log.Info().Str("id", deleted.ID).Msg("reservation deleted")
	s.publish(ctx, queue.EventDeletedReservation, queue.DeletedReservation{ID: deleted.ID})
	return nil
}

// Expire removes every reservation that ended at or before now and
// publishes a deletion for each.  It returns how many were removed.
func (s *Reservations) Expire(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.DeleteEndedBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire reservations: %w", err)
	}
	for _, r := range expired {
		s.publish(ctx, queue.EventDeletedReservation, queue.DeletedReservation{ID: r.ID})
	}
	return len(expired), nil
}

func (s *Reservations) publish(ctx context.Context, event string, payload any) {
	if err := s.pub.Publish(ctx, event, payload); err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("publish failed")
	}
}
