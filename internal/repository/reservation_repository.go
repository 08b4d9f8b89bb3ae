package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/court-reservation/internal/model"
)

// ReservationRepo keeps reservations in memory.  A (court, start) pair is
// held by at most one reservation; Create enforces that atomically.  It is
// safe for concurrent use.
type ReservationRepo struct {
	mu    sync.RWMutex
	byID  map[string]model.Reservation
	slots map[string]string // court id + normalized start -> reservation id
	newID func() string
}

// NewReservationRepo returns an empty repository that assigns UUIDs.
func NewReservationRepo() *ReservationRepo {
	return &ReservationRepo{
		byID:  make(map[string]model.Reservation),
		slots: make(map[string]string),
		newID: uuid.NewString,
	}
}

func slotKey(courtID string, start model.Instant) string {
	return courtID + "|" + start.Key()
}

// List returns every reservation ordered by start time, then court id.
func (r *ReservationRepo) List(ctx context.Context) ([]model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]model.Reservation, 0, len(r.byID))
	for _, res := range r.byID {
		out = append(out, res)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b model.Reservation) int {
		if c := a.StartTime.Time().Compare(b.StartTime.Time()); c != 0 {
			return c
		}
		return strings.Compare(a.CourtID, b.CourtID)
	})
	return out, nil
}

// GetByID returns a reservation or ErrReservationNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return model.Reservation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.byID[id]
	if !ok {
		return model.Reservation{}, ErrReservationNotFound
	}
	return res, nil
}

// Create assigns an id to res and stores it.  ErrConflict is returned when
// another reservation already holds the same court and start.
func (r *ReservationRepo) Create(ctx context.Context, res model.Reservation) (model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return model.Reservation{}, err
	}
	key := slotKey(res.CourtID, res.StartTime)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.slots[key]; taken {
		return model.Reservation{}, ErrConflict
	}
	res.ID = r.newID()
	r.byID[res.ID] = res
	r.slots[key] = res.ID
	return res, nil
}

// Delete removes the reservation with the given id and returns it.
func (r *ReservationRepo) Delete(ctx context.Context, id string) (model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return model.Reservation{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.byID[id]
	if !ok {
		return model.Reservation{}, ErrReservationNotFound
	}
	r.remove(res)
	return res, nil
}

// DeleteEndedBefore removes every reservation whose end instant is not
// after t and returns the removed reservations.  A reservation without an
// end instant ends model.SlotLength after its start.
func (r *ReservationRepo) DeleteEndedBefore(ctx context.Context, t time.Time) ([]model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []model.Reservation
	for _, res := range r.byID {
		end := res.EndTime
		if end.IsZero() {
			end = res.StartTime.Add(model.SlotLength)
		}
		if !end.Time().After(t) {
			expired = append(expired, res)
		}
	}
	for _, res := range expired {
		r.remove(res)
	}
	return expired, nil
}

func (r *ReservationRepo) remove(res model.Reservation) {
	delete(r.byID, res.ID)
	key := slotKey(res.CourtID, res.StartTime)
	if r.slots[key] == res.ID {
		delete(r.slots, key)
	}
}
