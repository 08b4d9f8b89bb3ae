package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/court-reservation/internal/model"
)

// SlotPlan describes the courts on offer and their opening hours.  Slots
// are model.SlotLength long and laid end to end from Opens; a slot that
// would run past Closes is not offered.
type SlotPlan struct {
	Courts   int
	Opens    time.Duration // offset from midnight
	Closes   time.Duration // offset from midnight
	Days     int           // number of days offered, starting today
	Location *time.Location
}

// CourtRepo serves a fixed set of courts.  Slots are generated relative
// to the current day on every call, so the schedule rolls over at
// midnight in the plan's location.
type CourtRepo struct {
	plan SlotPlan
	now  func() time.Time
}

// NewCourtRepo returns a CourtRepo for plan.  now defaults to time.Now.
func NewCourtRepo(plan SlotPlan, now func() time.Time) *CourtRepo {
	if plan.Location == nil {
		plan.Location = time.Local
	}
	if plan.Days < 1 {
		plan.Days = 1
	}
	if now == nil {
		now = time.Now
	}
	return &CourtRepo{plan: plan, now: now}
}

// CourtID returns the id of the court with the given number.
func CourtID(number int) string { return fmt.Sprintf("court-%d", number) }

// List returns every court ordered by number, each with its slots in
// chronological order.
func (r *CourtRepo) List(ctx context.Context) ([]model.Court, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slots := r.slots()
	courts := make([]model.Court, 0, r.plan.Courts)
	for n := 1; n <= r.plan.Courts; n++ {
		courts = append(courts, model.Court{
			ID:          CourtID(n),
			CourtNumber: n,
			Slots:       append([]model.Slot(nil), slots...),
		})
	}
	return courts, nil
}

// GetByID returns a single court or ErrCourtNotFound.
func (r *CourtRepo) GetByID(ctx context.Context, id string) (model.Court, error) {
	courts, err := r.List(ctx)
	if err != nil {
		return model.Court{}, err
	}
	c, ok := model.FindCourt(courts, id)
	if !ok {
		return model.Court{}, ErrCourtNotFound
	}
	return c, nil
}

func (r *CourtRepo) slots() []model.Slot {
	today := r.now().In(r.plan.Location)
	var out []model.Slot
	for d := 0; d < r.plan.Days; d++ {
		day := time.Date(today.Year(), today.Month(), today.Day()+d, 0, 0, 0, 0, r.plan.Location)
		for off := r.plan.Opens; off+model.SlotLength <= r.plan.Closes; off += model.SlotLength {
			start := model.NewInstant(day.Add(off))
			out = append(out, model.Slot{StartTime: start, EndTime: start.Add(model.SlotLength)})
		}
	}
	return out
}
