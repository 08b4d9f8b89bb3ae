package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/court-reservation/internal/model"
)

func fixedNow() time.Time { return time.Date(2024, 1, 1, 8, 15, 0, 0, time.UTC) }

func TestCourtRepoList(t *testing.T) {
	repo := NewCourtRepo(SlotPlan{
		Courts:   2,
		Opens:    10 * time.Hour,
		Closes:   22 * time.Hour,
		Days:     1,
		Location: time.UTC,
	}, fixedNow)

	courts, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, courts, 2)
	assert.Equal(t, "court-1", courts[0].ID)
	assert.Equal(t, 2, courts[1].CourtNumber)

	slots := courts[0].Slots
	require.Len(t, slots, 8)
	assert.True(t, slots[0].StartTime.Equal(model.MustInstant("2024-01-01T10:00:00Z")))
	assert.True(t, slots[0].EndTime.Equal(model.MustInstant("2024-01-01T11:30:00Z")))
	assert.True(t, slots[7].StartTime.Equal(model.MustInstant("2024-01-01T20:30:00Z")))
	assert.True(t, slots[7].End().Equal(model.MustInstant("2024-01-01T22:00:00Z")))
}

func TestCourtRepoSkipsPartialSlotAndSpansDays(t *testing.T) {
	repo := NewCourtRepo(SlotPlan{
		Courts:   1,
		Opens:    9 * time.Hour,
		Closes:   12 * time.Hour,
		Days:     2,
		Location: time.UTC,
	}, fixedNow)

	c, err := repo.GetByID(context.Background(), "court-1")
	require.NoError(t, err)
	require.Len(t, c.Slots, 4)
	assert.True(t, c.Slots[1].StartTime.Equal(model.MustInstant("2024-01-01T10:30:00Z")))
	assert.True(t, c.Slots[2].StartTime.Equal(model.MustInstant("2024-01-02T09:00:00Z")))

	_, err = repo.GetByID(context.Background(), "court-9")
	assert.ErrorIs(t, err, ErrCourtNotFound)
}

func newTestReservationRepo() *ReservationRepo {
	repo := NewReservationRepo()
	var n atomic.Int64
	repo.newID = func() string { return fmt.Sprintf("r%d", n.Add(1)) }
	return repo
}

func res(courtID, start string) model.Reservation {
	s := model.MustInstant(start)
	return model.Reservation{CourtID: courtID, StartTime: s, EndTime: s.Add(model.SlotLength), UserName: "Alice", PartyNames: "Bob"}
}

func TestReservationRepoCreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := newTestReservationRepo()

	late, err := repo.Create(ctx, res("court-1", "2024-01-01T11:30:00Z"))
	require.NoError(t, err)
	assert.Equal(t, "r1", late.ID)
	_, err = repo.Create(ctx, res("court-2", "2024-01-01T10:00:00Z"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, res("court-1", "2024-01-01T10:00:00Z"))
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"r3", "r2", "r1"}, []string{list[0].ID, list[1].ID, list[2].ID})

	got, err := repo.GetByID(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, "court-2", got.CourtID)
}

func TestReservationRepoConflict(t *testing.T) {
	ctx := context.Background()
	repo := newTestReservationRepo()

	_, err := repo.Create(ctx, res("court-1", "2024-01-01T10:00:00Z"))
	require.NoError(t, err)

	// same instant in a different representation
	_, err = repo.Create(ctx, res("court-1", "2024-01-01T12:00:00+02:00"))
	assert.ErrorIs(t, err, ErrConflict)

	_, err = repo.Create(ctx, res("court-2", "2024-01-01T10:00:00Z"))
	assert.NoError(t, err)
}

func TestReservationRepoConcurrentCreateHasOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewReservationRepo()

	var wg sync.WaitGroup
	var won atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Create(ctx, res("court-1", "2024-01-01T10:00:00Z")); err == nil {
				won.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())
}

func TestReservationRepoDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestReservationRepo()
	created, err := repo.Create(ctx, res("court-1", "2024-01-01T10:00:00Z"))
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, deleted)

	_, err = repo.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	// the slot is free again
	_, err = repo.Create(ctx, res("court-1", "2024-01-01T10:00:00Z"))
	assert.NoError(t, err)
}

func TestReservationRepoDeleteEndedBefore(t *testing.T) {
	ctx := context.Background()
	repo := newTestReservationRepo()
	_, err := repo.Create(ctx, res("court-1", "2024-01-01T10:00:00Z"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, res("court-1", "2024-01-01T11:30:00Z"))
	require.NoError(t, err)

	expired, err := repo.DeleteEndedBefore(ctx, time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "r1", expired[0].ID)

	left, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "r2", left[0].ID)
}
