package booking

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/court-reservation/internal/model"
)

var (
	at10   = model.MustInstant("2024-01-01T10:00:00Z")
	at1130 = model.MustInstant("2024-01-01T11:30:00Z")

	court1 = model.Court{ID: "c1", CourtNumber: 1, Slots: []model.Slot{{StartTime: at10}, {StartTime: at1130}}}
	court2 = model.Court{ID: "c2", CourtNumber: 2, Slots: []model.Slot{{StartTime: at10}}}
)

func reservation(id, courtID string, start model.Instant) model.Reservation {
	return model.Reservation{
		ID:         id,
		CourtID:    courtID,
		StartTime:  start,
		EndTime:    start.Add(model.SlotLength),
		UserName:   "Carol",
		PartyNames: "Dave",
	}
}

func loadedState(t *testing.T, dedup bool, reservations ...model.Reservation) *State {
	t.Helper()
	s := NewState(dedup)
	s.BeginLoad()
	s.FinishLoad([]model.Court{court1, court2}, reservations, nil)
	require.True(t, s.Loaded())
	return s
}

func TestIsReservedComparesNormalizedInstants(t *testing.T) {
	stored := reservation("r1", "c1", model.MustInstant("2024-01-01T10:00:00.000Z"))
	s := loadedState(t, true, stored)

	assert.True(t, s.IsReserved("c1", at10))
	assert.True(t, s.IsReserved("c1", model.MustInstant("2024-01-01T12:00:00+02:00")))
	assert.False(t, s.IsReserved("c2", at10))
	assert.False(t, s.IsReserved("c1", at1130))
}

func TestSelectCell(t *testing.T) {
	s := loadedState(t, true, reservation("r1", "c1", at1130))

	assert.True(t, s.SelectCell("c1", at10))
	assert.Equal(t, Selection{CourtID: "c1", StartTime: at10}, s.selection)

	// taken cell is a no-op
	assert.False(t, s.SelectCell("c1", at1130))
	assert.Equal(t, Selection{CourtID: "c1", StartTime: at10}, s.selection)

	// unknown court or slot is a no-op
	assert.False(t, s.SelectCell("c9", at10))
	assert.False(t, s.SelectCell("c2", at1130))

	// a new click replaces the old selection
	assert.True(t, s.SelectCell("c2", at10))
	assert.Equal(t, "c2", s.selection.CourtID)
}

func TestSelectCellBeforeLoadIsIgnored(t *testing.T) {
	s := NewState(true)
	s.BeginLoad()
	assert.False(t, s.SelectCell("c1", at10))
	assert.False(t, s.selection.IsSet())
}

func TestBeginSubmitPreconditions(t *testing.T) {
	cases := []struct {
		name  string
		user  string
		party string
		pick  bool
	}{
		{"no name", "", "Bob", true},
		{"blank name", "   ", "Bob", true},
		{"no party", "Alice", "", true},
		{"no selection", "Alice", "Bob", false},
		{"nothing", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := loadedState(t, true)
			s.SetName(tc.user)
			s.SetPartyNames(tc.party)
			if tc.pick {
				require.True(t, s.SelectCell("c1", at10))
			}
			assert.False(t, s.CanSubmit())
			_, ok := s.BeginSubmit()
			assert.False(t, ok)
			assert.False(t, s.submitting)
		})
	}
}

func TestBeginSubmitBuildsRequest(t *testing.T) {
	s := loadedState(t, true)
	require.True(t, s.SelectCell("c1", at10))
	s.SetName("Alice")
	s.SetPartyNames("Bob")
	require.True(t, s.CanSubmit())

	req, ok := s.BeginSubmit()
	require.True(t, ok)
	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"courtId":"c1","userName":"Alice","partyNames":"Bob","startTime":"2024-01-01T10:00:00Z","endTime":"2024-01-01T11:30:00Z"}`, string(body))

	// pending submit blocks a second one
	assert.False(t, s.CanSubmit())
	_, ok = s.BeginSubmit()
	assert.False(t, ok)
}

func TestSelectionTakenByPushDisablesSubmit(t *testing.T) {
	s := loadedState(t, true)
	require.True(t, s.SelectCell("c1", at10))
	s.SetName("Alice")
	s.SetPartyNames("Bob")

	s.AddReservation(reservation("other", "c1", at10))
	assert.False(t, s.CanSubmit())
	assert.Equal(t, Taken, CellStateOf(s.reservations, s.selection, "c1", at10))
}

func TestSubmitSucceededResetsForm(t *testing.T) {
	s := loadedState(t, true)
	require.True(t, s.SelectCell("c1", at10))
	s.SetName("Alice")
	s.SetPartyNames("Bob")
	_, ok := s.BeginSubmit()
	require.True(t, ok)

	created := reservation("mine", "c1", at10)
	gen := s.SubmitSucceeded(&created)

	snap := s.Snapshot()
	assert.False(t, snap.Selection.IsSet())
	assert.Empty(t, snap.Name)
	assert.Empty(t, snap.PartyNames)
	assert.True(t, snap.Success)
	assert.False(t, snap.Submitting)
	assert.Len(t, snap.Reservations, 1)

	// the push echo of our own reservation is not appended again
	assert.False(t, s.AddReservation(created))
	assert.Len(t, s.reservations, 1)

	s.ClearSuccess(gen)
	assert.False(t, s.Snapshot().Success)
}

func TestSubmitFailedKeepsInput(t *testing.T) {
	s := loadedState(t, true)
	require.True(t, s.SelectCell("c1", at10))
	s.SetName("Alice")
	s.SetPartyNames("Bob")
	_, ok := s.BeginSubmit()
	require.True(t, ok)

	s.SubmitFailed()
	snap := s.Snapshot()
	assert.Equal(t, "Alice", snap.Name)
	assert.Equal(t, "Bob", snap.PartyNames)
	assert.Equal(t, Selection{CourtID: "c1", StartTime: at10}, snap.Selection)
	assert.False(t, snap.Success)
	assert.True(t, snap.CanSubmit)
}

func TestOlderSuccessTimerDoesNotClearNewerIndicator(t *testing.T) {
	s := loadedState(t, true)
	first := s.SubmitSucceeded(nil)
	second := s.SubmitSucceeded(nil)

	s.ClearSuccess(first)
	assert.True(t, s.Snapshot().Success)
	s.ClearSuccess(second)
	assert.False(t, s.Snapshot().Success)
}

func TestAddReservationWithoutDedupAlwaysAppends(t *testing.T) {
	r := reservation("r1", "c1", at10)
	s := loadedState(t, false, r)

	for i := 1; i <= 3; i++ {
		before := len(s.reservations)
		assert.True(t, s.AddReservation(r))
		assert.Equal(t, before+1, len(s.reservations))
	}

	// without dedup a submit response is left to the push echo
	s.SubmitSucceeded(&model.Reservation{ID: "mine", CourtID: "c2", StartTime: at10})
	assert.False(t, s.IsReserved("c2", at10))
}

func TestAddReservationDedupKeepsDistinctIDs(t *testing.T) {
	s := loadedState(t, true)

	assert.True(t, s.AddReservation(reservation("a", "c1", at10)))
	assert.True(t, s.AddReservation(reservation("b", "c1", at10)))
	assert.False(t, s.AddReservation(reservation("a", "c1", at10)))
	assert.Len(t, s.reservations, 2)
	assert.True(t, s.IsReserved("c1", at10))

	// one of the two racing reservations goes away; the cell stays taken
	assert.True(t, s.RemoveReservation("a"))
	assert.True(t, s.IsReserved("c1", at10))
}

func TestRemoveReservation(t *testing.T) {
	s := loadedState(t, true, reservation("r1", "c1", at10), reservation("r2", "c2", at10))

	assert.False(t, s.RemoveReservation("nope"))
	assert.False(t, s.RemoveReservation(""))
	assert.Len(t, s.reservations, 2)

	assert.True(t, s.RemoveReservation("r1"))
	require.Len(t, s.reservations, 1)
	assert.Equal(t, "r2", s.reservations[0].ID)
	assert.False(t, s.IsReserved("c1", at10))
}

func TestFinishLoadKeepsPushesReceivedDuringFetch(t *testing.T) {
	s := NewState(true)
	s.BeginLoad()

	s.AddReservation(reservation("pushed", "c2", at10))
	s.AddReservation(reservation("both", "c1", at1130))
	s.RemoveReservation("deleted")

	fetched := []model.Reservation{
		reservation("both", "c1", at1130),
		reservation("deleted", "c1", at10),
	}
	s.FinishLoad([]model.Court{court1, court2}, fetched, nil)

	ids := make([]string, 0, len(s.reservations))
	for _, r := range s.reservations {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"both", "pushed"}, ids)
	assert.False(t, s.IsReserved("c1", at10))
}

func TestFinishLoadFailure(t *testing.T) {
	s := NewState(true)
	s.BeginLoad()
	assert.True(t, s.Snapshot().Loading)

	s.FinishLoad([]model.Court{court1}, nil, errors.New("boom"))
	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	assert.False(t, snap.Loaded)
	assert.True(t, snap.LoadFailed)
	assert.Nil(t, snap.Grid)
	assert.Empty(t, snap.Courts)
}

func TestFinishLoadFailureDropsPushesReceivedDuringFetch(t *testing.T) {
	s := NewState(true)
	s.BeginLoad()
	s.AddReservation(reservation("early", "c1", at10))
	s.RemoveReservation("gone")

	s.FinishLoad(nil, nil, errors.New("boom"))
	snap := s.Snapshot()
	assert.True(t, snap.LoadFailed)
	assert.Empty(t, snap.Reservations)
	assert.Nil(t, s.added)
	assert.Nil(t, s.removed)
}

func TestRefresh(t *testing.T) {
	s := loadedState(t, true, reservation("stale", "c1", at10))

	s.BeginRefresh()
	s.AddReservation(reservation("late", "c2", at10))
	s.FinishRefresh([]model.Reservation{reservation("fresh", "c1", at1130)}, nil)
	assert.False(t, s.IsReserved("c1", at10))
	assert.True(t, s.IsReserved("c1", at1130))
	assert.True(t, s.IsReserved("c2", at10))

	s.BeginRefresh()
	s.FinishRefresh(nil, errors.New("offline"))
	assert.Len(t, s.reservations, 2)
}

func TestOverlappingRefreshesKeepDeletions(t *testing.T) {
	x := reservation("x", "c1", at10)
	s := loadedState(t, true, x)

	s.BeginRefresh()
	s.BeginRefresh()
	s.FinishRefresh([]model.Reservation{x}, nil)
	assert.True(t, s.RemoveReservation("x"))

	// the second fetch left the server before the deletion
	s.FinishRefresh([]model.Reservation{x}, nil)
	assert.False(t, s.IsReserved("c1", at10))
	assert.Empty(t, s.reservations)

	// with nothing in flight, deletions are no longer tracked
	assert.Nil(t, s.removed)
	s.BeginRefresh()
	s.FinishRefresh([]model.Reservation{x}, nil)
	assert.True(t, s.IsReserved("c1", at10))
}

func TestOverlappingRefreshesKeepPushedAdditions(t *testing.T) {
	s := loadedState(t, true)

	s.BeginRefresh()
	s.AddReservation(reservation("pushed", "c2", at10))
	s.BeginRefresh()
	s.FinishRefresh(nil, errors.New("offline"))
	s.FinishRefresh(nil, nil)
	assert.True(t, s.IsReserved("c2", at10))
	assert.Len(t, s.reservations, 1)
}

func TestAvailabilityGrid(t *testing.T) {
	s := loadedState(t, true, reservation("r1", "c1", at1130))
	require.True(t, s.SelectCell("c2", at10))

	grid := s.Snapshot().Grid
	require.Len(t, grid, 2)
	require.Len(t, grid[0].Cells, 2)
	assert.Equal(t, Free, grid[0].Cells[0].State)
	assert.Equal(t, Taken, grid[0].Cells[1].State)
	require.NotNil(t, grid[0].Cells[1].Reservation)
	assert.Equal(t, "r1", grid[0].Cells[1].Reservation.ID)
	assert.Equal(t, Selected, grid[1].Cells[0].State)
	assert.Nil(t, grid[1].Cells[0].Reservation)
}

func TestAvailabilityIsDerivedOnEveryCall(t *testing.T) {
	s := loadedState(t, true)
	assert.Equal(t, Free, s.Snapshot().Grid[0].Cells[0].State)

	s.AddReservation(reservation("r1", "c1", at10))
	assert.Equal(t, Taken, s.Snapshot().Grid[0].Cells[0].State)

	s.RemoveReservation("r1")
	assert.Equal(t, Free, s.Snapshot().Grid[0].Cells[0].State)
}

func TestHover(t *testing.T) {
	s := loadedState(t, true, reservation("r1", "c1", at1130))

	s.Hover("c1", at10)
	assert.Nil(t, s.Snapshot().Hover)

	s.Hover("c1", model.MustInstant("2024-01-01T11:30:00.000Z"))
	h := s.Snapshot().Hover
	require.NotNil(t, h)
	assert.Equal(t, 1, h.CourtNumber)
	assert.Equal(t, "r1", h.Reservation.ID)
	assert.Equal(t, "2024-01-01T13:00:00Z", h.Slot.End().Key())

	// hovering never touches the selection
	assert.False(t, s.selection.IsSet())

	s.ClearHover()
	assert.Nil(t, s.Snapshot().Hover)
}

func TestCellStateString(t *testing.T) {
	assert.Equal(t, "free", Free.String())
	assert.Equal(t, "selected", Selected.String())
	assert.Equal(t, "taken", Taken.String())
	assert.Equal(t, "CellState(9)", CellState(9).String())
}
