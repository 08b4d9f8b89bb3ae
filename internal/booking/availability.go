// Package booking is the reservation view model.  It reconciles the court
// list and reservation list fetched from the backend, the user's local
// selection and form input, and reservation push notifications into one
// view of which (court, slot) cells are free, selected or taken.
//
// State is a plain reducer with no I/O.  View runs it on a single event
// loop and connects it to the backend API and the push channel.
package booking

import (
	"fmt"

	"github.com/iliyamo/court-reservation/internal/model"
)

// CellState is the derived availability of one (court, slot) cell.
type CellState int

const (
	Free CellState = iota
	Selected
	Taken
)

func (c CellState) String() string {
	switch c {
	case Free:
		return "free"
	case Selected:
		return "selected"
	case Taken:
		return "taken"
	default:
		return fmt.Sprintf("CellState(%d)", int(c))
	}
}

// Selection is the user's tentative pick.  The zero value means nothing is
// selected.
type Selection struct {
	CourtID   string
	StartTime model.Instant
}

// IsSet reports whether both the court and the time are chosen.
func (s Selection) IsSet() bool { return s.CourtID != "" && !s.StartTime.IsZero() }

// Matches reports whether the selection points at the given cell.
func (s Selection) Matches(courtID string, start model.Instant) bool {
	return s.IsSet() && s.CourtID == courtID && s.StartTime.Equal(start)
}

// Cell is one entry of the availability grid.
type Cell struct {
	Slot        model.Slot
	State       CellState
	Reservation *model.Reservation // set when State is Taken
}

// CourtAvailability is one court's column of the grid, in slot order.
type CourtAvailability struct {
	Court model.Court
	Cells []Cell
}

// FindReservation returns the first reservation occupying (courtID, start).
func FindReservation(reservations []model.Reservation, courtID string, start model.Instant) (model.Reservation, bool) {
	for _, r := range reservations {
		if r.Occupies(courtID, start) {
			return r, true
		}
	}
	return model.Reservation{}, false
}

// IsReserved reports whether any reservation occupies (courtID, start).
// Start instants are compared in normalized form.
func IsReserved(reservations []model.Reservation, courtID string, start model.Instant) bool {
	_, ok := FindReservation(reservations, courtID, start)
	return ok
}

// CellStateOf derives the state of a single cell.  Taken wins over
// Selected: a selection whose cell has since been reserved is not shown.
func CellStateOf(reservations []model.Reservation, sel Selection, courtID string, start model.Instant) CellState {
	switch {
	case IsReserved(reservations, courtID, start):
		return Taken
	case sel.Matches(courtID, start):
		return Selected
	default:
		return Free
	}
}

// Availability derives the full grid from raw state.  It is recomputed on
// every call; nothing is cached between calls.
func Availability(courts []model.Court, reservations []model.Reservation, sel Selection) []CourtAvailability {
	grid := make([]CourtAvailability, 0, len(courts))
	for _, c := range courts {
		col := CourtAvailability{Court: c, Cells: make([]Cell, 0, len(c.Slots))}
		for _, slot := range c.Slots {
			cell := Cell{Slot: slot, State: Free}
			if r, ok := FindReservation(reservations, c.ID, slot.StartTime); ok {
				cell.State = Taken
				cell.Reservation = &r
			} else if sel.Matches(c.ID, slot.StartTime) {
				cell.State = Selected
			}
			col.Cells = append(col.Cells, cell)
		}
		grid = append(grid, col)
	}
	return grid
}
