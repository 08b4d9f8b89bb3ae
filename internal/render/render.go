// Package render draws a booking snapshot as text for the console client.
package render

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/iliyamo/court-reservation/internal/booking"
	"github.com/iliyamo/court-reservation/internal/model"
)

const (
	Title       = "Badminton Court Reservation"
	Loading     = "Loading…"
	LoadFailed  = "Could not load courts."
	SelectHint  = "Please select a court and time from the grid above"
	ButtonLabel = "Reserve Court"
	Confirmed   = "Reservation confirmed!"
)

// Renderer turns snapshots into text.  Times are shown in loc.
type Renderer struct {
	loc   *time.Location
	color bool

	title, label, hint lipgloss.Style
	cell               map[booking.CellState]lipgloss.Style
}

// New returns a renderer.  With color off the output is plain text.
func New(loc *time.Location, color bool) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	r := &Renderer{loc: loc, color: color, cell: map[booking.CellState]lipgloss.Style{}}
	if color {
		r.title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
		r.label = lipgloss.NewStyle().Bold(true)
		r.hint = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
		r.cell[booking.Free] = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
		r.cell[booking.Selected] = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
		r.cell[booking.Taken] = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	}
	return r
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

// Symbol is the one-letter grid mark for a cell state.
func Symbol(s booking.CellState) string {
	switch s {
	case booking.Taken:
		return "R"
	case booking.Selected:
		return "S"
	default:
		return "A"
	}
}

// Render draws the whole view.
func (r *Renderer) Render(s booking.Snapshot) string {
	var b strings.Builder
	b.WriteString(r.style(r.title, Title) + "\n\n")

	fmt.Fprintf(&b, "%s %s\n", r.style(r.label, "Your Name:"), s.Name)
	fmt.Fprintf(&b, "%s %s\n\n", r.style(r.label, "Party's Names:"), s.PartyNames)

	b.WriteString(r.style(r.label, "Court Availability") + "\n")
	switch {
	case s.Loaded:
		b.WriteString(r.Grid(s.Grid) + "\n")
		b.WriteString(r.style(r.hint, "A available   S selected   R reserved") + "\n")
	case s.LoadFailed:
		b.WriteString(LoadFailed + "\n")
	default:
		b.WriteString(Loading + "\n")
	}

	if s.Hover != nil {
		b.WriteString("\n" + r.style(r.label, "Reservation Details:") + "\n")
		fmt.Fprintf(&b, "  Court: %d\n", s.Hover.CourtNumber)
		fmt.Fprintf(&b, "  Time: %s\n", r.span(s.Hover.Slot))
		fmt.Fprintf(&b, "  Reserved by: %s\n", s.Hover.Reservation.UserName)
		fmt.Fprintf(&b, "  Party: %s\n", s.Hover.Reservation.PartyNames)
	}

	b.WriteString("\n" + r.SelectionLine(s) + "\n")
	b.WriteString(r.button(s) + "\n")
	if s.Success {
		b.WriteString(Confirmed + "\n")
	}
	return b.String()
}

// SelectionLine describes the current selection or asks for one.
func (r *Renderer) SelectionLine(s booking.Snapshot) string {
	court, ok := s.SelectedCourt()
	if !ok {
		return SelectHint
	}
	slot, ok := court.SlotAt(s.Selection.StartTime)
	if !ok {
		slot = model.Slot{StartTime: s.Selection.StartTime}
	}
	return fmt.Sprintf("Selected: Court %d at %s", court.CourtNumber, r.span(slot))
}

func (r *Renderer) button(s booking.Snapshot) string {
	switch {
	case s.Submitting:
		return "[ " + ButtonLabel + " ] submitting…"
	case s.CanSubmit:
		return "[ " + ButtonLabel + " ]"
	default:
		return "[ " + ButtonLabel + " ] (disabled)"
	}
}

func (r *Renderer) span(s model.Slot) string {
	return s.StartTime.Clock(r.loc) + " - " + s.End().Clock(r.loc)
}

// Grid draws one row per slot start and one column per court.  A court
// that does not offer a row's slot gets a blank cell.
func (r *Renderer) Grid(grid []booking.CourtAvailability) string {
	type row struct {
		slot  model.Slot
		cells []string
	}
	byKey := map[string]*row{}
	var rows []*row
	for col, court := range grid {
		for _, c := range court.Cells {
			key := c.Slot.StartTime.Key()
			rw, ok := byKey[key]
			if !ok {
				rw = &row{slot: c.Slot, cells: make([]string, len(grid))}
				byKey[key] = rw
				rows = append(rows, rw)
			}
			rw.cells[col] = r.style(r.cell[c.State], Symbol(c.State))
		}
	}
	slices.SortFunc(rows, func(a, b *row) int {
		return a.slot.StartTime.Time().Compare(b.slot.StartTime.Time())
	})

	multiDay := false
	if len(rows) > 0 {
		first := rows[0].slot.StartTime.Time().In(r.loc).Format(time.DateOnly)
		last := rows[len(rows)-1].slot.StartTime.Time().In(r.loc).Format(time.DateOnly)
		multiDay = first != last
	}

	headers := make([]string, 0, len(grid)+1)
	headers = append(headers, "Time")
	for _, court := range grid {
		headers = append(headers, fmt.Sprintf("Court %d", court.Court.CourtNumber))
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if col > 0 {
				s = s.Align(lipgloss.Center)
			}
			return s
		})
	for _, rw := range rows {
		label := r.span(rw.slot)
		if multiDay {
			label = rw.slot.StartTime.Time().In(r.loc).Format("Jan 02") + " " + label
		}
		t.Row(append([]string{label}, rw.cells...)...)
	}
	return t.String()
}
