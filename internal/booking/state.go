package booking

import (
	"slices"
	"strings"

	"github.com/iliyamo/court-reservation/internal/model"
)

// State holds everything the view model knows.  It performs no I/O and is
// not safe for concurrent use; View serializes every call onto its event
// loop.  Derived values (availability, hover details, whether submit is
// allowed) are computed from the raw fields on demand.
type State struct {
	dedup bool // skip reservations whose id is already present

	courts       []model.Court
	reservations []model.Reservation
	selection    Selection
	hover        *Selection
	name         string
	partyNames   string

	loading    bool
	loaded     bool
	loadFailed bool
	submitting bool
	success    bool
	successGen uint64

	// While any fetch is in flight, pushes are recorded so a fetch result
	// does not erase them (added) or resurrect them (removed).  The records
	// are kept until the last outstanding fetch has finished.
	pending int
	added   []model.Reservation
	removed map[string]struct{}
}

// NewState returns an empty, not yet loaded state.  With dedupByID set, a
// reservation whose backend id is already in the list is never appended a
// second time.
func NewState(dedupByID bool) *State {
	return &State{dedup: dedupByID}
}

// BeginLoad marks the initial fetch of courts and reservations as started.
func (s *State) BeginLoad() {
	s.loading = true
	s.loadFailed = false
	s.beginFetch()
}

// FinishLoad applies the result of the initial fetch.  On error nothing is
// kept, pushes received meanwhile included: the view leaves the loading
// state and reports the failure.
func (s *State) FinishLoad(courts []model.Court, reservations []model.Reservation, err error) {
	s.loading = false
	if err != nil {
		s.endFetch()
		if !s.loaded {
			s.reservations = nil
		}
		s.loadFailed = true
		return
	}
	s.courts = courts
	s.reservations = s.mergeFetched(reservations)
	s.loaded = true
	s.loadFailed = false
}

// BeginRefresh marks a reservation-only re-fetch as started.
func (s *State) BeginRefresh() { s.beginFetch() }

// FinishRefresh applies a reservation-only re-fetch.  A failed refresh
// keeps the current list.
func (s *State) FinishRefresh(reservations []model.Reservation, err error) {
	if err != nil {
		s.endFetch()
		return
	}
	s.reservations = s.mergeFetched(reservations)
}

func (s *State) fetching() bool { return s.pending > 0 }

func (s *State) beginFetch() {
	if s.pending == 0 {
		s.added = nil
		s.removed = make(map[string]struct{})
	}
	s.pending++
}

func (s *State) endFetch() {
	if s.pending > 0 {
		s.pending--
	}
	if s.pending == 0 {
		s.added = nil
		s.removed = nil
	}
}

// mergeFetched treats the fetched list as authoritative, minus anything
// deleted and plus anything added by push since the fetch started.
func (s *State) mergeFetched(fetched []model.Reservation) []model.Reservation {
	out := make([]model.Reservation, 0, len(fetched)+len(s.added))
	seen := make(map[string]struct{}, len(fetched))
	for _, r := range fetched {
		if _, gone := s.removed[r.ID]; gone && r.ID != "" {
			continue
		}
		out = append(out, r)
		if r.ID != "" {
			seen[r.ID] = struct{}{}
		}
	}
	for _, r := range s.added {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		out = append(out, r)
		seen[r.ID] = struct{}{}
	}
	s.endFetch()
	return out
}

// Loaded reports whether courts and reservations are available.
func (s *State) Loaded() bool { return s.loaded }

// IsReserved reports whether (courtID, start) is taken.
func (s *State) IsReserved(courtID string, start model.Instant) bool {
	return IsReserved(s.reservations, courtID, start)
}

// SelectCell selects (courtID, start) and reports whether the selection
// changed.  Taken cells, cells unknown to the loaded court list and any
// click before loading completes are ignored.
func (s *State) SelectCell(courtID string, start model.Instant) bool {
	if !s.loaded {
		return false
	}
	c, ok := model.FindCourt(s.courts, courtID)
	if !ok || !c.HasSlot(start) {
		return false
	}
	if s.IsReserved(courtID, start) {
		return false
	}
	s.selection = Selection{CourtID: courtID, StartTime: start}
	return true
}

// Hover records the cell under the pointer.
func (s *State) Hover(courtID string, start model.Instant) {
	s.hover = &Selection{CourtID: courtID, StartTime: start}
}

// ClearHover forgets the hovered cell.
func (s *State) ClearHover() { s.hover = nil }

// SetName sets the booking user's name.
func (s *State) SetName(name string) { s.name = name }

// SetPartyNames sets the free-text party member list.
func (s *State) SetPartyNames(names string) { s.partyNames = names }

// CanSubmit reports whether a submit would issue a request: both text
// fields are non-blank, a free cell is selected and no submit is pending.
func (s *State) CanSubmit() bool {
	return !s.submitting &&
		strings.TrimSpace(s.name) != "" &&
		strings.TrimSpace(s.partyNames) != "" &&
		s.selection.IsSet() &&
		!s.IsReserved(s.selection.CourtID, s.selection.StartTime)
}

// BeginSubmit builds the create request for the current input.  When
// CanSubmit is false it returns false and changes nothing.  The end
// instant is always start + model.SlotLength.
func (s *State) BeginSubmit() (model.CreateReservationRequest, bool) {
	if !s.CanSubmit() {
		return model.CreateReservationRequest{}, false
	}
	s.submitting = true
	start := s.selection.StartTime
	return model.CreateReservationRequest{
		CourtID:    s.selection.CourtID,
		UserName:   strings.TrimSpace(s.name),
		PartyNames: strings.TrimSpace(s.partyNames),
		StartTime:  start,
		EndTime:    start.Add(model.SlotLength),
	}, true
}

// SubmitSucceeded resets the form and selection and raises the success
// indicator.  The returned generation identifies this indicator for
// ClearSuccess.  When dedup is on, the created reservation is added right
// away; its push echo will then be skipped.
func (s *State) SubmitSucceeded(created *model.Reservation) uint64 {
	s.submitting = false
	s.name = ""
	s.partyNames = ""
	s.selection = Selection{}
	if s.dedup && created != nil && created.ID != "" {
		s.AddReservation(*created)
	}
	s.success = true
	s.successGen++
	return s.successGen
}

// SubmitFailed ends a pending submit.  Input and selection stay as they
// were so the user can retry.
func (s *State) SubmitFailed() { s.submitting = false }

// ClearSuccess lowers the success indicator raised with generation gen.
// Indicators raised later are left alone.
func (s *State) ClearSuccess(gen uint64) {
	if gen == s.successGen {
		s.success = false
	}
}

// AddReservation appends r and reports whether it was appended.  It is
// skipped only when dedup is on and a reservation with the same id is
// already present.
func (s *State) AddReservation(r model.Reservation) bool {
	if s.dedup && r.ID != "" && s.hasID(r.ID) {
		return false
	}
	s.reservations = append(s.reservations, r)
	if s.fetching() {
		s.added = append(s.added, r)
	}
	return true
}

// RemoveReservation drops the reservation with the given id and reports
// whether anything was removed.
func (s *State) RemoveReservation(id string) bool {
	if id == "" {
		return false
	}
	if s.fetching() {
		s.removed[id] = struct{}{}
		s.added = slices.DeleteFunc(s.added, func(r model.Reservation) bool { return r.ID == id })
	}
	before := len(s.reservations)
	s.reservations = slices.DeleteFunc(s.reservations, func(r model.Reservation) bool { return r.ID == id })
	return len(s.reservations) != before
}

func (s *State) hasID(id string) bool {
	return slices.ContainsFunc(s.reservations, func(r model.Reservation) bool { return r.ID == id })
}

// Snapshot copies the state and derives the grid and hover details.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Loading:      s.loading,
		Loaded:       s.loaded,
		LoadFailed:   s.loadFailed,
		Courts:       slices.Clone(s.courts),
		Reservations: slices.Clone(s.reservations),
		Selection:    s.selection,
		Name:         s.name,
		PartyNames:   s.partyNames,
		Submitting:   s.submitting,
		Success:      s.success,
		CanSubmit:    s.CanSubmit(),
	}
	if s.loaded {
		snap.Grid = Availability(s.courts, s.reservations, s.selection)
	}
	if s.hover != nil {
		snap.Hover = s.hoverDetails(*s.hover)
	}
	return snap
}

func (s *State) hoverDetails(cell Selection) *Hover {
	r, ok := FindReservation(s.reservations, cell.CourtID, cell.StartTime)
	if !ok {
		return nil
	}
	h := &Hover{Reservation: r, Slot: model.Slot{StartTime: r.StartTime, EndTime: r.EndTime}}
	if c, ok := model.FindCourt(s.courts, cell.CourtID); ok {
		h.CourtNumber = c.CourtNumber
		if slot, ok := c.SlotAt(cell.StartTime); ok {
			h.Slot = slot
		}
	}
	return h
}

// Snapshot is an immutable copy of the view model's state at one point of
// the event loop.  Grid is nil until the initial load succeeds.
type Snapshot struct {
	Loading    bool
	Loaded     bool
	LoadFailed bool

	Courts       []model.Court
	Reservations []model.Reservation
	Grid         []CourtAvailability

	Selection  Selection
	Hover      *Hover
	Name       string
	PartyNames string

	Submitting bool
	Success    bool
	CanSubmit  bool
}

// Hover describes the reservation under the pointer.
type Hover struct {
	CourtNumber int
	Slot        model.Slot
	Reservation model.Reservation
}

// SelectedCourt returns the selected court, if any.
func (s Snapshot) SelectedCourt() (model.Court, bool) {
	if !s.Selection.IsSet() {
		return model.Court{}, false
	}
	return model.FindCourt(s.Courts, s.Selection.CourtID)
}
