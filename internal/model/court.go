package model

import "encoding/json"

// Court is a bookable court as returned by GET /courts.  The backend owns
// the slot list; the client never computes slots itself.
//
// Fields:
//  ID          – backend identifier (accepted as "id" or "_id").
//  CourtNumber – number shown to users ("Court 3").
//  Slots       – ordered bookable slots for this court.
type Court struct {
	ID          string `json:"id"`
	CourtNumber int    `json:"courtNumber"`
	Slots       []Slot `json:"slots"`
}

// Slot is a bookable interval on a court.  EndTime is optional on the
// wire; End falls back to StartTime + SlotLength.
type Slot struct {
	StartTime Instant `json:"startTime"`
	EndTime   Instant `json:"endTime,omitzero"`
}

// End returns the slot's end instant.
func (s Slot) End() Instant {
	if !s.EndTime.IsZero() {
		return s.EndTime
	}
	return s.StartTime.Add(SlotLength)
}

// HasSlot reports whether the court offers a slot starting at start.
func (c Court) HasSlot(start Instant) bool {
	_, ok := c.SlotAt(start)
	return ok
}

// SlotAt returns the court's slot starting at start.
func (c Court) SlotAt(start Instant) (Slot, bool) {
	for _, s := range c.Slots {
		if s.StartTime.Equal(start) {
			return s, true
		}
	}
	return Slot{}, false
}

func (c *Court) UnmarshalJSON(b []byte) error {
	type plain Court
	var aux struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*c = Court(aux.plain)
	if c.ID == "" {
		c.ID = aux.MongoID
	}
	return nil
}

// FindCourt returns the court with the given id.
func FindCourt(courts []Court, id string) (Court, bool) {
	for _, c := range courts {
		if c.ID == id {
			return c, true
		}
	}
	return Court{}, false
}
