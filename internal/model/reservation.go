package model

import "encoding/json"

// Reservation is a confirmed booking of one slot on one court.  From the
// client's point of view it is immutable; it can only appear (fetch,
// submit response, push) or disappear (push).
//
// Fields:
//  ID         – backend-assigned identifier (accepted as "id" or "_id").
//  CourtID    – court the reservation belongs to.
//  StartTime  – slot start; together with CourtID it identifies the cell.
//  EndTime    – slot end.
//  UserName   – name of the person who booked.
//  PartyNames – free text listing the rest of the party.
type Reservation struct {
	ID         string  `json:"id"`
	CourtID    string  `json:"courtId"`
	StartTime  Instant `json:"startTime"`
	EndTime    Instant `json:"endTime"`
	UserName   string  `json:"userName"`
	PartyNames string  `json:"partyNames"`
}

// Occupies reports whether the reservation holds the (court, start) cell.
func (r Reservation) Occupies(courtID string, start Instant) bool {
	return r.CourtID == courtID && r.StartTime.Equal(start)
}

func (r *Reservation) UnmarshalJSON(b []byte) error {
	type plain Reservation
	var aux struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = Reservation(aux.plain)
	if r.ID == "" {
		r.ID = aux.MongoID
	}
	return nil
}

// CreateReservationRequest is the body of POST /reservations.
type CreateReservationRequest struct {
	CourtID    string  `json:"courtId"`
	UserName   string  `json:"userName"`
	PartyNames string  `json:"partyNames"`
	StartTime  Instant `json:"startTime"`
	EndTime    Instant `json:"endTime"`
}
