// Package queue carries reservation push notifications from the backend to
// connected clients.  It defines the event names and payload decoding and
// provides subscribers for RabbitMQ and Redis pub/sub.
package queue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/court-reservation/internal/model"
)

// Push event names.  They double as AMQP routing keys and as the suffix of
// Redis channel names.
const (
	EventNewReservation     = "newReservation"
	EventDeletedReservation = "deletedReservation"
)

// Events lists every event a client subscribes to.
var Events = []string{EventNewReservation, EventDeletedReservation}

// ErrEmptyPayload is returned when a push message carries nothing usable.
var ErrEmptyPayload = errors.New("empty push payload")

// DeletedReservation is the payload published for EventDeletedReservation.
type DeletedReservation struct {
	ID string `json:"id"`
}

// DecodeNewReservation decodes the payload of EventNewReservation.  A
// reservation without an id is rejected since it could never be removed
// again.
func DecodeNewReservation(payload []byte) (model.Reservation, error) {
	var r model.Reservation
	if len(bytes.TrimSpace(payload)) == 0 {
		return r, ErrEmptyPayload
	}
	if err := json.Unmarshal(payload, &r); err != nil {
		return r, fmt.Errorf("decode %s: %w", EventNewReservation, err)
	}
	if r.ID == "" {
		return r, fmt.Errorf("decode %s: missing id", EventNewReservation)
	}
	return r, nil
}

// DecodeDeletedReservation extracts the reservation id from the payload of
// EventDeletedReservation.  Backends send either a bare JSON string, an
// object with "id" or "_id", or the raw id as text.
func DecodeDeletedReservation(payload []byte) (string, error) {
	p := bytes.TrimSpace(payload)
	if len(p) == 0 {
		return "", ErrEmptyPayload
	}
	switch p[0] {
	case '"':
		var id string
		if err := json.Unmarshal(p, &id); err != nil {
			return "", fmt.Errorf("decode %s: %w", EventDeletedReservation, err)
		}
		return nonEmpty(id)
	case '{':
		var obj struct {
			ID      string `json:"id"`
			MongoID string `json:"_id"`
		}
		if err := json.Unmarshal(p, &obj); err != nil {
			return "", fmt.Errorf("decode %s: %w", EventDeletedReservation, err)
		}
		if obj.ID != "" {
			return obj.ID, nil
		}
		return nonEmpty(obj.MongoID)
	}
	return nonEmpty(string(p))
}

func nonEmpty(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrEmptyPayload
	}
	return id, nil
}
