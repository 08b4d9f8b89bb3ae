package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SlotLength is the fixed duration of a bookable slot.  The client uses it
// to compute a reservation's end instant when it submits one.
const SlotLength = 90 * time.Minute

// Instant is a point in time as exchanged with the reservation backend.
// Backends are not consistent about how they spell the same instant
// (fractional seconds, offsets, missing zone), so every comparison goes
// through Key, which normalizes to UTC RFC 3339.
type Instant struct {
	t time.Time
}

// layouts accepted by ParseInstant, tried in order.  The zone-less layouts
// are interpreted as UTC.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// NewInstant wraps t.  The zero time yields the zero Instant.
func NewInstant(t time.Time) Instant {
	if t.IsZero() {
		return Instant{}
	}
	return Instant{t: t.UTC()}
}

// ParseInstant parses s leniently.  Leading and trailing whitespace is
// ignored.
func ParseInstant(s string) (Instant, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Instant{}, fmt.Errorf("parse instant: empty value")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewInstant(t), nil
		}
	}
	return Instant{}, fmt.Errorf("parse instant %q: unrecognised format", s)
}

// MustInstant is ParseInstant for literals known to be valid.
func MustInstant(s string) Instant {
	i, err := ParseInstant(s)
	if err != nil {
		panic(err)
	}
	return i
}

// Time returns the instant as a UTC time.Time.
func (i Instant) Time() time.Time { return i.t }

// IsZero reports whether the instant is unset.
func (i Instant) IsZero() bool { return i.t.IsZero() }

// Add returns the instant shifted by d.
func (i Instant) Add(d time.Duration) Instant { return NewInstant(i.t.Add(d)) }

// Before reports whether i is strictly before o.
func (i Instant) Before(o Instant) bool { return i.t.Before(o.t) }

// Equal compares normalized forms.
func (i Instant) Equal(o Instant) bool { return i.Key() == o.Key() }

// Key is the normalized representation used for equality and map keys.
// The zero Instant has an empty key.
func (i Instant) Key() string {
	if i.t.IsZero() {
		return ""
	}
	return i.t.UTC().Format(time.RFC3339Nano)
}

func (i Instant) String() string { return i.Key() }

// Clock formats the instant as HH:MM in loc (UTC when loc is nil).
func (i Instant) Clock(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return i.t.In(loc).Format("15:04")
}

func (i Instant) MarshalJSON() ([]byte, error) {
	if i.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(i.Key())
}

func (i *Instant) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*i = Instant{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("instant: %w", err)
	}
	parsed, err := ParseInstant(s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
