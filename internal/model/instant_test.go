package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstantNormalization(t *testing.T) {
	base := MustInstant("2024-01-01T10:00:00Z")
	same := []string{
		"2024-01-01T10:00:00.000Z",
		"2024-01-01T11:00:00+01:00",
		"2024-01-01T10:00:00",
		"2024-01-01 10:00:00",
		" 2024-01-01T10:00:00Z ",
	}
	for _, s := range same {
		got, err := ParseInstant(s)
		require.NoError(t, err, s)
		assert.True(t, base.Equal(got), s)
		assert.Equal(t, "2024-01-01T10:00:00Z", got.Key(), s)
	}

	other := MustInstant("2024-01-01T10:00:01Z")
	assert.False(t, base.Equal(other))
}

func TestParseInstantRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "   ", "10:00 - 11:30", "yesterday"} {
		_, err := ParseInstant(s)
		assert.Error(t, err, s)
	}
}

func TestInstantJSON(t *testing.T) {
	var got struct {
		At   Instant `json:"at"`
		Nope Instant `json:"nope"`
	}
	err := json.Unmarshal([]byte(`{"at":"2024-01-01T12:00:00.500+02:00","nope":null}`), &got)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T10:00:00.5Z", got.At.Key())
	assert.True(t, got.Nope.IsZero())

	b, err := json.Marshal(got.At.Add(90 * time.Minute))
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-01-01T11:30:00.5Z"`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`{"at":42}`), &got))
}

func TestInstantClock(t *testing.T) {
	i := MustInstant("2024-01-01T10:00:00Z")
	assert.Equal(t, "10:00", i.Clock(nil))

	loc := time.FixedZone("UTC+7", 7*60*60)
	assert.Equal(t, "17:00", i.Clock(loc))
}
