package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrequency(t *testing.T) {
	assert.Equal(t, "YEARLY", Yearly.String())
	assert.Equal(t, "SECONDLY", Secondly.String())
	assert.Equal(t, "FREQ(99)", Frequency(99).String())

	assert.True(t, Daily.Valid())
	assert.False(t, Frequency(-1).Valid())
	assert.False(t, Frequency(7).Valid())

	// Granularity comparisons rely on the declared order.
	assert.Less(t, Yearly, Monthly)
	assert.Less(t, Daily, Hourly)
}

func TestWeekday(t *testing.T) {
	assert.Equal(t, "MO", MO.String())
	assert.Equal(t, "2TU", TU.Nth(2).String())
	assert.Equal(t, "-1FR", FR.Nth(-1).String())
	assert.Equal(t, "Wednesday", WE.Name())

	assert.Equal(t, 1, TU.Day())
	assert.Equal(t, 0, TU.N())
	assert.Equal(t, -1, FR.Nth(-1).N())
	assert.Equal(t, 4, FR.Nth(-1).Day())
	assert.Equal(t, SA, SA.Nth(0))
}

func TestWeekdayIndex(t *testing.T) {
	// 2024-01-01 is a Monday, 2024-01-07 a Sunday.
	assert.Equal(t, 0, weekdayIndex(dt(2024, time.January, 1, 0, 0, 0)))
	assert.Equal(t, 6, weekdayIndex(dt(2024, time.January, 7, 0, 0, 0)))
}

func TestErrorMessages(t *testing.T) {
	verr := &ValidationError{Field: "interval", Reason: "must not be negative"}
	assert.Equal(t, "recurrence: invalid option interval: must not be negative", verr.Error())

	perr := &ParseError{Input: "FREQ=DAILY;FOO=1", Token: "FOO", Reason: "unknown rule key"}
	assert.Contains(t, perr.Error(), `"FOO"`)

	zerr := &UnsupportedZoneError{Zone: "Mars/Olympus", Err: assert.AnError}
	assert.Contains(t, zerr.Error(), "Mars/Olympus")
	assert.ErrorIs(t, zerr, assert.AnError)
}
