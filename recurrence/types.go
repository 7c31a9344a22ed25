package recurrence

import (
	"fmt"
	"time"
)

// Frequency is the coarsest period granularity of a recurrence pattern.
// The ordering matters: a smaller value is a coarser period, which lets
// resolution and iteration code compare granularities directly.
type Frequency int

const (
	Yearly Frequency = iota
	Monthly
	Weekly
	Daily
	Hourly
	Minutely
	Secondly
)

var frequencyNames = [...]string{
	Yearly:   "YEARLY",
	Monthly:  "MONTHLY",
	Weekly:   "WEEKLY",
	Daily:    "DAILY",
	Hourly:   "HOURLY",
	Minutely: "MINUTELY",
	Secondly: "SECONDLY",
}

// String returns the canonical upper-case name of the frequency.
func (f Frequency) String() string {
	if f < Yearly || f > Secondly {
		return fmt.Sprintf("FREQ(%d)", int(f))
	}
	return frequencyNames[f]
}

// Valid reports whether f is one of the seven defined frequencies.
func (f Frequency) Valid() bool {
	return f >= Yearly && f <= Secondly
}

// Weekday identifies a day of the week, optionally qualified with an
// ordinal: Tuesday.Nth(2) is "the second Tuesday of the period" and
// Friday.Nth(-1) is "the last Friday". The week runs Monday through
// Sunday with Monday at index 0, matching ISO-8601 rather than
// time.Weekday's Sunday-first numbering.
type Weekday struct {
	weekday int
	n       int
}

// Weekdays in ISO order.
var (
	MO = Weekday{weekday: 0}
	TU = Weekday{weekday: 1}
	WE = Weekday{weekday: 2}
	TH = Weekday{weekday: 3}
	FR = Weekday{weekday: 4}
	SA = Weekday{weekday: 5}
	SU = Weekday{weekday: 6}
)

var weekdayCodes = [...]string{"MO", "TU", "WE", "TH", "FR", "SA", "SU"}

var weekdayLongNames = [...]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// Nth returns a copy of w qualified with the given ordinal. An ordinal of
// zero is not a valid qualifier; Nth(0) returns the bare weekday.
func (w Weekday) Nth(n int) Weekday {
	return Weekday{weekday: w.weekday, n: n}
}

// Day returns the ISO weekday index, Monday being 0.
func (w Weekday) Day() int { return w.weekday }

// N returns the ordinal qualifier, or 0 when the weekday is unqualified.
func (w Weekday) N() int { return w.n }

// String renders the weekday in its canonical two-letter form, with the
// ordinal prefixed when present (e.g. "2TU", "-1FR").
func (w Weekday) String() string {
	code := "??"
	if w.weekday >= 0 && w.weekday < 7 {
		code = weekdayCodes[w.weekday]
	}
	if w.n != 0 {
		return fmt.Sprintf("%d%s", w.n, code)
	}
	return code
}

// Name returns the English name of the weekday ("Monday", ...).
func (w Weekday) Name() string {
	if w.weekday >= 0 && w.weekday < 7 {
		return weekdayLongNames[w.weekday]
	}
	return "?"
}

// weekdayIndex converts a time.Time weekday (Sunday=0) to ISO index (Monday=0).
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Iteration aborts once the calendar counter passes this year; unbounded
// rules with unsatisfiable constraints terminate instead of spinning.
const maxIterYear = 9999

var monthLongNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var daysInMonths = [...]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// isLeapYear implements the Gregorian rule.
func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func yearLength(year int) int {
	if isLeapYear(year) {
		return 366
	}
	return 365
}

func daysInMonth(year, month int) int {
	if month == 2 && isLeapYear(year) {
		return 29
	}
	return daysInMonths[month-1]
}
