package recurrence

import (
	"fmt"
	"slices"
	"time"

	"github.com/samber/mo"
)

// Options is the sparse, caller-facing description of a recurrence
// pattern. The zero value of every field means "unset"; fields whose
// zero value is meaningful (Interval, Count, Until) use mo.Option so an
// explicit zero can be told apart from absence. Options are resolved
// into an immutable spec by NewRule; changing a pattern means building
// a new rule from amended Options, never mutating a shared one.
type Options struct {
	Freq    Frequency
	Dtstart time.Time

	// Interval defaults to 1. An explicit 0 yields an empty rule.
	Interval mo.Option[int]

	// Count and Until are mutually exclusive; both absent means the
	// rule is unbounded. An explicit Count of 0 yields an empty rule.
	Count mo.Option[int]
	Until mo.Option[time.Time]

	// Wkst is the day that begins a week; the zero value is Monday.
	Wkst Weekday

	Bysetpos   []int
	Bymonth    []int
	Bymonthday []int
	Byyearday  []int
	Byweekno   []int
	Byweekday  []Weekday
	Byeaster   []int
	Byhour     []int
	Byminute   []int
	Bysecond   []int

	// Tzid names the zone occurrences are emitted in. An unresolvable
	// zone degrades to UTC (see Rule.ZoneError); it never fails the rule.
	Tzid string
}

// timeSlot is one hour/minute/second combination of a period's time set.
type timeSlot struct {
	hour, minute, second int
}

func timeSlotLess(a, b timeSlot) int {
	if a.hour != b.hour {
		return a.hour - b.hour
	}
	if a.minute != b.minute {
		return a.minute - b.minute
	}
	return a.second - b.second
}

// resolvedSpec is the canonical, fully-resolved form of Options. It is
// immutable once built; iteration and the codecs read it but never write.
type resolvedSpec struct {
	freq     Frequency
	interval int
	dtstart  time.Time
	wkst     int
	count    mo.Option[int]
	until    mo.Option[time.Time]

	bysetpos    []int
	bymonth     []int
	bymonthday  []int
	bynmonthday []int
	byyearday   []int
	byweekno    []int
	byweekday   []int
	bynweekday  []Weekday
	byeaster    []int
	byhour      []int
	byminute    []int
	bysecond    []int

	loc  *time.Location
	tzid string

	// millisecond of dtstart, carried verbatim into every occurrence,
	// stored as whole-millisecond nanoseconds.
	nsec int

	// precomputed hour x minute x second cross product, valid for
	// daily-or-coarser frequencies.
	timeset []timeSlot
}

// hasDayRule reports whether any day-selecting BY-rule is present.
func (s *resolvedSpec) hasDayRule() bool {
	return len(s.byweekno) != 0 || len(s.byyearday) != 0 ||
		len(s.bymonthday) != 0 || len(s.bynmonthday) != 0 ||
		len(s.byweekday) != 0 || len(s.bynweekday) != 0 ||
		len(s.byeaster) != 0
}

func validateRange(field string, values []int, min, max int, allowNegative bool) ([]int, error) {
	out := make([]int, 0, len(values))
	for _, v := range values {
		ok := v >= min && v <= max
		if allowNegative && v >= -max && v <= -min {
			ok = true
		}
		if !ok || v == 0 && min > 0 {
			return nil, &ValidationError{Field: field, Reason: fmt.Sprintf("value %d out of range", v)}
		}
		out = append(out, v)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// resolveOptions turns sparse Options into a resolvedSpec, applying the
// defaulting, splitting and validation rules. All validation happens
// here; iteration never raises.
func resolveOptions(opts Options) (resolvedSpec, *UnsupportedZoneError, error) {
	var spec resolvedSpec

	if !opts.Freq.Valid() {
		return spec, nil, &ValidationError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %d", int(opts.Freq))}
	}
	spec.freq = opts.Freq

	spec.interval = 1
	if v, ok := opts.Interval.Get(); ok {
		if v < 0 {
			return spec, nil, &ValidationError{Field: "interval", Reason: "must not be negative"}
		}
		spec.interval = v
	}

	if opts.Count.IsPresent() && opts.Until.IsPresent() {
		return spec, nil, &ValidationError{Field: "count", Reason: "count and until are mutually exclusive"}
	}
	if v, ok := opts.Count.Get(); ok {
		if v < 0 {
			return spec, nil, &ValidationError{Field: "count", Reason: "must not be negative"}
		}
		spec.count = mo.Some(v)
	}

	if opts.Wkst.N() != 0 {
		return spec, nil, &ValidationError{Field: "wkst", Reason: "week start must be a bare weekday"}
	}
	if opts.Wkst.Day() < 0 || opts.Wkst.Day() > 6 {
		return spec, nil, &ValidationError{Field: "wkst", Reason: "not a weekday"}
	}
	spec.wkst = opts.Wkst.Day()

	// Zone resolution happens before date handling so dtstart and until
	// can be rezoned into the target zone. An unknown zone degrades to
	// UTC; the error is reported but does not fail construction.
	var zoneErr *UnsupportedZoneError
	spec.loc = time.UTC
	spec.tzid = opts.Tzid
	if opts.Tzid != "" {
		loc, err := time.LoadLocation(opts.Tzid)
		if err != nil {
			zoneErr = &UnsupportedZoneError{Zone: opts.Tzid, Err: err}
		} else {
			spec.loc = loc
		}
	} else if !opts.Dtstart.IsZero() {
		spec.loc = opts.Dtstart.Location()
	}

	dtstart := opts.Dtstart
	if dtstart.IsZero() {
		dtstart = time.Now().In(spec.loc)
	}
	if dtstart.Year() < 1 || dtstart.Year() > maxIterYear {
		return spec, nil, &ValidationError{Field: "dtstart", Reason: "year out of supported range"}
	}
	spec.nsec = dtstart.Nanosecond() / 1e6 * 1e6
	spec.dtstart = rezone(dtstart, spec.loc, spec.nsec)

	if v, ok := opts.Until.Get(); ok {
		spec.until = mo.Some(rezone(v, spec.loc, v.Nanosecond()/1e6*1e6))
	}

	for _, v := range opts.Bysetpos {
		if v == 0 || v < -366 || v > 366 {
			return spec, nil, &ValidationError{Field: "bysetpos", Reason: fmt.Sprintf("position %d outside [-366,366] or zero", v)}
		}
	}
	spec.bysetpos = slices.Clone(opts.Bysetpos)

	var err error
	if spec.bymonth, err = validateRange("bymonth", opts.Bymonth, 1, 12, false); err != nil {
		return spec, nil, err
	}
	if spec.byyearday, err = validateRange("byyearday", opts.Byyearday, 1, 366, true); err != nil {
		return spec, nil, err
	}
	if spec.byweekno, err = validateRange("byweekno", opts.Byweekno, 1, 53, true); err != nil {
		return spec, nil, err
	}
	if spec.byeaster, err = validateRange("byeaster", opts.Byeaster, -366, 366, false); err != nil {
		return spec, nil, err
	}

	// Month days split into positive and negative lists.
	for _, v := range opts.Bymonthday {
		switch {
		case v > 0 && v <= 31:
			spec.bymonthday = append(spec.bymonthday, v)
		case v < 0 && v >= -31:
			spec.bynmonthday = append(spec.bynmonthday, v)
		default:
			return spec, nil, &ValidationError{Field: "bymonthday", Reason: fmt.Sprintf("day %d out of range", v)}
		}
	}
	slices.Sort(spec.bymonthday)
	slices.Sort(spec.bynmonthday)

	// Weekdays split into absolute and nth lists. Ordinal weekdays only
	// mean something within a month or year period; for finer
	// frequencies they degrade to the bare weekday. Combining an
	// ordinal weekday with week numbers is contradictory.
	for _, wd := range opts.Byweekday {
		if wd.Day() < 0 || wd.Day() > 6 {
			return spec, nil, &ValidationError{Field: "byweekday", Reason: "not a weekday"}
		}
		if wd.N() == 0 || spec.freq > Monthly {
			spec.byweekday = append(spec.byweekday, wd.Day())
			continue
		}
		if len(opts.Byweekno) != 0 {
			return spec, nil, &ValidationError{Field: "byweekday", Reason: fmt.Sprintf("ordinal weekday %s cannot be combined with byweekno", wd)}
		}
		if wd.N() < -53 || wd.N() > 53 {
			return spec, nil, &ValidationError{Field: "byweekday", Reason: fmt.Sprintf("ordinal %d out of range", wd.N())}
		}
		spec.bynweekday = append(spec.bynweekday, wd)
	}
	slices.Sort(spec.byweekday)
	spec.byweekday = slices.Compact(spec.byweekday)

	// With no day-selecting rule at all, the anchor date supplies one.
	if !spec.hasDayRule() {
		switch spec.freq {
		case Yearly:
			if len(spec.bymonth) == 0 {
				spec.bymonth = []int{int(spec.dtstart.Month())}
			}
			spec.bymonthday = []int{spec.dtstart.Day()}
		case Monthly:
			spec.bymonthday = []int{spec.dtstart.Day()}
		case Weekly:
			spec.byweekday = []int{weekdayIndex(spec.dtstart)}
		}
	}

	// Sub-daily fields default from the anchor whenever the frequency is
	// coarser than the unit; at or below the unit they stay empty,
	// meaning "match the counter's current value".
	if spec.byhour, err = validateRange("byhour", opts.Byhour, 0, 23, false); err != nil {
		return spec, nil, err
	}
	if len(spec.byhour) == 0 && spec.freq < Hourly {
		spec.byhour = []int{spec.dtstart.Hour()}
	}
	if spec.byminute, err = validateRange("byminute", opts.Byminute, 0, 59, false); err != nil {
		return spec, nil, err
	}
	if len(spec.byminute) == 0 && spec.freq < Minutely {
		spec.byminute = []int{spec.dtstart.Minute()}
	}
	if spec.bysecond, err = validateRange("bysecond", opts.Bysecond, 0, 59, false); err != nil {
		return spec, nil, err
	}
	if len(spec.bysecond) == 0 && spec.freq < Secondly {
		spec.bysecond = []int{spec.dtstart.Second()}
	}

	if spec.freq < Hourly {
		spec.timeset = make([]timeSlot, 0, len(spec.byhour)*len(spec.byminute)*len(spec.bysecond))
		for _, h := range spec.byhour {
			for _, m := range spec.byminute {
				for _, s := range spec.bysecond {
					spec.timeset = append(spec.timeset, timeSlot{h, m, s})
				}
			}
		}
		slices.SortFunc(spec.timeset, timeSlotLess)
	}

	return spec, zoneErr, nil
}

// rezone reinterprets t's wall-clock fields in loc, truncating the
// sub-millisecond part to the engine's millisecond contract.
func rezone(t time.Time, loc *time.Location, nsec int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), nsec, loc)
}
