package recurrence

import (
	"slices"
	"time"

	"github.com/samber/mo"
)

// iterate is the occurrence generator: it walks periods with the clock,
// filters each period's day slots against the active BY-rules, applies
// bysetpos selection, and offers every surviving moment to accept in
// chronological order. accept returning false stops iteration; this is
// the engine's only suspension point. iterate never fails; rules that
// cannot produce anything simply terminate.
func (s *resolvedSpec) iterate(accept func(time.Time) bool) {
	if s.interval == 0 {
		return
	}
	count, hasCount := s.count.Get()
	if hasCount && count == 0 {
		return
	}
	until, hasUntil := s.until.Get()

	c := clockAt(s.dtstart)
	ii := newIterInfo(s)
	ii.rebuild(c.year, c.month)

	var timeset []timeSlot
	if s.freq < Hourly {
		timeset = s.timeset
	} else if !subDailyMismatch(s, &c) {
		timeset = ii.timeSet(s.freq, &c)
	}

	for {
		dayset, start, end := ii.daySet(s.freq, &c)

		// Rejected slots are nulled, not removed, so bysetpos still
		// addresses original positions.
		filtered := false
		for i := start; i < end; i++ {
			idx, ok := dayset[i].Get()
			if !ok {
				continue
			}
			if !ii.matches(idx) {
				dayset[i] = mo.None[int]()
				filtered = true
			}
		}

		if len(s.bysetpos) != 0 && len(timeset) != 0 {
			var live []int
			for i := start; i < end; i++ {
				if idx, ok := dayset[i].Get(); ok {
					live = append(live, idx)
				}
			}
			poslist := make([]time.Time, 0, len(s.bysetpos))
			for _, pos := range s.bysetpos {
				var daypos, timepos int
				if pos < 0 {
					timepos = pymod(pos, len(timeset))
					daypos = (pos - timepos) / len(timeset)
				} else {
					daypos = (pos - 1) / len(timeset)
					timepos = (pos - 1) % len(timeset)
				}
				di := daypos
				if di < 0 {
					di += len(live)
				}
				if di < 0 || di >= len(live) {
					continue
				}
				t := ii.compose(live[di], timeset[timepos], s)
				if !slices.ContainsFunc(poslist, t.Equal) {
					poslist = append(poslist, t)
				}
			}
			slices.SortFunc(poslist, time.Time.Compare)
			for _, t := range poslist {
				if hasUntil && t.After(until) {
					return
				}
				if t.Before(s.dtstart) {
					continue
				}
				if !accept(t) {
					return
				}
				if hasCount {
					if count--; count == 0 {
						return
					}
				}
			}
		} else {
			for i := start; i < end; i++ {
				idx, ok := dayset[i].Get()
				if !ok {
					continue
				}
				for _, ts := range timeset {
					t := ii.compose(idx, ts, s)
					if hasUntil && t.After(until) {
						return
					}
					if t.Before(s.dtstart) {
						continue
					}
					if !accept(t) {
						return
					}
					if hasCount {
						if count--; count == 0 {
							return
						}
					}
				}
			}
		}

		if !c.advance(s, filtered) {
			return
		}
		if c.year > maxIterYear {
			return
		}
		if s.freq >= Hourly {
			timeset = ii.timeSet(s.freq, &c)
		}
		ii.rebuild(c.year, c.month)
	}
}

// compose materializes one (ordinal day, time slot) candidate in the
// spec's zone, carrying the anchor's millisecond.
func (ii *iterInfo) compose(idx int, ts timeSlot, s *resolvedSpec) time.Time {
	y, m, d := ii.dateOf(idx)
	return time.Date(y, time.Month(m), d, ts.hour, ts.minute, ts.second, s.nsec, s.loc)
}

// subDailyMismatch reports whether the counter's starting position is
// outside the sub-daily constraints, in which case the first period
// emits nothing and the clock search finds the first matching slot.
func subDailyMismatch(s *resolvedSpec, c *clock) bool {
	if s.freq >= Hourly && len(s.byhour) != 0 && !contains(s.byhour, c.hour) {
		return true
	}
	if s.freq >= Minutely && len(s.byminute) != 0 && !contains(s.byminute, c.minute) {
		return true
	}
	if s.freq >= Secondly && len(s.bysecond) != 0 && !contains(s.bysecond, c.second) {
		return true
	}
	return false
}
