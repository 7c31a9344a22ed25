package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// iterInfo holds the per-year classification masks the iterator tests
// candidates against, plus the per-month nth-weekday mask when ordinal
// weekdays are in play. Masks are indexed by zero-based ordinal day of
// the year and extended seven slots past year end so a weekly window can
// peek into the next year without a rebuild. Rebuilds are lazy: the
// iterator calls rebuild whenever the counter enters a new year or month.
type iterInfo struct {
	spec *resolvedSpec

	lastYear  int
	lastMonth int

	yearlen     int
	nextyearlen int
	jan1        time.Time
	yearweekday int

	mmask      []int // month owning each ordinal day
	mdaymask   []int // positive day of month
	nmdaymask  []int // negative day of month (-1 = last)
	wdaymask   []int // ISO weekday cycle rotated to the year's start
	mrange     []int // cumulative first-ordinal of each month, 13 entries
	wnomask    []bool
	eastermask []bool
	nwdaymask  []bool
}

func newIterInfo(spec *resolvedSpec) *iterInfo {
	return &iterInfo{spec: spec, lastYear: -1, lastMonth: -1}
}

func (ii *iterInfo) rebuild(year, month int) {
	spec := ii.spec
	if year != ii.lastYear {
		ii.rebuildYear(year)
	}
	if len(spec.bynweekday) != 0 && (month != ii.lastMonth || year != ii.lastYear) {
		ii.rebuildNthWeekday(year, month)
	}
	ii.lastYear = year
	ii.lastMonth = month
}

func (ii *iterInfo) rebuildYear(year int) {
	spec := ii.spec

	ii.yearlen = yearLength(year)
	ii.nextyearlen = yearLength(year + 1)
	ii.jan1 = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	ii.yearweekday = weekdayIndex(ii.jan1)

	n := ii.yearlen + 7
	ii.mmask = make([]int, n)
	ii.mdaymask = make([]int, n)
	ii.nmdaymask = make([]int, n)
	ii.wdaymask = make([]int, n)
	ii.mrange = make([]int, 13)

	idx := 0
	for m := 1; m <= 12; m++ {
		ii.mrange[m-1] = idx
		dim := daysInMonth(year, m)
		for d := 1; d <= dim; d++ {
			ii.mmask[idx] = m
			ii.mdaymask[idx] = d
			ii.nmdaymask[idx] = d - dim - 1
			idx++
		}
	}
	ii.mrange[12] = idx

	// Extension: the first week of next January.
	dimNext := daysInMonth(year+1, 1)
	for d := 1; idx < n; d++ {
		ii.mmask[idx] = 1
		ii.mdaymask[idx] = d
		ii.nmdaymask[idx] = d - dimNext - 1
		idx++
	}

	for i := range ii.wdaymask {
		ii.wdaymask[i] = (ii.yearweekday + i) % 7
	}

	if len(spec.byweekno) != 0 {
		ii.rebuildWeekNumbers(year)
	} else {
		ii.wnomask = nil
	}

	if len(spec.byeaster) != 0 {
		ii.eastermask = make([]bool, n)
		e := easterOrdinal(year)
		for _, offset := range spec.byeaster {
			if i := e + offset; i >= 0 && i < n {
				ii.eastermask[i] = true
			}
		}
	} else {
		ii.eastermask = nil
	}
}

// rebuildWeekNumbers marks the ordinal days belonging to a selected week
// number. Week 1 is the first week with at least four days inside the
// year (the ISO Thursday rule generalized to an arbitrary week start);
// negative numbers count from the year's last week. Week 1 of the next
// year and the last week of the previous year are also checked where
// they reach into this year's day range.
func (ii *iterInfo) rebuildWeekNumbers(year int) {
	spec := ii.spec
	wkst := spec.wkst
	ii.wnomask = make([]bool, ii.yearlen+7)

	no1wkst := pymod(7-ii.yearweekday+wkst, 7)
	firstwkst := no1wkst
	var wyearlen int
	if no1wkst >= 4 {
		no1wkst = 0
		wyearlen = ii.yearlen + pymod(ii.yearweekday-wkst, 7)
	} else {
		wyearlen = ii.yearlen - no1wkst
	}
	numweeks := wyearlen/7 + wyearlen%7/4

	for _, n := range spec.byweekno {
		if n < 0 {
			n += numweeks + 1
		}
		if n <= 0 || n > numweeks {
			continue
		}
		var i int
		if n > 1 {
			i = no1wkst + (n-1)*7
			if no1wkst != firstwkst {
				i -= 7 - firstwkst
			}
		} else {
			i = no1wkst
		}
		for k := 0; k < 7; k++ {
			if i >= len(ii.wnomask) {
				break
			}
			ii.wnomask[i] = true
			i++
			if ii.wdaymask[i] == wkst {
				break
			}
		}
	}

	if contains(spec.byweekno, 1) {
		// Week 1 of the next year may claim days of this year's tail.
		i := no1wkst + numweeks*7
		if no1wkst != firstwkst {
			i -= 7 - firstwkst
		}
		if i < ii.yearlen {
			for k := 0; k < 7; k++ {
				ii.wnomask[i] = true
				i++
				if ii.wdaymask[i] == wkst {
					break
				}
			}
		}
	}

	if no1wkst > 0 {
		// Days before week 1 belong to the previous year's last week.
		var lnumweeks int
		if !contains(spec.byweekno, -1) {
			lyearweekday := weekdayIndex(time.Date(year-1, time.January, 1, 0, 0, 0, 0, time.UTC))
			lno1wkst := pymod(7-lyearweekday+wkst, 7)
			lyearlen := yearLength(year - 1)
			if lno1wkst >= 4 {
				lnumweeks = 52 + pymod(lyearlen+pymod(lyearweekday-wkst, 7), 7)/4
			} else {
				lnumweeks = 52 + (ii.yearlen-no1wkst)%7/4
			}
		} else {
			lnumweeks = -1
		}
		if contains(spec.byweekno, lnumweeks) {
			for i := 0; i < no1wkst; i++ {
				ii.wnomask[i] = true
			}
		}
	}
}

// rebuildNthWeekday marks, for every month range the frequency implies,
// the single day satisfying each (weekday, n) pair: the n-th such
// weekday from the range start for positive n, from the range end for
// negative n.
func (ii *iterInfo) rebuildNthWeekday(year, month int) {
	spec := ii.spec

	var ranges [][2]int
	switch spec.freq {
	case Yearly:
		if len(spec.bymonth) != 0 {
			for _, m := range spec.bymonth {
				ranges = append(ranges, [2]int{ii.mrange[m-1], ii.mrange[m]})
			}
		} else {
			ranges = [][2]int{{0, ii.yearlen}}
		}
	case Monthly:
		ranges = [][2]int{{ii.mrange[month-1], ii.mrange[month]}}
	}

	ii.nwdaymask = make([]bool, ii.yearlen+7)
	for _, r := range ranges {
		first, last := r[0], r[1]-1
		for _, wd := range spec.bynweekday {
			var i int
			if wd.N() < 0 {
				i = last + (wd.N()+1)*7
				if i < 0 || i >= len(ii.wdaymask) {
					continue
				}
				i -= pymod(ii.wdaymask[i]-wd.Day(), 7)
			} else {
				i = first + (wd.N()-1)*7
				if i < 0 || i >= len(ii.wdaymask) {
					continue
				}
				i += pymod(7-ii.wdaymask[i]+wd.Day(), 7)
			}
			if first <= i && i <= last {
				ii.nwdaymask[i] = true
			}
		}
	}
}

// daySet returns the candidate day slots for the current period. Slots
// are ordinal-day indices wrapped in mo.Option so filtering can null a
// slot without disturbing the positions bysetpos addresses. The returned
// start/end bound the slice range holding the period's days.
func (ii *iterInfo) daySet(freq Frequency, c *clock) ([]mo.Option[int], int, int) {
	switch freq {
	case Yearly:
		set := make([]mo.Option[int], ii.yearlen)
		for i := range set {
			set[i] = mo.Some(i)
		}
		return set, 0, ii.yearlen

	case Monthly:
		set := make([]mo.Option[int], ii.yearlen)
		start, end := ii.mrange[c.month-1], ii.mrange[c.month]
		for i := start; i < end; i++ {
			set[i] = mo.Some(i)
		}
		return set, start, end

	case Weekly:
		// A 7-day window anchored at the counter, crossing into the
		// mask extension (and hence the next year) when necessary.
		set := make([]mo.Option[int], ii.yearlen+7)
		i := ii.ordinalOf(c)
		start := i
		for k := 0; k < 7; k++ {
			set[i] = mo.Some(i)
			i++
			if ii.wdaymask[i] == ii.spec.wkst {
				break
			}
		}
		return set, start, i

	default:
		set := make([]mo.Option[int], ii.yearlen)
		i := ii.ordinalOf(c)
		set[i] = mo.Some(i)
		return set, i, i + 1
	}
}

// ordinalOf returns the zero-based ordinal of the counter's date within
// the rebuilt year.
func (ii *iterInfo) ordinalOf(c *clock) int {
	return time.Date(c.year, time.Month(c.month), c.day, 0, 0, 0, 0, time.UTC).YearDay() - 1
}

// dateOf converts an ordinal day index back into a calendar date,
// following the extension into the next year when i >= yearlen.
func (ii *iterInfo) dateOf(i int) (year, month, day int) {
	d := ii.jan1.AddDate(0, 0, i)
	return d.Year(), int(d.Month()), d.Day()
}

// timeSet returns the time combinations for one candidate day at
// sub-daily frequencies, derived from the counter's current position.
func (ii *iterInfo) timeSet(freq Frequency, c *clock) []timeSlot {
	spec := ii.spec
	switch freq {
	case Hourly:
		set := make([]timeSlot, 0, len(spec.byminute)*len(spec.bysecond))
		for _, m := range spec.byminute {
			for _, s := range spec.bysecond {
				set = append(set, timeSlot{c.hour, m, s})
			}
		}
		return set
	case Minutely:
		set := make([]timeSlot, 0, len(spec.bysecond))
		for _, s := range spec.bysecond {
			set = append(set, timeSlot{c.hour, c.minute, s})
		}
		return set
	default:
		return []timeSlot{{c.hour, c.minute, c.second}}
	}
}

// matches reports whether ordinal day i satisfies every active BY-rule.
func (ii *iterInfo) matches(i int) bool {
	spec := ii.spec
	if len(spec.bymonth) != 0 && !contains(spec.bymonth, ii.mmask[i]) {
		return false
	}
	if len(spec.byweekno) != 0 && !ii.wnomask[i] {
		return false
	}
	if len(spec.byweekday) != 0 && !contains(spec.byweekday, ii.wdaymask[i]) {
		return false
	}
	if ii.nwdaymask != nil && len(spec.bynweekday) != 0 && !ii.nwdaymask[i] {
		return false
	}
	if len(spec.byeaster) != 0 && !ii.eastermask[i] {
		return false
	}
	if (len(spec.bymonthday) != 0 || len(spec.bynmonthday) != 0) &&
		!contains(spec.bymonthday, ii.mdaymask[i]) &&
		!contains(spec.bynmonthday, ii.nmdaymask[i]) {
		return false
	}
	if len(spec.byyearday) != 0 {
		// Both "from year start" and "from year end" readings count; a
		// day inside the extension resolves against the next year.
		if i < ii.yearlen {
			if !contains(spec.byyearday, i+1) && !contains(spec.byyearday, -ii.yearlen+i) {
				return false
			}
		} else {
			if !contains(spec.byyearday, i+1-ii.yearlen) && !contains(spec.byyearday, -ii.nextyearlen+i-ii.yearlen) {
				return false
			}
		}
	}
	return true
}

// pymod is the floored modulo, always in [0, m).
func pymod(a, m int) int {
	return ((a % m) + m) % m
}
