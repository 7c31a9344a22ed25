package recurrence

import "time"

// clock is the mutable calendar counter driving iteration. Fields are
// plain integers so overflow handling stays explicit: day overflow after
// month or year arithmetic rolls forward through subsequent months
// rather than clamping to the month's last day. "Every month on the
// 31st" therefore skips short months entirely instead of visiting them.
type clock struct {
	year, month, day     int
	hour, minute, second int
}

func clockAt(t time.Time) clock {
	return clock{
		year:   t.Year(),
		month:  int(t.Month()),
		day:    t.Day(),
		hour:   t.Hour(),
		minute: t.Minute(),
		second: t.Second(),
	}
}

// weekday returns the ISO weekday index (Monday=0) of the counter's date.
func (c *clock) weekday() int {
	return weekdayIndex(time.Date(c.year, time.Month(c.month), c.day, 0, 0, 0, 0, time.UTC))
}

// fixDay rolls day overflow forward through months, carrying into the
// year as needed. Reports false once the counter passes the supported
// year ceiling.
func (c *clock) fixDay() bool {
	if c.day <= 28 {
		return true
	}
	for c.day > daysInMonth(c.year, c.month) {
		c.day -= daysInMonth(c.year, c.month)
		c.month++
		if c.month > 12 {
			c.month = 1
			c.year++
			if c.year > maxIterYear {
				return false
			}
		}
	}
	return true
}

// advance moves the counter one period forward for spec's frequency and
// interval. justFiltered reports whether the period just emitted had any
// candidate rejected by filtering, which lets sub-daily frequencies jump
// ahead instead of re-testing a day that cannot match. Reports false
// when the counter leaves the supported range or no matching sub-daily
// slot exists.
func (c *clock) advance(spec *resolvedSpec, justFiltered bool) bool {
	interval := spec.interval
	switch spec.freq {
	case Yearly:
		c.year += interval
		if c.year > maxIterYear {
			return false
		}
		return c.fixDay()

	case Monthly:
		c.month += interval
		if c.month > 12 {
			c.year += (c.month - 1) / 12
			c.month = (c.month-1)%12 + 1
			if c.year > maxIterYear {
				return false
			}
		}
		return c.fixDay()

	case Weekly:
		// Anchor the step to the configured week start: move to the
		// next wkst boundary, then whole weeks from there.
		wd := c.weekday()
		if spec.wkst > wd {
			c.day += -(wd + 1 + (6 - spec.wkst)) + interval*7
		} else {
			c.day += -(wd - spec.wkst) + interval*7
		}
		return c.fixDay()

	case Daily:
		c.day += interval
		return c.fixDay()

	case Hourly:
		if justFiltered {
			// Jump to one step before the next day.
			c.hour += ((23 - c.hour) / interval) * interval
		}
		for k := 0; k < 24/gcd(interval, 24)+1; k++ {
			c.hour += interval
			if c.hour > 23 {
				c.day += c.hour / 24
				c.hour %= 24
				if !c.fixDay() {
					return false
				}
			}
			if len(spec.byhour) == 0 || contains(spec.byhour, c.hour) {
				return true
			}
		}
		return false

	case Minutely:
		if justFiltered {
			c.minute += ((1439 - (c.hour*60 + c.minute)) / interval) * interval
		}
		rep := 24 * 60
		for k := 0; k < rep/gcd(interval, rep)+1; k++ {
			c.minute += interval
			if c.minute > 59 {
				c.hour += c.minute / 60
				c.minute %= 60
				if c.hour > 23 {
					c.day += c.hour / 24
					c.hour %= 24
					if !c.fixDay() {
						return false
					}
				}
			}
			if (len(spec.byhour) == 0 || contains(spec.byhour, c.hour)) &&
				(len(spec.byminute) == 0 || contains(spec.byminute, c.minute)) {
				return true
			}
		}
		return false

	case Secondly:
		if justFiltered {
			c.second += ((86399 - (c.hour*3600 + c.minute*60 + c.second)) / interval) * interval
		}
		rep := 24 * 60 * 60
		for k := 0; k < rep/gcd(interval, rep)+1; k++ {
			c.second += interval
			if c.second > 59 {
				c.minute += c.second / 60
				c.second %= 60
				if c.minute > 59 {
					c.hour += c.minute / 60
					c.minute %= 60
					if c.hour > 23 {
						c.day += c.hour / 24
						c.hour %= 24
						if !c.fixDay() {
							return false
						}
					}
				}
			}
			if (len(spec.byhour) == 0 || contains(spec.byhour, c.hour)) &&
				(len(spec.byminute) == 0 || contains(spec.byminute, c.minute)) &&
				(len(spec.bysecond) == 0 || contains(spec.bysecond, c.second)) {
				return true
			}
		}
		return false
	}
	return false
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func contains(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
