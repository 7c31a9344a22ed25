package recurrence

// easterOrdinal returns the zero-based ordinal day of the year of Easter
// Sunday in the Gregorian calendar, per the anonymous (Meeus/Jones/
// Butcher) algorithm.
func easterOrdinal(year int) int {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1

	ordinal := day - 1
	for mon := 1; mon < month; mon++ {
		ordinal += daysInMonth(year, mon)
	}
	return ordinal
}
