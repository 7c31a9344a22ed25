package recurrence

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dt(y int, m time.Month, d, h, min, s int) time.Time {
	return time.Date(y, m, d, h, min, s, 0, time.UTC)
}

func TestRuleAll_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []time.Time
	}{
		{
			name: "biweekly on monday and wednesday",
			opts: Options{
				Freq:      Weekly,
				Interval:  mo.Some(2),
				Byweekday: []Weekday{MO, WE},
				Dtstart:   dt(2024, time.January, 1, 0, 0, 0),
				Count:     mo.Some(4),
			},
			want: []time.Time{
				dt(2024, time.January, 1, 0, 0, 0),
				dt(2024, time.January, 3, 0, 0, 0),
				dt(2024, time.January, 15, 0, 0, 0),
				dt(2024, time.January, 17, 0, 0, 0),
			},
		},
		{
			name: "monthly on the 31st skips short months",
			opts: Options{
				Freq:       Monthly,
				Bymonthday: []int{31},
				Dtstart:    dt(2024, time.January, 31, 0, 0, 0),
				Count:      mo.Some(4),
			},
			want: []time.Time{
				dt(2024, time.January, 31, 0, 0, 0),
				dt(2024, time.March, 31, 0, 0, 0),
				dt(2024, time.May, 31, 0, 0, 0),
				dt(2024, time.July, 31, 0, 0, 0),
			},
		},
		{
			name: "yearly february 29th waits for a leap year",
			opts: Options{
				Freq:       Yearly,
				Bymonth:    []int{2},
				Bymonthday: []int{29},
				Dtstart:    dt(2023, time.January, 1, 0, 0, 0),
				Count:      mo.Some(2),
			},
			want: []time.Time{
				dt(2024, time.February, 29, 0, 0, 0),
				dt(2028, time.February, 29, 0, 0, 0),
			},
		},
		{
			name: "daily keeps the anchor time of day",
			opts: Options{
				Freq:    Daily,
				Dtstart: dt(2024, time.January, 1, 9, 30, 0),
				Count:   mo.Some(3),
			},
			want: []time.Time{
				dt(2024, time.January, 1, 9, 30, 0),
				dt(2024, time.January, 2, 9, 30, 0),
				dt(2024, time.January, 3, 9, 30, 0),
			},
		},
		{
			name: "yearly defaults month and day from the anchor",
			opts: Options{
				Freq:    Yearly,
				Dtstart: dt(2024, time.March, 15, 0, 0, 0),
				Count:   mo.Some(2),
			},
			want: []time.Time{
				dt(2024, time.March, 15, 0, 0, 0),
				dt(2025, time.March, 15, 0, 0, 0),
			},
		},
		{
			name: "monthly second tuesday",
			opts: Options{
				Freq:      Monthly,
				Byweekday: []Weekday{TU.Nth(2)},
				Dtstart:   dt(2024, time.January, 1, 0, 0, 0),
				Count:     mo.Some(3),
			},
			want: []time.Time{
				dt(2024, time.January, 9, 0, 0, 0),
				dt(2024, time.February, 13, 0, 0, 0),
				dt(2024, time.March, 12, 0, 0, 0),
			},
		},
		{
			name: "monthly last workday via bysetpos",
			opts: Options{
				Freq:      Monthly,
				Byweekday: []Weekday{MO, TU, WE, TH, FR},
				Bysetpos:  []int{-1},
				Dtstart:   dt(2024, time.January, 1, 0, 0, 0),
				Count:     mo.Some(3),
			},
			want: []time.Time{
				dt(2024, time.January, 31, 0, 0, 0),
				dt(2024, time.February, 29, 0, 0, 0),
				dt(2024, time.March, 29, 0, 0, 0),
			},
		},
		{
			name: "hourly interval crosses midnight",
			opts: Options{
				Freq:     Hourly,
				Interval: mo.Some(5),
				Dtstart:  dt(2024, time.January, 1, 22, 0, 0),
				Count:    mo.Some(3),
			},
			want: []time.Time{
				dt(2024, time.January, 1, 22, 0, 0),
				dt(2024, time.January, 2, 3, 0, 0),
				dt(2024, time.January, 2, 8, 0, 0),
			},
		},
		{
			name: "until bound is inclusive",
			opts: Options{
				Freq:    Daily,
				Dtstart: dt(2024, time.January, 1, 9, 0, 0),
				Until:   mo.Some(dt(2024, time.January, 3, 9, 0, 0)),
			},
			want: []time.Time{
				dt(2024, time.January, 1, 9, 0, 0),
				dt(2024, time.January, 2, 9, 0, 0),
				dt(2024, time.January, 3, 9, 0, 0),
			},
		},
		{
			name: "negative monthday selects the last day",
			opts: Options{
				Freq:       Monthly,
				Bymonthday: []int{-1},
				Dtstart:    dt(2024, time.January, 1, 0, 0, 0),
				Count:      mo.Some(3),
			},
			want: []time.Time{
				dt(2024, time.January, 31, 0, 0, 0),
				dt(2024, time.February, 29, 0, 0, 0),
				dt(2024, time.March, 31, 0, 0, 0),
			},
		},
		{
			name: "yeardays from both ends of the year",
			opts: Options{
				Freq:      Yearly,
				Byyearday: []int{1, -1},
				Dtstart:   dt(2024, time.January, 1, 0, 0, 0),
				Count:     mo.Some(4),
			},
			want: []time.Time{
				dt(2024, time.January, 1, 0, 0, 0),
				dt(2024, time.December, 31, 0, 0, 0),
				dt(2025, time.January, 1, 0, 0, 0),
				dt(2025, time.December, 31, 0, 0, 0),
			},
		},
		{
			name: "week one covers the year head and next year's overlap",
			opts: Options{
				Freq:     Yearly,
				Byweekno: []int{1},
				Dtstart:  dt(2024, time.January, 1, 0, 0, 0),
				Count:    mo.Some(9),
			},
			want: []time.Time{
				dt(2024, time.January, 1, 0, 0, 0),
				dt(2024, time.January, 2, 0, 0, 0),
				dt(2024, time.January, 3, 0, 0, 0),
				dt(2024, time.January, 4, 0, 0, 0),
				dt(2024, time.January, 5, 0, 0, 0),
				dt(2024, time.January, 6, 0, 0, 0),
				dt(2024, time.January, 7, 0, 0, 0),
				dt(2024, time.December, 30, 0, 0, 0),
				dt(2024, time.December, 31, 0, 0, 0),
			},
		},
		{
			name: "easter sunday and easter monday",
			opts: Options{
				Freq:     Yearly,
				Byeaster: []int{0},
				Dtstart:  dt(2024, time.January, 1, 0, 0, 0),
				Count:    mo.Some(2),
			},
			want: []time.Time{
				dt(2024, time.March, 31, 0, 0, 0),
				dt(2025, time.April, 20, 0, 0, 0),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := NewRule(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rule.All())
		})
	}
}

func TestRuleAll_EmptyRules(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{
			name: "zero interval",
			opts: Options{Freq: Daily, Interval: mo.Some(0), Dtstart: dt(2024, time.January, 1, 0, 0, 0)},
		},
		{
			name: "zero count",
			opts: Options{Freq: Daily, Count: mo.Some(0), Dtstart: dt(2024, time.January, 1, 0, 0, 0)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := NewRule(tt.opts)
			require.NoError(t, err)
			assert.Empty(t, rule.All())
		})
	}
}

func TestRule_CountSkipsNothingBelowStart(t *testing.T) {
	// The anchor is mid-week; days of the first weekly period before the
	// anchor must not count against the cap.
	rule := mustRule(Options{
		Freq:      Weekly,
		Byweekday: []Weekday{MO, TU, WE, TH, FR},
		Dtstart:   dt(2024, time.January, 3, 0, 0, 0), // a Wednesday
		Count:     mo.Some(4),
	})
	assert.Equal(t, []time.Time{
		dt(2024, time.January, 3, 0, 0, 0),
		dt(2024, time.January, 4, 0, 0, 0),
		dt(2024, time.January, 5, 0, 0, 0),
		dt(2024, time.January, 8, 0, 0, 0),
	}, rule.All())
}

func TestRule_StrictIntervalSpacing(t *testing.T) {
	tests := []struct {
		name string
		freq Frequency
		step func(time.Time) time.Time
	}{
		{"daily", Daily, func(t time.Time) time.Time { return t.AddDate(0, 0, 3) }},
		{"weekly", Weekly, func(t time.Time) time.Time { return t.AddDate(0, 0, 21) }},
		{"monthly", Monthly, func(t time.Time) time.Time { return t.AddDate(0, 3, 0) }},
		{"yearly", Yearly, func(t time.Time) time.Time { return t.AddDate(3, 0, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := mustRule(Options{
				Freq:     tt.freq,
				Interval: mo.Some(3),
				Dtstart:  dt(2024, time.January, 1, 6, 0, 0),
				Count:    mo.Some(5),
			})
			all := rule.All()
			require.Len(t, all, 5)
			for i := 1; i < len(all); i++ {
				assert.Equal(t, tt.step(all[i-1]), all[i])
			}
		})
	}
}

func TestRule_BeforeAfterBetween(t *testing.T) {
	rule := mustRule(Options{
		Freq:    Daily,
		Dtstart: dt(2024, time.January, 1, 9, 0, 0),
		Count:   mo.Some(10),
	})
	jan := func(d int) time.Time { return dt(2024, time.January, d, 9, 0, 0) }

	t.Run("before", func(t *testing.T) {
		got, ok := rule.Before(jan(5), true)
		require.True(t, ok)
		assert.Equal(t, jan(5), got)

		got, ok = rule.Before(jan(5), false)
		require.True(t, ok)
		assert.Equal(t, jan(4), got)

		_, ok = rule.Before(dt(2024, time.January, 1, 0, 0, 0), true)
		assert.False(t, ok)
	})

	t.Run("after", func(t *testing.T) {
		got, ok := rule.After(jan(5), true)
		require.True(t, ok)
		assert.Equal(t, jan(5), got)

		got, ok = rule.After(jan(5), false)
		require.True(t, ok)
		assert.Equal(t, jan(6), got)

		_, ok = rule.After(jan(10).Add(time.Minute), true)
		assert.False(t, ok)
	})

	t.Run("between", func(t *testing.T) {
		assert.Equal(t, []time.Time{jan(3), jan(4), jan(5), jan(6)},
			rule.Between(jan(3), jan(6), true))
		assert.Equal(t, []time.Time{jan(4), jan(5)},
			rule.Between(jan(3), jan(6), false))
		assert.Empty(t, rule.Between(jan(6), jan(3), true))
	})

	t.Run("before and after agree on a member date", func(t *testing.T) {
		b, ok := rule.Before(jan(7), true)
		require.True(t, ok)
		a, ok := rule.After(jan(7), true)
		require.True(t, ok)
		assert.Equal(t, b, a)
		assert.Equal(t, jan(7), a)
	})
}

func TestRule_AllWithCancellation(t *testing.T) {
	rule := mustRule(Options{
		Freq:    Daily,
		Dtstart: dt(2024, time.January, 1, 0, 0, 0),
	})
	got := rule.AllWith(func(_ time.Time, i int) bool { return i < 5 })
	require.Len(t, got, 5)
	assert.Equal(t, dt(2024, time.January, 5, 0, 0, 0), got[4])
}

func TestRule_QueryCacheReuse(t *testing.T) {
	rule := mustRule(Options{
		Freq:    Daily,
		Dtstart: dt(2024, time.January, 1, 9, 0, 0),
		Count:   mo.Some(5),
	})

	first := rule.All()
	_, allDone := rule.cache.getAll()
	assert.True(t, allDone)

	// Callers get copies; mutating a result must not poison the cache.
	first[0] = time.Time{}
	assert.Equal(t, dt(2024, time.January, 1, 9, 0, 0), rule.All()[0])

	// Bounded queries are now answered from the completed expansion.
	got := rule.Between(dt(2024, time.January, 2, 0, 0, 0), dt(2024, time.January, 4, 0, 0, 0), true)
	assert.Equal(t, []time.Time{
		dt(2024, time.January, 2, 9, 0, 0),
		dt(2024, time.January, 3, 9, 0, 0),
	}, got)

	entries, _ := rule.cache.stats()
	assert.Equal(t, 1, entries)
}

func TestRule_UnresolvableZoneDegradesToUTC(t *testing.T) {
	rule, err := NewRule(Options{
		Freq:    Daily,
		Dtstart: dt(2024, time.January, 1, 9, 0, 0),
		Count:   mo.Some(1),
		Tzid:    "Mars/Olympus",
	})
	require.NoError(t, err)
	require.Error(t, rule.ZoneError())

	var zoneErr *UnsupportedZoneError
	require.ErrorAs(t, rule.ZoneError(), &zoneErr)
	assert.Equal(t, "Mars/Olympus", zoneErr.Zone)

	all := rule.All()
	require.Len(t, all, 1)
	assert.Equal(t, time.UTC, all[0].Location())
}

func TestRule_NamedZoneEmission(t *testing.T) {
	rule, err := NewRule(Options{
		Freq:    Daily,
		Dtstart: dt(2024, time.January, 1, 9, 0, 0),
		Count:   mo.Some(2),
		Tzid:    "America/New_York",
	})
	require.NoError(t, err)
	require.NoError(t, rule.ZoneError())

	all := rule.All()
	require.Len(t, all, 2)
	for _, occ := range all {
		assert.Equal(t, "America/New_York", occ.Location().String())
		// Local-time-preserving: the wall clock matches the anchor.
		assert.Equal(t, 9, occ.Hour())
	}
}
