package recurrence

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleText(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{
			name: "plain daily",
			opts: Options{Freq: Daily},
			want: "every day",
		},
		{
			name: "interval gets a plural unit",
			opts: Options{Freq: Monthly, Interval: mo.Some(6)},
			want: "every 6 months",
		},
		{
			name: "all workdays collapse to weekday",
			opts: Options{Freq: Weekly, Byweekday: []Weekday{MO, TU, WE, TH, FR}},
			want: "every weekday",
		},
		{
			name: "single weekly day",
			opts: Options{Freq: Weekly, Byweekday: []Weekday{MO}},
			want: "every Monday",
		},
		{
			name: "weekday list with and",
			opts: Options{Freq: Weekly, Interval: mo.Some(2), Byweekday: []Weekday{MO, WE}, Count: mo.Some(4)},
			want: "every 2 weeks on Monday and Wednesday for 4 times",
		},
		{
			name: "yearly month name",
			opts: Options{Freq: Yearly, Bymonth: []int{1}},
			want: "every January",
		},
		{
			name: "yearly month name keeps the interval",
			opts: Options{Freq: Yearly, Interval: mo.Some(2), Bymonth: []int{1}},
			want: "every 2 years in January",
		},
		{
			name: "monthly nth weekday",
			opts: Options{Freq: Monthly, Byweekday: []Weekday{TU.Nth(2)}},
			want: "every month on the 2nd Tuesday",
		},
		{
			name: "monthly last weekday",
			opts: Options{Freq: Monthly, Byweekday: []Weekday{FR.Nth(-1)}},
			want: "every month on the last Friday",
		},
		{
			name: "month day ordinal",
			opts: Options{Freq: Monthly, Bymonthday: []int{4}},
			want: "every month on the 4th",
		},
		{
			name: "count of one stays singular",
			opts: Options{Freq: Daily, Count: mo.Some(1)},
			want: "every day for 1 time",
		},
		{
			name: "until date",
			opts: Options{Freq: Daily, Until: mo.Some(dt(2024, time.January, 1, 0, 0, 0))},
			want: "every day until January 1, 2024",
		},
		{
			name: "inexpressible options gain a qualifier",
			opts: Options{Freq: Monthly, Byweekday: []Weekday{MO, TU, WE, TH, FR}, Bysetpos: []int{-1}},
			want: "every month on Monday, Tuesday, Wednesday, Thursday and Friday (approximate)",
		},
		{
			name: "hour rules are outside the daily whitelist",
			opts: Options{Freq: Daily, Byhour: []int{9, 17}},
			want: "every day (approximate)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			opts.Dtstart = dt(2024, time.January, 1, 0, 0, 0)
			assert.Equal(t, tt.want, mustRule(opts).Text())
		})
	}
}

func TestParseText(t *testing.T) {
	anchor := dt(2024, time.January, 1, 0, 0, 0)
	tests := []struct {
		text string
		want Options
	}{
		{
			text: "every day",
			want: Options{Freq: Daily},
		},
		{
			text: "every 2 weeks on Monday and Wednesday for 4 times",
			want: Options{Freq: Weekly, Interval: mo.Some(2), Byweekday: []Weekday{MO, WE}, Count: mo.Some(4)},
		},
		{
			text: "every weekday",
			want: Options{Freq: Weekly, Byweekday: []Weekday{MO, TU, WE, TH, FR}},
		},
		{
			text: "every Monday",
			want: Options{Freq: Weekly, Byweekday: []Weekday{MO}},
		},
		{
			text: "every Tuesday and Thursday",
			want: Options{Freq: Weekly, Byweekday: []Weekday{TU, TH}},
		},
		{
			text: "every January",
			want: Options{Freq: Yearly, Bymonth: []int{1}},
		},
		{
			text: "every 2 years in January",
			want: Options{Freq: Yearly, Interval: mo.Some(2), Bymonth: []int{1}},
		},
		{
			text: "every month on the second Tuesday",
			want: Options{Freq: Monthly, Byweekday: []Weekday{TU.Nth(2)}},
		},
		{
			text: "every month on the second last Friday",
			want: Options{Freq: Monthly, Byweekday: []Weekday{FR.Nth(-2)}},
		},
		{
			text: "every month on the 2nd Tuesday",
			want: Options{Freq: Monthly, Byweekday: []Weekday{TU.Nth(2)}},
		},
		{
			text: "every month on the last Friday",
			want: Options{Freq: Monthly, Byweekday: []Weekday{FR.Nth(-1)}},
		},
		{
			text: "every month on the 2nd last Friday",
			want: Options{Freq: Monthly, Byweekday: []Weekday{FR.Nth(-2)}},
		},
		{
			text: "every month on the 4th",
			want: Options{Freq: Monthly, Bymonthday: []int{4}},
		},
		{
			text: "every week until 2024-03-01",
			want: Options{Freq: Weekly, Until: mo.Some(dt(2024, time.March, 1, 0, 0, 0))},
		},
		{
			text: "every day until January 15, 2024",
			want: Options{Freq: Daily, Until: mo.Some(dt(2024, time.January, 15, 0, 0, 0))},
		},
		{
			text: "every hour for 3 times",
			want: Options{Freq: Hourly, Count: mo.Some(3)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			opts, err := ParseTextOptions(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, opts)

			// The sentence must also build a working rule.
			_, err = ParseText(tt.text, anchor)
			require.NoError(t, err)
		})
	}
}

func TestParseText_Errors(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		token string
	}{
		{"unknown word", "every banana", "banana"},
		{"missing every", "on tuesday", "on"},
		{"missing unit", "every", "end of input"},
		{"trailing words", "every day the", "the"},
		{"bad on clause", "every month on for", "for"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTextOptions(tt.text)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.token, perr.Token)
		})
	}
}

func TestTextRoundTrip(t *testing.T) {
	sentences := []string{
		"every day",
		"every weekday",
		"every Monday",
		"every 2 weeks on Monday and Wednesday for 4 times",
		"every month on the 2nd Tuesday",
		"every month on the last Friday",
		"every month on the 4th",
		"every January",
		"every 2 years in January",
		"every 6 months",
		"every day until January 1, 2024",
	}
	for _, sentence := range sentences {
		t.Run(sentence, func(t *testing.T) {
			rule, err := ParseText(sentence, dt(2024, time.January, 1, 0, 0, 0))
			require.NoError(t, err)
			assert.Equal(t, sentence, rule.Text())
		})
	}
}

func TestTextYearlyIntervalWithMonths(t *testing.T) {
	rule := mustRule(Options{
		Freq:     Yearly,
		Interval: mo.Some(2),
		Bymonth:  []int{1},
		Count:    mo.Some(3),
		Dtstart:  dt(2024, time.January, 1, 0, 0, 0),
	})
	sentence := rule.Text()
	assert.Equal(t, "every 2 years in January for 3 times", sentence)

	// The sentence carries the interval, so re-parsing reproduces the
	// same occurrences.
	back, err := ParseText(sentence, rule.Dtstart())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		dt(2024, time.January, 1, 0, 0, 0),
		dt(2026, time.January, 1, 0, 0, 0),
		dt(2028, time.January, 1, 0, 0, 0),
	}, back.All())
	assert.Equal(t, rule.All(), back.All())
}

func TestOrdinalText(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "1st"}, {2, "2nd"}, {3, "3rd"}, {4, "4th"},
		{11, "11th"}, {12, "12th"}, {13, "13th"},
		{21, "21st"}, {22, "22nd"}, {31, "31st"},
		{-1, "last"}, {-2, "2nd last"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ordinalText(tt.n))
	}
}
