package recurrence

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// The natural-language codec converts between rules and short English
// sentences such as "every 2 weeks on Monday, Wednesday for 10 times".
// The formatter only speaks a subset of the option space; whenever a
// rule uses constructs outside the per-frequency whitelist the rendered
// sentence gains an "(approximate)" qualifier instead of silently
// dropping information.

// textWhitelist names the option keys the formatter can faithfully
// express for each frequency, beyond the always-expressible core
// (frequency, interval, count, until, dtstart, wkst, tzid).
var textWhitelist = map[Frequency][]string{
	Yearly:  {"bymonth", "bymonthday", "byweekday"},
	Monthly: {"bymonthday", "byweekday"},
	Weekly:  {"byweekday"},
	Daily:   {"byweekday"},
}

// Text renders the rule as an English sentence.
func (r *Rule) Text() string {
	return newTextCodec().format(r)
}

// ParseText parses an English recurrence sentence into a Rule anchored
// at the given start moment (the zero value anchors at the current
// time). Failures return a *ParseError naming the offending word.
func ParseText(text string, dtstart time.Time) (*Rule, error) {
	opts, err := ParseTextOptions(text)
	if err != nil {
		return nil, err
	}
	opts.Dtstart = dtstart
	return NewRule(opts)
}

// ParseTextOptions parses an English recurrence sentence into sparse
// Options, leaving anchoring to the caller.
func ParseTextOptions(text string) (Options, error) {
	return newTextCodec().parse(text)
}

// textCodec owns the compiled token dictionary and number/name tables.
// It is an explicit object so the codec's caches have a clear lifecycle
// instead of hiding in package state.
type textCodec struct {
	patterns []tokenPattern
}

type tokenPattern struct {
	typ string
	re  *regexp.Regexp
}

type token struct {
	typ  string
	text string
}

// The dictionary is longest-match: multi-word and suffixed forms come
// before their prefixes.
func newTextCodec() *textCodec {
	spec := []struct{ typ, pattern string }{
		{"skip", `^[ \t,]+|^and\b`},
		{"every", `^every\b`},
		{"weekdays", `^weekday(s)?\b`},
		{"day", `^day(s)?\b`},
		{"week", `^week(s)?\b`},
		{"month", `^month(s)?\b`},
		{"year", `^year(s)?\b`},
		{"hour", `^hour(s)?\b`},
		{"minute", `^minute(s)?\b`},
		{"second", `^second(s)?\b`},
		{"on", `^on\b`},
		{"in", `^in\b`},
		{"the", `^the\b`},
		{"for", `^for\b`},
		{"times", `^time(s)?\b`},
		{"until", `^until\b`},
		{"last", `^last\b`},
		{"first", `^first\b`},
		{"third", `^third\b`},
		{"fourth", `^fourth\b`},
		{"monday", `^monday\b|^mon\b`},
		{"tuesday", `^tuesday\b|^tue(s)?\b`},
		{"wednesday", `^wednesday\b|^wed\b`},
		{"thursday", `^thursday\b|^thu(rs)?\b`},
		{"friday", `^friday\b|^fri\b`},
		{"saturday", `^saturday\b|^sat\b`},
		{"sunday", `^sunday\b|^sun\b`},
		{"january", `^january\b|^jan\b`},
		{"february", `^february\b|^feb\b`},
		{"march", `^march\b|^mar\b`},
		{"april", `^april\b|^apr\b`},
		{"may", `^may\b`},
		{"june", `^june\b|^jun\b`},
		{"july", `^july\b|^jul\b`},
		{"august", `^august\b|^aug\b`},
		{"september", `^september\b|^sep(t)?\b`},
		{"october", `^october\b|^oct\b`},
		{"november", `^november\b|^nov\b`},
		{"december", `^december\b|^dec\b`},
		{"isodate", `^\d{4}-\d{2}-\d{2}`},
		{"ordinal", `^-?\d+(st|nd|rd|th)\b`},
		{"number", `^\d+\b`},
		{"approximate", `^\(approximate\)`},
	}
	codec := &textCodec{}
	for _, s := range spec {
		codec.patterns = append(codec.patterns, tokenPattern{typ: s.typ, re: regexp.MustCompile(s.pattern)})
	}
	return codec
}

var textWeekdays = map[string]Weekday{
	"monday": MO, "tuesday": TU, "wednesday": WE, "thursday": TH,
	"friday": FR, "saturday": SA, "sunday": SU,
}

var textMonths = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

var textOrdinalWords = map[string]int{
	"first": 1, "third": 3, "fourth": 4, "last": -1,
}

// ---------------------------------------------------------------------
// Formatting

func (tc *textCodec) format(r *Rule) string {
	opts := r.options
	spec := &r.spec
	var out []string

	interval := 1
	if v, ok := opts.Interval.Get(); ok {
		interval = v
	}

	unitNames := map[Frequency]string{
		Yearly: "year", Monthly: "month", Weekly: "week", Daily: "day",
		Hourly: "hour", Minutely: "minute", Secondly: "second",
	}

	switch {
	case opts.Freq == Weekly && interval == 1 && isAllWorkdays(spec.byweekday):
		out = append(out, "every weekday")
	case opts.Freq == Weekly && interval == 1 && len(spec.byweekday) == 1 && len(opts.Byweekday) == 1:
		out = append(out, "every "+Weekday{weekday: spec.byweekday[0]}.Name())
	case opts.Freq == Yearly && len(opts.Bymonth) != 0:
		names := make([]string, len(spec.bymonth))
		for i, m := range spec.bymonth {
			names[i] = monthLongNames[m-1]
		}
		if interval == 1 {
			out = append(out, "every "+joinList(names))
		} else {
			out = append(out, fmt.Sprintf("every %d years in %s", interval, joinList(names)))
		}
	default:
		if interval == 1 {
			out = append(out, "every "+unitNames[opts.Freq])
		} else {
			out = append(out, fmt.Sprintf("every %d %ss", interval, unitNames[opts.Freq]))
		}
		switch opts.Freq {
		case Weekly, Daily:
			if len(opts.Byweekday) != 0 {
				if isAllWorkdays(spec.byweekday) {
					out = append(out, "on weekdays")
				} else {
					out = append(out, "on "+joinList(weekdayNames(spec.byweekday)))
				}
			}
		}
	}

	if opts.Freq == Yearly || opts.Freq == Monthly {
		if len(opts.Bymonthday) != 0 {
			names := make([]string, len(opts.Bymonthday))
			for i, d := range opts.Bymonthday {
				names[i] = ordinalText(d)
			}
			out = append(out, "on the "+joinList(names))
		}
		if len(spec.bynweekday) != 0 {
			names := make([]string, len(spec.bynweekday))
			for i, wd := range spec.bynweekday {
				names[i] = ordinalText(wd.N()) + " " + wd.Name()
			}
			out = append(out, "on the "+joinList(names))
		} else if len(opts.Byweekday) != 0 && len(spec.byweekday) != 0 {
			out = append(out, "on "+joinList(weekdayNames(spec.byweekday)))
		}
	}

	if v, ok := opts.Count.Get(); ok {
		if v == 1 {
			out = append(out, "for 1 time")
		} else {
			out = append(out, fmt.Sprintf("for %d times", v))
		}
	}
	if v, ok := opts.Until.Get(); ok {
		out = append(out, fmt.Sprintf("until %s %d, %d", monthLongNames[v.Month()-1], v.Day(), v.Year()))
	}

	sentence := strings.Join(out, " ")
	if !tc.expressible(opts) {
		sentence += " (approximate)"
	}
	return sentence
}

// expressible checks the rule's used options against the frequency's
// whitelist.
func (tc *textCodec) expressible(opts Options) bool {
	used := map[string]bool{}
	mark := func(key string, n int) {
		if n != 0 {
			used[key] = true
		}
	}
	mark("bysetpos", len(opts.Bysetpos))
	mark("bymonth", len(opts.Bymonth))
	mark("bymonthday", len(opts.Bymonthday))
	mark("byyearday", len(opts.Byyearday))
	mark("byweekno", len(opts.Byweekno))
	mark("byweekday", len(opts.Byweekday))
	mark("byeaster", len(opts.Byeaster))
	mark("byhour", len(opts.Byhour))
	mark("byminute", len(opts.Byminute))
	mark("bysecond", len(opts.Bysecond))

	allowed := textWhitelist[opts.Freq]
	for key := range used {
		if !contains_(allowed, key) {
			return false
		}
	}
	return true
}

func contains_(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func isAllWorkdays(days []int) bool {
	if len(days) != 5 {
		return false
	}
	for i := 0; i < 5; i++ {
		if !contains(days, i) {
			return false
		}
	}
	return true
}

func weekdayNames(days []int) []string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = Weekday{weekday: d}.Name()
	}
	return names
}

func ordinalText(n int) string {
	if n == -1 {
		return "last"
	}
	if n < 0 {
		return ordinalText(-n) + " last"
	}
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(n) + suffix
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

// ---------------------------------------------------------------------
// Parsing

func (tc *textCodec) tokenize(text string) ([]token, error) {
	input := strings.ToLower(strings.TrimSpace(text))
	var tokens []token
	rest := input
	for rest != "" {
		matched := false
		for _, p := range tc.patterns {
			if m := p.re.FindString(rest); m != "" {
				if p.typ != "skip" {
					tokens = append(tokens, token{typ: p.typ, text: m})
				}
				rest = rest[len(m):]
				matched = true
				break
			}
		}
		if !matched {
			word := rest
			if i := strings.IndexAny(rest, " \t,"); i > 0 {
				word = rest[:i]
			}
			return nil, &ParseError{Input: text, Token: word, Reason: "unrecognized word"}
		}
	}
	return tokens, nil
}

// textParser is a hand-written recursive-descent parser over the token
// stream: S -> "every" [n] unit [on-clause] [for-or-until-clause].
type textParser struct {
	input  string
	tokens []token
	pos    int
	opts   Options
}

func (p *textParser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *textParser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *textParser) accept(typ string) (token, bool) {
	t, ok := p.peek()
	if ok && t.typ == typ {
		p.pos++
		return t, true
	}
	return token{}, false
}

func (p *textParser) fail(reason string) error {
	tok := "end of input"
	if t, ok := p.peek(); ok {
		tok = t.text
	}
	return &ParseError{Input: p.input, Token: tok, Reason: reason}
}

func (tc *textCodec) parse(text string) (Options, error) {
	tokens, err := tc.tokenize(text)
	if err != nil {
		return Options{}, err
	}
	p := &textParser{input: text, tokens: tokens}
	if err := p.parseSentence(); err != nil {
		return Options{}, err
	}
	return p.opts, nil
}

func (p *textParser) parseSentence() error {
	if _, ok := p.accept("every"); !ok {
		return p.fail(`expected "every", got`)
	}

	interval := 1
	if t, ok := p.accept("number"); ok {
		interval, _ = strconv.Atoi(t.text)
	}
	if interval != 1 {
		p.opts.Interval = mo.Some(interval)
	}

	t, ok := p.next()
	if !ok {
		return p.fail("expected a period unit after")
	}
	switch t.typ {
	case "day":
		p.opts.Freq = Daily
	case "weekdays":
		p.opts.Freq = Weekly
		p.opts.Byweekday = []Weekday{MO, TU, WE, TH, FR}
	case "week":
		p.opts.Freq = Weekly
	case "month":
		p.opts.Freq = Monthly
	case "year":
		p.opts.Freq = Yearly
	case "hour":
		p.opts.Freq = Hourly
	case "minute":
		p.opts.Freq = Minutely
	case "second":
		p.opts.Freq = Secondly
	default:
		if wd, isDay := textWeekdays[t.typ]; isDay {
			p.opts.Freq = Weekly
			p.opts.Byweekday = []Weekday{wd}
			p.appendWeekdayList()
			break
		}
		if m, isMonth := textMonths[t.typ]; isMonth {
			p.opts.Freq = Yearly
			p.opts.Bymonth = []int{m}
			p.appendMonthList()
			break
		}
		p.pos--
		return p.fail("not a period unit:")
	}

	if err := p.parseOnClause(); err != nil {
		return err
	}
	if err := p.parseBoundClause(); err != nil {
		return err
	}
	p.accept("approximate")
	if t, ok := p.peek(); ok {
		return &ParseError{Input: p.input, Token: t.text, Reason: "unexpected trailing word"}
	}
	return nil
}

func (p *textParser) appendWeekdayList() {
	for {
		t, ok := p.peek()
		if !ok {
			return
		}
		wd, isDay := textWeekdays[t.typ]
		if !isDay {
			return
		}
		p.pos++
		p.opts.Byweekday = append(p.opts.Byweekday, wd)
	}
}

func (p *textParser) appendMonthList() {
	for {
		t, ok := p.peek()
		if !ok {
			return
		}
		m, isMonth := textMonths[t.typ]
		if !isMonth {
			return
		}
		p.pos++
		p.opts.Bymonth = append(p.opts.Bymonth, m)
	}
}

// parseOnClause handles "on Monday, Wednesday", "on the 4th", "on the
// 2nd Tuesday", "on the last Friday", "on weekdays".
func (p *textParser) parseOnClause() error {
	if _, ok := p.accept("on"); !ok {
		if _, ok := p.accept("in"); !ok {
			return nil
		}
	}
	for {
		p.accept("the")
		t, ok := p.peek()
		if !ok {
			return p.fail(`expected a day after "on"`)
		}
		switch {
		case t.typ == "weekdays":
			p.pos++
			p.opts.Byweekday = append(p.opts.Byweekday, MO, TU, WE, TH, FR)
		case isWeekdayToken(t.typ):
			p.pos++
			p.opts.Byweekday = append(p.opts.Byweekday, textWeekdays[t.typ])
		case isMonthToken(t.typ):
			p.pos++
			p.opts.Bymonth = append(p.opts.Bymonth, textMonths[t.typ])
		default:
			// An ordinal followed by a weekday is an nth-weekday; a
			// bare ordinal is a month day.
			n, isOrd := p.tryOrdinal()
			if !isOrd {
				return p.fail(`cannot use in an "on" clause:`)
			}
			if next, ahead := p.peek(); ahead && isWeekdayToken(next.typ) {
				p.pos++
				p.opts.Byweekday = append(p.opts.Byweekday, textWeekdays[next.typ].Nth(n))
			} else {
				p.accept("day")
				p.opts.Bymonthday = append(p.opts.Bymonthday, n)
			}
		}

		t, ok = p.peek()
		if !ok {
			return nil
		}
		if t.typ == "the" || t.typ == "weekdays" || t.typ == "ordinal" || t.typ == "second" ||
			isWeekdayToken(t.typ) || isMonthToken(t.typ) || textOrdinalWords[t.typ] != 0 {
			continue
		}
		return nil
	}
}

func isWeekdayToken(typ string) bool {
	_, ok := textWeekdays[typ]
	return ok
}

func isMonthToken(typ string) bool {
	_, ok := textMonths[typ]
	return ok
}

// tryOrdinal consumes one ordinal ("4th", "-1st", "first", "last",
// "2nd last") if present.
func (p *textParser) tryOrdinal() (int, bool) {
	t, ok := p.peek()
	if !ok {
		return 0, false
	}
	if n, isWord := textOrdinalWords[t.typ]; isWord {
		p.pos++
		return n, true
	}
	// "second" tokenizes as the frequency unit; in ordinal position it
	// is the word ordinal.
	if t.typ == "second" {
		p.pos++
		n := 2
		if _, isLast := p.accept("last"); isLast {
			n = -2
		}
		return n, true
	}
	if t.typ == "ordinal" {
		p.pos++
		n, _ := strconv.Atoi(strings.TrimRight(t.text, "stndrh"))
		if _, isLast := p.accept("last"); isLast {
			n = -n
		}
		return n, true
	}
	return 0, false
}

// parseBoundClause handles "for N times" and "until <date>".
func (p *textParser) parseBoundClause() error {
	if _, ok := p.accept("for"); ok {
		t, ok := p.accept("number")
		if !ok {
			return p.fail(`expected a number after "for", got`)
		}
		n, _ := strconv.Atoi(t.text)
		p.opts.Count = mo.Some(n)
		p.accept("times")
		return nil
	}
	if _, ok := p.accept("until"); ok {
		if t, ok := p.accept("isodate"); ok {
			dt, err := time.Parse("2006-01-02", t.text)
			if err != nil {
				return &ParseError{Input: p.input, Token: t.text, Reason: "invalid date"}
			}
			p.opts.Until = mo.Some(dt)
			return nil
		}
		t, ok := p.next()
		if !ok {
			return p.fail(`expected a date after "until"`)
		}
		month, isMonth := textMonths[t.typ]
		if !isMonth {
			p.pos--
			return p.fail("not a month name:")
		}
		day := 1
		if t, ok := p.accept("number"); ok {
			day, _ = strconv.Atoi(t.text)
		} else if n, isOrd := p.tryOrdinal(); isOrd {
			day = n
		}
		year := time.Now().Year()
		if t, ok := p.accept("number"); ok {
			year, _ = strconv.Atoi(t.text)
		}
		p.opts.Until = mo.Some(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC))
		return nil
	}
	return nil
}
