package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

const (
	stampLayout     = "20060102T150405"
	stampLayoutUTC  = "20060102T150405Z"
	stampLayoutDate = "20060102"
)

// String renders the rule in its canonical KEY=value;... form, preceded
// by a DTSTART line carrying the anchor and optional zone qualifier.
func (r *Rule) String() string {
	var b strings.Builder
	b.WriteString(formatDtstart(r.spec.dtstart, r.spec.tzid))
	b.WriteString("\nRRULE:")
	b.WriteString(formatRRule(r.options))
	return b.String()
}

func formatDtstart(dt time.Time, tzid string) string {
	if tzid != "" {
		return "DTSTART;TZID=" + tzid + ":" + dt.Format(stampLayout)
	}
	if dt.Location() == time.UTC {
		return "DTSTART:" + dt.Format(stampLayoutUTC)
	}
	return "DTSTART:" + dt.Format(stampLayout)
}

// formatRRule renders the rule content proper, omitting defaults.
func formatRRule(opts Options) string {
	parts := []string{"FREQ=" + opts.Freq.String()}
	appendInts := func(key string, values []int) {
		if len(values) == 0 {
			return
		}
		strs := make([]string, len(values))
		for i, v := range values {
			strs[i] = strconv.Itoa(v)
		}
		parts = append(parts, key+"="+strings.Join(strs, ","))
	}

	if v, ok := opts.Interval.Get(); ok && v != 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(v))
	}
	if opts.Wkst != MO {
		parts = append(parts, "WKST="+opts.Wkst.String())
	}
	if v, ok := opts.Count.Get(); ok {
		parts = append(parts, "COUNT="+strconv.Itoa(v))
	}
	if v, ok := opts.Until.Get(); ok {
		parts = append(parts, "UNTIL="+v.UTC().Format(stampLayoutUTC))
	}
	appendInts("BYSETPOS", opts.Bysetpos)
	appendInts("BYMONTH", opts.Bymonth)
	appendInts("BYMONTHDAY", opts.Bymonthday)
	appendInts("BYYEARDAY", opts.Byyearday)
	appendInts("BYWEEKNO", opts.Byweekno)
	if len(opts.Byweekday) != 0 {
		strs := make([]string, len(opts.Byweekday))
		for i, wd := range opts.Byweekday {
			strs[i] = wd.String()
		}
		parts = append(parts, "BYDAY="+strings.Join(strs, ","))
	}
	appendInts("BYEASTER", opts.Byeaster)
	appendInts("BYHOUR", opts.Byhour)
	appendInts("BYMINUTE", opts.Byminute)
	appendInts("BYSECOND", opts.Bysecond)
	return strings.Join(parts, ";")
}

// ParseRule parses the canonical text form back into a Rule. Accepted
// shapes: a bare "FREQ=...;..." content string, an "RRULE:"-prefixed
// line, or a DTSTART line followed by an RRULE line. Unknown keys fail
// with a *ParseError naming the key.
func ParseRule(text string) (*Rule, error) {
	opts, err := parseRuleOptions(text)
	if err != nil {
		return nil, err
	}
	return NewRule(opts)
}

func parseRuleOptions(text string) (Options, error) {
	var opts Options
	seenRRule := false
	for _, line := range splitLines(text) {
		name, params, value, err := splitContentLine(line)
		if err != nil {
			return opts, &ParseError{Input: text, Token: line, Reason: "malformed line"}
		}
		switch name {
		case "DTSTART":
			dt, tzid, err := parseDtstart(params, value)
			if err != nil {
				return opts, &ParseError{Input: text, Token: value, Reason: "invalid DTSTART"}
			}
			opts.Dtstart = dt
			if tzid != "" {
				opts.Tzid = tzid
			}
		case "RRULE", "":
			if err := parseRRuleContent(&opts, text, value); err != nil {
				return opts, err
			}
			seenRRule = true
		default:
			return opts, &ParseError{Input: text, Token: name, Reason: "unsupported property"}
		}
	}
	if !seenRRule {
		return opts, &ParseError{Input: text, Reason: "no RRULE content found"}
	}
	return opts, nil
}

// parseRRuleContent fills opts from one KEY=value;KEY=value content
// string.
func parseRRuleContent(opts *Options, input, content string) error {
	if strings.TrimSpace(content) == "" {
		return &ParseError{Input: input, Reason: "empty rule content"}
	}
	for _, pair := range strings.Split(content, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return &ParseError{Input: input, Token: pair, Reason: "expected KEY=value, got"}
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		var err error
		switch key {
		case "FREQ":
			freq, ok := frequencyByName(value)
			if !ok {
				return &ParseError{Input: input, Token: value, Reason: "unknown frequency"}
			}
			opts.Freq = freq
		case "INTERVAL":
			var v int
			if v, err = strconv.Atoi(value); err == nil {
				opts.Interval = mo.Some(v)
			}
		case "COUNT":
			var v int
			if v, err = strconv.Atoi(value); err == nil {
				opts.Count = mo.Some(v)
			}
		case "UNTIL":
			var dt time.Time
			if dt, err = parseStamp(value); err == nil {
				opts.Until = mo.Some(dt)
			}
		case "WKST":
			var wd Weekday
			if wd, err = parseWeekdayCode(value); err == nil {
				opts.Wkst = wd
			}
		case "DTSTART":
			var dt time.Time
			if dt, err = parseStamp(value); err == nil {
				opts.Dtstart = dt
			}
		case "TZID":
			opts.Tzid = value
		case "BYSETPOS":
			opts.Bysetpos, err = parseIntList(value)
		case "BYMONTH":
			opts.Bymonth, err = parseIntList(value)
		case "BYMONTHDAY":
			opts.Bymonthday, err = parseIntList(value)
		case "BYYEARDAY":
			opts.Byyearday, err = parseIntList(value)
		case "BYWEEKNO":
			opts.Byweekno, err = parseIntList(value)
		case "BYEASTER":
			opts.Byeaster, err = parseIntList(value)
		case "BYHOUR":
			opts.Byhour, err = parseIntList(value)
		case "BYMINUTE":
			opts.Byminute, err = parseIntList(value)
		case "BYSECOND":
			opts.Bysecond, err = parseIntList(value)
		case "BYDAY", "BYWEEKDAY":
			opts.Byweekday, err = parseWeekdayList(value)
		default:
			return &ParseError{Input: input, Token: key, Reason: "unknown rule key"}
		}
		if err != nil {
			return &ParseError{Input: input, Token: value, Reason: "bad value for " + key + ":"}
		}
	}
	return nil
}

func frequencyByName(name string) (Frequency, bool) {
	for f, n := range frequencyNames {
		if n == strings.ToUpper(name) {
			return Frequency(f), true
		}
	}
	return 0, false
}

func parseIntList(value string) ([]int, error) {
	var out []int
	for _, s := range strings.Split(value, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parseWeekdayCode parses one weekday token, an optional signed ordinal
// followed by a two-letter code ("MO", "2TU", "-1FR").
func parseWeekdayCode(value string) (Weekday, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if len(value) < 2 {
		return Weekday{}, fmt.Errorf("weekday %q too short", value)
	}
	code := value[len(value)-2:]
	ord := value[:len(value)-2]
	var base Weekday
	found := false
	for i, c := range weekdayCodes {
		if c == code {
			base = Weekday{weekday: i}
			found = true
			break
		}
	}
	if !found {
		return Weekday{}, fmt.Errorf("unknown weekday code %q", code)
	}
	if ord == "" {
		return base, nil
	}
	n, err := strconv.Atoi(ord)
	if err != nil {
		return Weekday{}, fmt.Errorf("bad weekday ordinal %q: %w", ord, err)
	}
	return base.Nth(n), nil
}

func parseWeekdayList(value string) ([]Weekday, error) {
	var out []Weekday
	for _, s := range strings.Split(value, ",") {
		wd, err := parseWeekdayCode(s)
		if err != nil {
			return nil, err
		}
		out = append(out, wd)
	}
	return out, nil
}

// parseStamp accepts compact UTC, local and date-only timestamps.
func parseStamp(value string) (time.Time, error) {
	if t, err := time.Parse(stampLayoutUTC, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(stampLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(stampLayoutDate, value)
}

func parseDtstart(params map[string]string, value string) (time.Time, string, error) {
	tzid := params["TZID"]
	dt, err := parseStamp(value)
	if err != nil {
		return time.Time{}, "", err
	}
	if tzid != "" {
		if loc, lerr := time.LoadLocation(tzid); lerr == nil {
			dt = time.Date(dt.Year(), dt.Month(), dt.Day(), dt.Hour(), dt.Minute(), dt.Second(), dt.Nanosecond(), loc)
		}
	}
	return dt, tzid, nil
}

// splitContentLine breaks "NAME;PARAM=V;PARAM=V:value" apart. A line
// with no property name (bare KEY=value content) returns name "".
func splitContentLine(line string) (name string, params map[string]string, value string, err error) {
	head, val, found := strings.Cut(line, ":")
	if !found {
		// Bare rule content such as "FREQ=DAILY;INTERVAL=2".
		return "", nil, line, nil
	}
	if strings.Contains(head, "=") && !strings.Contains(head, ";") {
		// "FREQ=..." with a COUNT/UNTIL timestamp containing ':' is not
		// a property line either.
		return "", nil, line, nil
	}
	segments := strings.Split(head, ";")
	name = strings.ToUpper(strings.TrimSpace(segments[0]))
	params = make(map[string]string)
	for _, seg := range segments[1:] {
		k, v, ok := strings.Cut(seg, "=")
		if !ok {
			return "", nil, "", fmt.Errorf("malformed parameter %q", seg)
		}
		params[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return name, params, val, nil
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// String renders the whole set: a DTSTART line from the first inclusion
// rule (or the first exclusion rule when the set has none, so re-parsed
// EXRULEs keep their anchor), then RRULE, EXRULE, RDATE and EXDATE lines.
func (s *Set) String() string {
	var lines []string
	switch {
	case len(s.rrules) != 0:
		lines = append(lines, formatDtstart(s.rrules[0].spec.dtstart, s.rrules[0].spec.tzid))
	case len(s.exrules) != 0:
		lines = append(lines, formatDtstart(s.exrules[0].spec.dtstart, s.exrules[0].spec.tzid))
	}
	for _, r := range s.rrules {
		lines = append(lines, "RRULE:"+formatRRule(r.options))
	}
	for _, r := range s.exrules {
		lines = append(lines, "EXRULE:"+formatRRule(r.options))
	}
	if len(s.rdates) != 0 {
		lines = append(lines, "RDATE:"+formatStampList(s.rdates))
	}
	if len(s.exdates) != 0 {
		lines = append(lines, "EXDATE:"+formatStampList(s.exdates))
	}
	return strings.Join(lines, "\n")
}

func formatStampList(dates []time.Time) string {
	strs := make([]string, len(dates))
	for i, d := range dates {
		strs[i] = d.UTC().Format(stampLayoutUTC)
	}
	return strings.Join(strs, ",")
}

// ParseSet parses the multi-line set form produced by Set.String.
func ParseSet(text string) (*Set, error) {
	set := NewSet()
	var dtstart time.Time
	var tzid string
	for _, line := range splitLines(text) {
		name, params, value, err := splitContentLine(line)
		if err != nil {
			return nil, &ParseError{Input: text, Token: line, Reason: "malformed line"}
		}
		switch name {
		case "DTSTART":
			dtstart, tzid, err = parseDtstart(params, value)
			if err != nil {
				return nil, &ParseError{Input: text, Token: value, Reason: "invalid DTSTART"}
			}
		case "RRULE", "":
			rule, err := setMemberRule(text, value, dtstart, tzid)
			if err != nil {
				return nil, err
			}
			set.RRule(rule)
		case "EXRULE":
			rule, err := setMemberRule(text, value, dtstart, tzid)
			if err != nil {
				return nil, err
			}
			set.ExRule(rule)
		case "RDATE":
			dates, err := parseStampList(value)
			if err != nil {
				return nil, &ParseError{Input: text, Token: value, Reason: "invalid RDATE"}
			}
			for _, d := range dates {
				set.RDate(d)
			}
		case "EXDATE":
			dates, err := parseStampList(value)
			if err != nil {
				return nil, &ParseError{Input: text, Token: value, Reason: "invalid EXDATE"}
			}
			for _, d := range dates {
				set.ExDate(d)
			}
		default:
			return nil, &ParseError{Input: text, Token: name, Reason: "unsupported property"}
		}
	}
	return set, nil
}

func setMemberRule(input, content string, dtstart time.Time, tzid string) (*Rule, error) {
	var opts Options
	if err := parseRRuleContent(&opts, input, content); err != nil {
		return nil, err
	}
	if opts.Dtstart.IsZero() {
		opts.Dtstart = dtstart
	}
	if opts.Tzid == "" {
		opts.Tzid = tzid
	}
	rule, err := NewRule(opts)
	if err != nil {
		return nil, fmt.Errorf("set member rule: %w", err)
	}
	return rule, nil
}

func parseStampList(value string) ([]time.Time, error) {
	var out []time.Time
	for _, s := range strings.Split(value, ",") {
		d, err := parseStamp(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
