// Package ical bridges iCalendar components and the recurrence engine:
// it extracts RRULE, RDATE and EXDATE properties from VEVENT/VTODO
// components into a recurrence.Set, and writes a Set back onto a
// component.
package ical

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/cadenzr/recur/recurrence"
)

// SetFromComponent builds a recurrence set from a component's
// recurrence-related properties. DTSTART anchors the rules; loc is the
// zone used for date-only values (nil means UTC).
func SetFromComponent(comp *ical.Component, loc *time.Location) (*recurrence.Set, error) {
	if loc == nil {
		loc = time.UTC
	}

	dtstart, err := comp.Props.DateTime(ical.PropDateTimeStart, loc)
	if err != nil {
		dtstart = time.Time{}
	}
	tzid := ""
	if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
		tzid = prop.Params.Get(ical.PropTimezoneID)
	}

	set := recurrence.NewSet()

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil && prop.Value != "" {
		content := prop.Value
		if !dtstart.IsZero() {
			content = formatDtstartLine(dtstart, tzid) + "\nRRULE:" + prop.Value
		}
		rule, err := recurrence.ParseRule(content)
		if err != nil {
			return nil, fmt.Errorf("component RRULE: %w", err)
		}
		set.RRule(rule)
	}

	for _, t := range propDates(comp.Props.Get(ical.PropRecurrenceDates)) {
		set.RDate(t)
	}
	for _, t := range propDates(comp.Props.Get(ical.PropExceptionDates)) {
		set.ExDate(t)
	}

	return set, nil
}

// ApplyToComponent writes the set's recurrence properties onto a
// component, replacing any present. The first inclusion rule becomes the
// RRULE property; iCalendar components carry at most one.
func ApplyToComponent(set *recurrence.Set, comp *ical.Component) error {
	rules := set.Rules()
	if len(rules) > 1 {
		return fmt.Errorf("component can carry one RRULE, set has %d", len(rules))
	}

	comp.Props.Del(ical.PropRecurrenceRule)
	comp.Props.Del(ical.PropRecurrenceDates)
	comp.Props.Del(ical.PropExceptionDates)

	if len(rules) == 1 {
		// String() yields "DTSTART...\nRRULE:content"; the property
		// value is the content alone.
		text := rules[0].String()
		if i := strings.Index(text, "RRULE:"); i >= 0 {
			text = text[i+len("RRULE:"):]
		}
		prop := ical.NewProp(ical.PropRecurrenceRule)
		prop.Value = text
		comp.Props.Set(prop)
	}
	if rdates := set.RDates(); len(rdates) != 0 {
		prop := ical.NewProp(ical.PropRecurrenceDates)
		prop.Value = formatDateList(rdates)
		comp.Props.Set(prop)
	}
	if exdates := set.ExDates(); len(exdates) != 0 {
		prop := ical.NewProp(ical.PropExceptionDates)
		prop.Value = formatDateList(exdates)
		comp.Props.Set(prop)
	}
	return nil
}

func formatDtstartLine(dt time.Time, tzid string) string {
	if tzid != "" {
		return "DTSTART;TZID=" + tzid + ":" + dt.Format("20060102T150405")
	}
	return "DTSTART:" + dt.UTC().Format("20060102T150405Z")
}

func formatDateList(dates []time.Time) string {
	strs := make([]string, len(dates))
	for i, d := range dates {
		strs[i] = d.UTC().Format("20060102T150405Z")
	}
	return strings.Join(strs, ",")
}

// propDates parses an RDATE/EXDATE property value into concrete
// moments. Date-only values (VALUE=DATE) land on midnight UTC.
func propDates(prop *ical.Prop) []time.Time {
	if prop == nil || prop.Value == "" {
		return nil
	}
	dateOnly := prop.ValueType() == ical.ValueDate

	var dates []time.Time
	for _, s := range strings.Split(prop.Value, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		var t time.Time
		var err error
		if dateOnly {
			t, err = time.Parse("20060102", s)
		} else {
			t, err = time.Parse("20060102T150405Z", s)
			if err != nil {
				t, err = time.Parse("20060102", s)
			}
		}
		if err == nil {
			dates = append(dates, t.UTC())
		}
	}
	return dates
}
