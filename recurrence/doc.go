/*
Package recurrence computes the concrete occurrences of declarative
repeating-calendar patterns: RFC 5545-style recurrence rules with
frequency, interval, BY-rule constraints and start/end bounds.

# Basic Usage

Build a rule from options and query it:

	rule, err := recurrence.NewRule(recurrence.Options{
		Freq:      recurrence.Weekly,
		Interval:  mo.Some(2),
		Byweekday: []recurrence.Weekday{recurrence.MO, recurrence.WE},
		Dtstart:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		Count:     mo.Some(4),
	})
	if err != nil {
		log.Fatal(err)
	}
	for _, t := range rule.All() {
		fmt.Println(t)
	}

# Queries

All returns the complete series (bounded by count/until), Before and
After return single neighbors of a moment with true early termination,
and Between returns a window. Results are memoized per rule instance; a
completed All answers later bounded queries without re-iterating.

# Sets

Set composes several rules plus explicit inclusion and exclusion dates
into one deduplicated chronological stream:

	set := recurrence.NewSet()
	set.RRule(rule)
	set.ExDate(time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC))

# Text Forms

Rules round-trip through the canonical string form
("DTSTART:...\nRRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE") via String and
ParseRule, and through short English sentences ("every 2 weeks on Monday
and Wednesday") via Text and ParseText. When a rule uses constructs the
English formatter cannot faithfully express, the sentence is marked
"(approximate)".
*/
package recurrence
