package recurrence

import "fmt"

// ValidationError reports a bad or contradictory option detected while
// resolving a rule. It is always raised at construction time, never
// during iteration.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("recurrence: invalid option %s: %s", e.Field, e.Reason)
}

// ParseError reports malformed canonical or natural-language text. Token
// names the unrecognized key, word or symbol when one can be identified.
type ParseError struct {
	Input  string
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("recurrence: cannot parse %q: %s %q", e.Input, e.Reason, e.Token)
	}
	return fmt.Sprintf("recurrence: cannot parse %q: %s", e.Input, e.Reason)
}

// UnsupportedZoneError records a named time zone that could not be
// resolved. The rule degrades to UTC and keeps iterating; the error is
// retained for callers that care (see Rule.ZoneError).
type UnsupportedZoneError struct {
	Zone string
	Err  error
}

func (e *UnsupportedZoneError) Error() string {
	return fmt.Sprintf("recurrence: unsupported time zone %q: %v", e.Zone, e.Err)
}

func (e *UnsupportedZoneError) Unwrap() error { return e.Err }
