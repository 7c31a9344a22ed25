package recurrence

import (
	"log/slog"
	"time"
)

// Rule is one resolved recurrence pattern. It is immutable after
// construction; query results are memoized per instance. A Rule must not
// have its methods called concurrently from multiple goroutines without
// external synchronization of the caller's own state, though the
// internal caches are mutex-guarded and safe.
type Rule struct {
	spec    resolvedSpec
	options Options
	cache   *queryCache
	zoneErr *UnsupportedZoneError
}

// NewRule resolves the given options into a Rule. All validation happens
// here; the returned error is a *ValidationError. An unresolvable Tzid
// is not an error: the rule degrades to UTC, logs one warning, and
// records the condition for ZoneError.
func NewRule(opts Options) (*Rule, error) {
	spec, zoneErr, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	if zoneErr != nil {
		slog.Warn("recurrence: time zone not resolved, using UTC",
			"tzid", zoneErr.Zone, "error", zoneErr.Err)
	}
	return &Rule{
		spec:    spec,
		options: opts,
		cache:   newQueryCache(DefaultCacheConfig),
		zoneErr: zoneErr,
	}, nil
}

// mustRule is a test and parser helper for options already validated.
func mustRule(opts Options) *Rule {
	r, err := NewRule(opts)
	if err != nil {
		panic(err)
	}
	return r
}

// Options returns a copy of the options the rule was built from.
func (r *Rule) Options() Options { return r.options }

// Dtstart returns the rule's resolved anchor moment.
func (r *Rule) Dtstart() time.Time { return r.spec.dtstart }

// ZoneError reports the unresolvable named zone recorded at
// construction, or nil when the zone resolved (or none was named).
func (r *Rule) ZoneError() error {
	if r.zoneErr == nil {
		return nil
	}
	return r.zoneErr
}

// All returns every occurrence of the rule in chronological order. The
// rule's own count/until bounds are the only termination; an unbounded
// rule will iterate until the supported year ceiling. The completed
// result is cached and reused by later queries.
func (r *Rule) All() []time.Time {
	if all, ok := r.cache.getAll(); ok {
		return sliceClone(all)
	}
	var result []time.Time
	r.spec.iterate(func(t time.Time) bool {
		result = append(result, t)
		return true
	})
	r.cache.setAll(result)
	return sliceClone(result)
}

// AllWith is All with a cooperative cancellation callback: iter is
// invoked for every accepted occurrence with its index, and returning
// false stops iteration. Partial results are returned and not cached.
func (r *Rule) AllWith(iter func(t time.Time, i int) bool) []time.Time {
	if iter == nil {
		return r.All()
	}
	var result []time.Time
	r.spec.iterate(func(t time.Time) bool {
		if !iter(t, len(result)) {
			return false
		}
		result = append(result, t)
		return true
	})
	return result
}

// Before returns the last occurrence at or before dt (strictly before
// when inclusive is false). The second return is false when no
// occurrence qualifies.
func (r *Rule) Before(dt time.Time, inclusive bool) (time.Time, bool) {
	key := cacheKey{mode: "before", hi: dt.UnixMilli(), inclusive: inclusive}
	if hit, ok := r.cache.get(key); ok {
		return lastOf(hit)
	}
	var result []time.Time
	if all, ok := r.cache.getAll(); ok {
		for _, t := range all {
			if beyond(t, dt, inclusive) {
				break
			}
			result = append(result, t)
		}
	} else {
		r.spec.iterate(func(t time.Time) bool {
			if beyond(t, dt, inclusive) {
				return false
			}
			result = append(result, t)
			return true
		})
	}
	if len(result) > 1 {
		result = result[len(result)-1:]
	}
	r.cache.set(key, result)
	return lastOf(result)
}

// After returns the first occurrence at or after dt (strictly after
// when inclusive is false). Iteration stops at the first hit; this is a
// true early exit, not a scan of the full series.
func (r *Rule) After(dt time.Time, inclusive bool) (time.Time, bool) {
	key := cacheKey{mode: "after", lo: dt.UnixMilli(), inclusive: inclusive}
	if hit, ok := r.cache.get(key); ok {
		return lastOf(hit)
	}
	var result []time.Time
	if all, ok := r.cache.getAll(); ok {
		for _, t := range all {
			if !before(t, dt, inclusive) {
				result = append(result, t)
				break
			}
		}
	} else {
		r.spec.iterate(func(t time.Time) bool {
			if before(t, dt, inclusive) {
				return true
			}
			result = append(result, t)
			return false
		})
	}
	r.cache.set(key, result)
	return lastOf(result)
}

// Between returns every occurrence after `from` and before `to`
// (inclusive of both endpoints when inclusive is true). Iteration
// terminates once past the upper bound.
func (r *Rule) Between(from, to time.Time, inclusive bool) []time.Time {
	key := cacheKey{mode: "between", lo: from.UnixMilli(), hi: to.UnixMilli(), inclusive: inclusive}
	if hit, ok := r.cache.get(key); ok {
		return sliceClone(hit)
	}
	var result []time.Time
	if all, ok := r.cache.getAll(); ok {
		for _, t := range all {
			if beyond(t, to, inclusive) {
				break
			}
			if !before(t, from, inclusive) {
				result = append(result, t)
			}
		}
	} else {
		r.spec.iterate(func(t time.Time) bool {
			if beyond(t, to, inclusive) {
				return false
			}
			if !before(t, from, inclusive) {
				result = append(result, t)
			}
			return true
		})
	}
	r.cache.set(key, result)
	return sliceClone(result)
}

// beyond reports whether t falls past the upper bound.
func beyond(t, bound time.Time, inclusive bool) bool {
	if inclusive {
		return t.After(bound)
	}
	return !t.Before(bound)
}

// before reports whether t falls short of the lower bound.
func before(t, bound time.Time, inclusive bool) bool {
	if inclusive {
		return t.Before(bound)
	}
	return !t.After(bound)
}

func lastOf(result []time.Time) (time.Time, bool) {
	if len(result) == 0 {
		return time.Time{}, false
	}
	return result[len(result)-1], true
}

func sliceClone(ts []time.Time) []time.Time {
	if ts == nil {
		return nil
	}
	out := make([]time.Time, len(ts))
	copy(out, ts)
	return out
}
