package recurrence

import (
	"slices"
	"time"
)

// Set composes several inclusion rules, exclusion rules and explicit
// dates into one deduplicated chronological stream. Explicit exclusion
// dates knock out exact-millisecond matches; exclusion rules are probed
// lazily in a narrow window around each candidate rather than being
// expanded in full.
type Set struct {
	rrules  []*Rule
	exrules []*Rule
	rdates  []time.Time
	exdates []time.Time
	cache   *queryCache
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{cache: newQueryCache(DefaultCacheConfig)}
}

// RRule appends an inclusion rule.
func (s *Set) RRule(r *Rule) {
	s.rrules = append(s.rrules, r)
	s.cache = newQueryCache(DefaultCacheConfig)
}

// ExRule appends an exclusion rule.
func (s *Set) ExRule(r *Rule) {
	s.exrules = append(s.exrules, r)
	s.cache = newQueryCache(DefaultCacheConfig)
}

// RDate appends an explicit inclusion moment.
func (s *Set) RDate(t time.Time) {
	s.rdates = append(s.rdates, t)
	s.cache = newQueryCache(DefaultCacheConfig)
}

// ExDate appends an explicit exclusion moment.
func (s *Set) ExDate(t time.Time) {
	s.exdates = append(s.exdates, t)
	s.cache = newQueryCache(DefaultCacheConfig)
}

// Rules returns the inclusion rules in insertion order.
func (s *Set) Rules() []*Rule { return s.rrules }

// ExRules returns the exclusion rules in insertion order.
func (s *Set) ExRules() []*Rule { return s.exrules }

// RDates returns the explicit inclusion moments.
func (s *Set) RDates() []time.Time { return sliceClone(s.rdates) }

// ExDates returns the explicit exclusion moments.
func (s *Set) ExDates() []time.Time { return sliceClone(s.exdates) }

// excluder answers "is this moment excluded" for one evaluation pass.
// The explicit-date hash is built eagerly; exclusion rules are consulted
// per candidate with a +-1ms Between probe, which keeps unbounded
// exclusion rules from ever being enumerated in full.
type excluder struct {
	dates   map[int64]struct{}
	exrules []*Rule
}

func (s *Set) newExcluder() *excluder {
	ex := &excluder{exrules: s.exrules}
	if len(s.exdates) > 0 {
		ex.dates = make(map[int64]struct{}, len(s.exdates))
		for _, d := range s.exdates {
			ex.dates[d.UnixMilli()] = struct{}{}
		}
	}
	return ex
}

func (ex *excluder) excluded(t time.Time) bool {
	if _, ok := ex.dates[t.UnixMilli()]; ok {
		return true
	}
	for _, xr := range ex.exrules {
		window := xr.Between(t.Add(-time.Millisecond), t.Add(time.Millisecond), true)
		for _, w := range window {
			if w.UnixMilli() == t.UnixMilli() {
				return true
			}
		}
	}
	return false
}

// collect gathers occurrences from every inclusion source, bounded above
// by limit when bounded is true. Each rule's iteration stops on its own
// once past the bound. The merged result is sorted ascending and
// deduplicated by exact-millisecond equality.
func (s *Set) collect(bounded bool, limit time.Time, inclusive bool) []time.Time {
	ex := s.newExcluder()
	var merged []time.Time

	// Explicit dates seed the stream before any rule runs.
	for _, d := range s.rdates {
		if bounded && beyond(d, limit, inclusive) {
			continue
		}
		if !ex.excluded(d) {
			merged = append(merged, d)
		}
	}
	for _, r := range s.rrules {
		r.spec.iterate(func(t time.Time) bool {
			if bounded && beyond(t, limit, inclusive) {
				return false
			}
			if !ex.excluded(t) {
				merged = append(merged, t)
			}
			return true
		})
	}

	slices.SortFunc(merged, time.Time.Compare)
	return dedupeByMilli(merged)
}

// All returns the full merged stream. Unbounded member rules run to the
// supported year ceiling, as with Rule.All.
func (s *Set) All() []time.Time {
	if all, ok := s.cache.getAll(); ok {
		return sliceClone(all)
	}
	result := s.collect(false, time.Time{}, false)
	s.cache.setAll(result)
	return sliceClone(result)
}

// AllWith is All with a cooperative cancellation callback; partial
// results are returned and not cached.
func (s *Set) AllWith(iter func(t time.Time, i int) bool) []time.Time {
	if iter == nil {
		return s.All()
	}
	full := s.collect(false, time.Time{}, false)
	var result []time.Time
	for _, t := range full {
		if !iter(t, len(result)) {
			break
		}
		result = append(result, t)
	}
	return result
}

// Before returns the last merged occurrence at or before dt (strictly
// before when inclusive is false). Truncation to a single value happens
// after merging, so exclusions from any member are honored.
func (s *Set) Before(dt time.Time, inclusive bool) (time.Time, bool) {
	key := cacheKey{mode: "before", hi: dt.UnixMilli(), inclusive: inclusive}
	if hit, ok := s.cache.get(key); ok {
		return lastOf(hit)
	}
	candidates := s.boundedUpTo(dt, inclusive)
	if len(candidates) > 1 {
		candidates = candidates[len(candidates)-1:]
	}
	s.cache.set(key, candidates)
	return lastOf(candidates)
}

// After returns the first merged occurrence at or after dt (strictly
// after when inclusive is false). Each member rule exits early at its
// own first non-excluded hit.
func (s *Set) After(dt time.Time, inclusive bool) (time.Time, bool) {
	key := cacheKey{mode: "after", lo: dt.UnixMilli(), inclusive: inclusive}
	if hit, ok := s.cache.get(key); ok {
		return lastOf(hit)
	}
	ex := s.newExcluder()
	var best time.Time
	found := false
	consider := func(t time.Time) {
		if !found || t.Before(best) {
			best = t
			found = true
		}
	}
	for _, d := range s.rdates {
		if !before(d, dt, inclusive) && !ex.excluded(d) {
			consider(d)
		}
	}
	for _, r := range s.rrules {
		r.spec.iterate(func(t time.Time) bool {
			if before(t, dt, inclusive) {
				return true
			}
			if ex.excluded(t) {
				return true
			}
			consider(t)
			return false
		})
	}
	var result []time.Time
	if found {
		result = []time.Time{best}
	}
	s.cache.set(key, result)
	return lastOf(result)
}

// Between returns every merged occurrence inside the interval, endpoint
// inclusion controlled by inclusive.
func (s *Set) Between(from, to time.Time, inclusive bool) []time.Time {
	key := cacheKey{mode: "between", lo: from.UnixMilli(), hi: to.UnixMilli(), inclusive: inclusive}
	if hit, ok := s.cache.get(key); ok {
		return sliceClone(hit)
	}
	upTo := s.boundedUpTo(to, inclusive)
	var result []time.Time
	for _, t := range upTo {
		if !before(t, from, inclusive) {
			result = append(result, t)
		}
	}
	s.cache.set(key, result)
	return sliceClone(result)
}

func (s *Set) boundedUpTo(limit time.Time, inclusive bool) []time.Time {
	if all, ok := s.cache.getAll(); ok {
		var result []time.Time
		for _, t := range all {
			if beyond(t, limit, inclusive) {
				break
			}
			result = append(result, t)
		}
		return result
	}
	return s.collect(true, limit, inclusive)
}

func dedupeByMilli(sorted []time.Time) []time.Time {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, t := range sorted[1:] {
		if t.UnixMilli() != out[len(out)-1].UnixMilli() {
			out = append(out, t)
		}
	}
	return out
}
