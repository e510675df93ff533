// Package resultset holds the hits of the most recent search together with
// the records they were derived from.
//
// A Set is owned by a single goroutine. It is replaced wholesale on every
// search and only ever read by hit id in between, so it carries no locking.
package resultset

import "github.com/machinefabric/unirun-apps/unirun"

// Entry pairs a delivered hit with the record it describes
type Entry[R any] struct {
	Hit    unirun.Hit
	Record R
}

// Set is one generation of search results
type Set[R any] struct {
	entries    []Entry[R]
	generation uint64
}

// New returns an empty set at generation 0
func New[R any]() *Set[R] {
	return &Set[R]{}
}

// Replace discards the current generation and builds a new one by pairing
// each record with the hit derived from it. It returns the new generation
// number.
func (s *Set[R]) Replace(records []R, derive func(R) unirun.Hit) uint64 {
	entries := make([]Entry[R], len(records))
	for i, rec := range records {
		entries[i] = Entry[R]{Hit: derive(rec), Record: rec}
	}
	s.entries = entries
	s.generation++
	return s.generation
}

// Clear replaces the current generation with an empty one
func (s *Set[R]) Clear() uint64 {
	return s.Replace(nil, nil)
}

// Generation returns the number of the current generation
func (s *Set[R]) Generation() uint64 {
	return s.generation
}

// Len returns the number of entries in the current generation
func (s *Set[R]) Len() int {
	return len(s.entries)
}

// Hit returns the hit at position i of the current generation
func (s *Set[R]) Hit(i int) unirun.Hit {
	return s.entries[i].Hit
}

// Hits returns a copy of the current generation's hits in delivery order
func (s *Set[R]) Hits() []unirun.Hit {
	hits := make([]unirun.Hit, len(s.entries))
	for i, e := range s.entries {
		hits[i] = e.Hit
	}
	return hits
}

// Lookup resolves a hit id against the current generation only
func (s *Set[R]) Lookup(hitID string) (R, bool) {
	for _, e := range s.entries {
		if e.Hit.ID == hitID {
			return e.Record, true
		}
	}
	var zero R
	return zero, false
}
