// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package models

import (
	"cmp"
	"slices"

	"github.com/goccy/go-json"
)

// Set is an unordered collection of unique values.
// It serializes as a sorted JSON array so persisted aggregates are stable
// across writes and exports compare byte-for-byte.
type Set[T cmp.Ordered] map[T]struct{}

// NewSet returns a set holding the given values.
func NewSet[T cmp.Ordered](values ...T) Set[T] {
	s := make(Set[T], len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Has reports whether v is a member.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Add inserts v. Adding to a nil set panics, so callers construct with NewSet.
func (s Set[T]) Add(v T) {
	s[v] = struct{}{}
}

// Remove deletes v if present.
func (s Set[T]) Remove(v T) {
	delete(s, v)
}

// Toggle flips membership of v and reports whether v is now a member.
func (s Set[T]) Toggle(v T) bool {
	if s.Has(v) {
		delete(s, v)
		return false
	}
	s[v] = struct{}{}
	return true
}

// Len returns the number of members.
func (s Set[T]) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order.
func (s Set[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy. A nil set clones to an empty set.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

// Union returns a new set containing members of s and other.
func (s Set[T]) Union(other Set[T]) Set[T] {
	out := s.Clone()
	for v := range other {
		out[v] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s Set[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array, dropping duplicates. null decodes to empty.
func (s *Set[T]) UnmarshalJSON(data []byte) error {
	var values []T
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewSet(values...)
	return nil
}
