// Package iterx has the lazy sequence plumbing the containment indices
// build their query results from.
package iterx

import "iter"

// Concat yields the elements of each sequence in order.
func Concat[T any](seqs ...iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, seq := range seqs {
			for v := range seq {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// Nested yields the elements of secondary(k) for every k of primary, in
// primary order. Nothing is materialized: primaries and secondaries
// advance only as the combined sequence is consumed, and empty
// secondaries are skipped by construction.
func Nested[K, V any](primary iter.Seq[K], secondary func(K) iter.Seq[V]) iter.Seq[V] {
	return func(yield func(V) bool) {
		for k := range primary {
			for v := range secondary(k) {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// Filter yields the elements of seq for which keep returns true.
func Filter[T any](seq iter.Seq[T], keep func(T) bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			if keep(v) && !yield(v) {
				return
			}
		}
	}
}

// Count drains seq and returns the number of elements.
func Count[T any](seq iter.Seq[T]) int {
	n := 0
	for range seq {
		n++
	}
	return n
}
