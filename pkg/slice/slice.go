// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

/*
Package slice compliments the standard [slices] package by providing functional
programming utilities (Map, Filter, CountBy) leveraging generics.
*/
package slice

// Map maps a slice of type T to a slice of type U using the provided transformation function.
func Map[T any, U any](input []T, transform func(T) U) []U {
	if input == nil {
		return nil
	}

	result := make([]U, len(input))
	for i, v := range input {
		result[i] = transform(v)
	}

	return result
}

// Filter returns only the elements where the predicate evaluates to true.
// The result is never nil, so it always encodes as a JSON array.
func Filter[T any](input []T, predicate func(T) bool) []T {
	result := []T{}
	for _, v := range input {
		if predicate(v) {
			result = append(result, v)
		}
	}

	return result
}

// CountBy tallies elements by the key returned from keyOf.
func CountBy[T any, K comparable](input []T, keyOf func(T) K) map[K]int {
	counts := make(map[K]int)
	for _, v := range input {
		counts[keyOf(v)]++
	}
	return counts
}

// Distinct returns the keys in first-seen order, skipping zero values.
func Distinct[T any, K comparable](input []T, keyOf func(T) K) []K {
	var zero K
	seen := make(map[K]struct{})
	result := []K{}
	for _, v := range input {
		key := keyOf(v)
		if key == zero {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, key)
	}
	return result
}
