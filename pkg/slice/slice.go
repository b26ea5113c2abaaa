// Copyright (c) 2026 JadeWellness. All rights reserved.

/*
Package slice complements the standard [slices] package with generic helpers.
*/
package slice

// Map maps a slice of type T to a slice of type U using the provided transformation function.
//
// A nil input yields a nil result. Any other input, empty included, yields a
// non-nil slice, so JSON encodes it as [] rather than null.
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
