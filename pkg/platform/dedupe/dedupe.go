// Package dedupe removes repeated elements from slices while preserving the
// order of first occurrence.
package dedupe

import "strings"

// By keeps the first element for each key. The result is never nil.
func By[T any, K comparable](values []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(values))
	result := make([]T, 0, len(values))
	for _, v := range values {
		k := key(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, v)
	}
	return result
}

// Values keeps the first occurrence of each value.
func Values[T comparable](values []T) []T {
	return By(values, func(v T) T { return v })
}

// TrimmedLower trims and lowercases each element, drops empty ones and
// removes duplicates.
//
//	TrimmedLower([]string{"  Lead_Paint ", "lead_paint", ""})
//	// []string{"lead_paint"}
func TrimmedLower(values []string) []string {
	normalized := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			normalized = append(normalized, v)
		}
	}
	return Values(normalized)
}
