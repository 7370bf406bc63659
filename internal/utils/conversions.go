package utils

import "strconv"

// Unique returns the distinct values of slice in first-seen order.
func Unique[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	out := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Itoa formats a positive id, returning "" for zero so unset selects stay blank.
func Itoa(id int) string {
	if id == 0 {
		return ""
	}
	return strconv.Itoa(id)
}

// Atoi parses an id field, returning 0 for blank or malformed input.
func Atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
