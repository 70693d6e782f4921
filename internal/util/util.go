package util

import (
	"sort"
	"strings"
)

// AppendUnique appends value unless seen already contains it. Used to keep
// dependency lists deduplicated in first-occurrence order.
func AppendUnique(values []string, seen map[string]bool, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return values
	}
	if seen[value] {
		return values
	}
	seen[value] = true
	return append(values, value)
}

// SortedStringKeys returns the map's keys in sorted order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// IsHiddenName reports whether a directory entry should be skipped during
// the walk: dotfile-named or reserved dunder entries like __pycache__.
func IsHiddenName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "__")
}
