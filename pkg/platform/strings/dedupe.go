// Package strings provides small string-slice utilities.
package strings

import "strings"

// DedupeAndTrim trims each element and drops empties and duplicates,
// preserving first-seen order. Used for parsing comma-separated
// configuration values such as broker lists.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
