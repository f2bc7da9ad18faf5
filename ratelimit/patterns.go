package ratelimit

import "strings"

// matchPattern reports whether s matches pattern. A leading or trailing
// '*' is a wildcard: "api-*" matches by prefix, "*-internal" by suffix,
// "*bot*" by substring, and a bare "*" matches everything. Patterns
// without '*' match exactly.
func matchPattern(pattern, s string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*"):
		return strings.Contains(s, pattern[1:len(pattern)-1])
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(s, pattern[1:])
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(s, pattern[:len(pattern)-1])
	default:
		return s == pattern
	}
}

// matchAny reports whether s matches any of the patterns.
func matchAny(patterns []string, s string) bool {
	for _, p := range patterns {
		if matchPattern(p, s) {
			return true
		}
	}
	return false
}
