package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"*", "anything", true},
		{"*", "", true},
		{"exact", "exact", true},
		{"exact", "exactly", false},
		{"api-*", "api-42", true},
		{"api-*", "web-42", false},
		{"*-internal", "svc-internal", true},
		{"*-internal", "svc-external", false},
		{"*bot*", "fancybot/2.1", true},
		{"*bot*", "robotics", true},
		{"*bot*", "browser", false},
		{"a*", "a", true},
		{"*a", "a", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchPattern(tt.pattern, tt.s),
			"matchPattern(%q, %q)", tt.pattern, tt.s)
	}
}

func TestMatchAny(t *testing.T) {
	patterns := []string{"curl/*", "*bot*"}
	assert.True(t, matchAny(patterns, "curl/8.4.0"))
	assert.True(t, matchAny(patterns, "somebot"))
	assert.False(t, matchAny(patterns, "mozilla/5.0"))
	assert.False(t, matchAny(nil, "anything"))
}
