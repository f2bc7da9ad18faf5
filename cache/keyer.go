package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Keyer derives deterministic cache keys from request-identifying fields.
//
// Contract:
// - Determinism: the same scope and payload must always produce the same
//   key, regardless of map iteration order.
// - Collision safety: distinct payloads must not map to the same key.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key derives a cache key from a scope (for example a user or tenant
	// identifier) and the normalized request payload.
	Key(scope string, payload any) (string, error)
}

// DefaultKeyer derives SHA-256 based keys over a canonical JSON encoding.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key derives a deterministic key of the form cache:<scope>:<hash>, where
// hash is the first 16 hex characters of SHA-256 over the canonical JSON
// form of payload. Map keys are sorted so logically identical payloads hash
// identically.
func (k *DefaultKeyer) Key(scope string, payload any) (string, error) {
	canonical, err := canonicalize(payload)
	if err != nil {
		return "", &Error{Op: "derive key", Err: err}
	}

	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("cache:%s:%s", scope, hex.EncodeToString(sum[:8])), nil
}

// canonicalize produces a deterministic JSON encoding of v. Maps are
// emitted with sorted keys; everything else uses the standard encoding.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte("{")
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')

		vb, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte("[")
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		vb, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, ']'), nil
}

var _ Keyer = (*DefaultKeyer)(nil)
