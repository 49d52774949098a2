package types

import (
	"bytes"
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// Canonical returns the canonical JSON form of v.
//
// The canonical form is what values are compared on: object keys are sorted,
// every number is a float64, -0 is written as 0 and NaN / ±Inf become null, the
// same way JSON.stringify treats them.
func Canonical(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return CanonicalRaw(b)
}

// CanonicalRaw re-encodes a JSON document into its canonical form.
func CanonicalRaw(b []byte) (json.RawMessage, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	out, err := json.Marshal(normalize(v))
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return out, nil
}

// MustCanonical is Canonical that panics, for static values only.
func MustCanonical(v any) json.RawMessage {
	b, err := Canonical(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Equal reports canonical structural equality. A nil value stands for a
// JavaScript undefined and only equals another nil value.
func Equal(a, b json.RawMessage) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return bytes.Equal(a, b)
}

// Normalize applies the canonical number rules to a decoded JSON tree.
func Normalize(v any) any {
	return normalize(v)
}

func normalize(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		if t == 0 {
			return float64(0)
		}
		return t
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalize(t[k])
		}
		return t
	default:
		return v
	}
}
