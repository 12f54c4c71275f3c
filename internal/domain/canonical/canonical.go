// Package canonical produces a deterministic serialization of payload
// values so that logically equal content always hashes identically,
// regardless of map iteration or key insertion order.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Canonicalize serializes a value deterministically: slices render in
// order, maps render with keys in lexical order, and primitives use their
// JSON text encoding. The output carries no insignificant whitespace.
func Canonicalize(value any) string {
	var sb strings.Builder
	writeValue(&sb, value)
	return sb.String()
}

// Hash returns the lowercase hex SHA-256 of the canonical serialization.
func Hash(value any) string {
	sum := sha256.Sum256([]byte(Canonicalize(value)))
	return hex.EncodeToString(sum[:])
}

func writeValue(sb *strings.Builder, value any) {
	switch v := value.(type) {
	case nil:
		sb.WriteString("null")
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, item := range v {
			m[k] = item
		}
		writeMap(sb, m)
	case map[string]any:
		writeMap(sb, v)
	case []string:
		s := make([]any, len(v))
		for i, item := range v {
			s[i] = item
		}
		writeSlice(sb, s)
	case []any:
		writeSlice(sb, v)
	default:
		writePrimitive(sb, v)
	}
}

func writeMap(sb *strings.Builder, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		writePrimitive(sb, k)
		sb.WriteByte(':')
		writeValue(sb, m[k])
	}
	sb.WriteByte('}')
}

func writeSlice(sb *strings.Builder, s []any) {
	sb.WriteByte('[')
	for i, item := range s {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeValue(sb, item)
	}
	sb.WriteByte(']')
}

func writePrimitive(sb *strings.Builder, v any) {
	encoded, err := json.Marshal(v)
	if err != nil {
		// Fall back to fmt for values json cannot express (chan, func).
		encoded, _ = json.Marshal(fmt.Sprintf("%v", v))
	}
	sb.Write(encoded)
}
