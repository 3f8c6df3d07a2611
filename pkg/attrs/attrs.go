// Package attrs reads values back out of slog-style attribute lists, so
// audit emission can reuse the key-value pairs a call site already built
// for its log line.
package attrs

// ExtractString returns the value following the given key in an alternating
// [key1, value1, key2, value2, ...] list. Keys and the wanted value must be
// strings; anything else is skipped. Missing keys yield "".
func ExtractString(attrs []any, key string) string {
	for i := 0; i+1 < len(attrs); i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		if v, ok := attrs[i+1].(string); ok {
			return v
		}
	}
	return ""
}
