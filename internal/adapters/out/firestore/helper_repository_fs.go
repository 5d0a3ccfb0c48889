package firestore

import (
	"time"
)

// normalizeValue converts Firestore-decoded values into the plain shapes the
// domain codec expects (map[string]any / []any / int64 / float64 / string / time.Time).
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalizeValue(vv)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, vv := range t {
			out = append(out, normalizeValue(vv))
		}
		return out
	case []map[string]any:
		out := make([]any, 0, len(t))
		for _, vv := range t {
			out = append(out, normalizeValue(vv))
		}
		return out
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t.UTC()
	default:
		return v
	}
}
