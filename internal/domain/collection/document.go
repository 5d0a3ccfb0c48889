// internal/domain/collection/document.go
package collection

import (
	"fmt"
	"strings"
	"time"
)

// Document field names (shared by every DocumentStore adapter).
const (
	FieldUserID       = "userId"
	FieldItems        = "items"
	FieldUpdatedAt    = "updatedAt"
	FieldTimestamp    = "timestamp"
	itemFieldID       = "id"
	itemFieldQuantity = "quantity"
	itemFieldModified = "lastModified"
)

// RemoteDocument is the per-user persisted mirror of a Collection.
//   - docId = userId
//   - written with merge semantics (partial field overwrite)
type RemoteDocument struct {
	UserID    string
	Items     Collection
	UpdatedAt string // ISO-8601 (RFC3339, UTC)
	Timestamp int64  // epoch millis
}

// NewRemoteDocument stamps items with now and fills the time fields.
func NewRemoteDocument(userID string, items Collection, now time.Time) RemoteDocument {
	now = now.UTC()
	stamped := items.Clone()
	for i := range stamped {
		stamped[i].LastModified = now
	}
	return RemoteDocument{
		UserID:    strings.TrimSpace(userID),
		Items:     stamped,
		UpdatedAt: now.Format(time.RFC3339Nano),
		Timestamp: now.UnixMilli(),
	}
}

// Encode returns the store payload.
// Item shape: {id, quantity?, lastModified?, ...fields}
func (d RemoteDocument) Encode() map[string]any {
	items := make([]any, 0, len(d.Items))
	for _, it := range d.Items {
		m := make(map[string]any, len(it.Fields)+3)
		for k, v := range it.Fields {
			m[k] = v
		}
		m[itemFieldID] = it.ID
		if it.Quantity > 0 {
			m[itemFieldQuantity] = it.Quantity
		} else {
			delete(m, itemFieldQuantity)
		}
		if !it.LastModified.IsZero() {
			m[itemFieldModified] = it.LastModified.UTC().Format(time.RFC3339Nano)
		} else {
			delete(m, itemFieldModified)
		}
		items = append(items, m)
	}

	return map[string]any{
		FieldUserID:    d.UserID,
		FieldItems:     items,
		FieldUpdatedAt: d.UpdatedAt,
		FieldTimestamp: d.Timestamp,
	}
}

// DecodeDocument parses a stored payload.
// It never fails on shape: malformed items become an empty Collection,
// id-less items are dropped and duplicate ids keep the first occurrence.
func DecodeDocument(raw map[string]any) RemoteDocument {
	out := RemoteDocument{Items: Collection{}}
	if raw == nil {
		return out
	}

	out.UserID = strings.TrimSpace(asString(raw[FieldUserID]))
	out.UpdatedAt = strings.TrimSpace(asString(raw[FieldUpdatedAt]))
	out.Timestamp = asInt64(raw[FieldTimestamp])

	list, ok := raw[FieldItems].([]any)
	if !ok {
		if typed, ok2 := raw[FieldItems].([]map[string]any); ok2 {
			list = make([]any, 0, len(typed))
			for _, m := range typed {
				list = append(list, m)
			}
		}
	}

	seen := map[string]struct{}{}
	for _, v := range list {
		m, ok := v.(map[string]any)
		if !ok || m == nil {
			continue
		}
		id := strings.TrimSpace(asString(m[itemFieldID]))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		it := Item{ID: id}
		if q := int(asInt64(m[itemFieldQuantity])); q > 0 {
			it.Quantity = q
		}
		it.LastModified = asTime(m[itemFieldModified])

		for k, fv := range m {
			switch k {
			case itemFieldID, itemFieldQuantity, itemFieldModified:
				continue
			}
			if it.Fields == nil {
				it.Fields = map[string]any{}
			}
			it.Fields[k] = fv
		}
		out.Items = append(out.Items, it)
	}
	return out
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case float32:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		if tt, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(t)); err == nil {
			return tt.UTC()
		}
	}
	return time.Time{}
}
