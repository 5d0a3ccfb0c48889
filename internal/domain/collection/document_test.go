package collection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRemoteDocument_StampsItems(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 8000000, time.FixedZone("JST", 9*3600))
	items := Collection{{ID: "a", Quantity: 2}}

	doc := NewRemoteDocument(" u1 ", items, now)

	assert.Equal(t, "u1", doc.UserID)
	assert.Equal(t, now.UnixMilli(), doc.Timestamp)
	assert.Equal(t, "2026-03-03T20:06:07.008Z", doc.UpdatedAt)
	require.Len(t, doc.Items, 1)
	assert.True(t, doc.Items[0].LastModified.Equal(now))
	assert.True(t, items[0].LastModified.IsZero(), "input is not modified")
}

func TestEncodeDocument_FlattensItemFields(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := NewRemoteDocument("u1", Collection{
		{ID: "a", Quantity: 3, Fields: map[string]any{"name": "Bag", "price": 12.5}},
		{ID: "b", Fields: map[string]any{"id": "shadowed", "quantity": 99}},
	}, now)

	raw := doc.Encode()

	assert.Equal(t, "u1", raw[FieldUserID])
	assert.Equal(t, now.UnixMilli(), raw[FieldTimestamp])
	items, ok := raw[FieldItems].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)

	first := items[0].(map[string]any)
	assert.Equal(t, "a", first["id"])
	assert.Equal(t, 3, first["quantity"])
	assert.Equal(t, "Bag", first["name"])
	assert.Equal(t, "2026-01-01T00:00:00Z", first["lastModified"])

	second := items[1].(map[string]any)
	assert.Equal(t, "b", second["id"])
	_, hasQty := second["quantity"]
	assert.False(t, hasQty, "presence-only items carry no quantity")
}

func TestDecodeDocument_RoundTripsEncodedPayload(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := NewRemoteDocument("u1", Collection{
		{ID: "a", Quantity: 3, Fields: map[string]any{"name": "Bag"}},
		{ID: "b"},
	}, now)

	out := DecodeDocument(in.Encode())

	assert.Equal(t, in.UserID, out.UserID)
	assert.Equal(t, in.UpdatedAt, out.UpdatedAt)
	assert.Equal(t, in.Timestamp, out.Timestamp)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "a", out.Items[0].ID)
	assert.Equal(t, 3, out.Items[0].Quantity)
	assert.Equal(t, map[string]any{"name": "Bag"}, out.Items[0].Fields)
	assert.True(t, out.Items[0].LastModified.Equal(now))
	assert.Nil(t, out.Items[1].Fields)
}

func TestDecodeDocument_ToleratesMalformedShapes(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		wantIDs []string
	}{
		{name: "nil document", raw: nil, wantIDs: []string{}},
		{name: "missing items", raw: map[string]any{"userId": "u"}, wantIDs: []string{}},
		{name: "items not a list", raw: map[string]any{"items": map[string]any{"a": 1}}, wantIDs: []string{}},
		{
			name: "drops id-less and duplicate items",
			raw: map[string]any{"items": []any{
				map[string]any{"id": "a", "quantity": int64(2)},
				map[string]any{"name": "no id"},
				"garbage",
				map[string]any{"id": "a", "quantity": int64(5)},
				map[string]any{"id": " b "},
			}},
			wantIDs: []string{"a", "b"},
		},
		{
			name: "typed item slice",
			raw: map[string]any{"items": []map[string]any{
				{"id": "x", "quantity": float64(1)},
			}},
			wantIDs: []string{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := DecodeDocument(tt.raw)
			assert.NotNil(t, doc.Items)
			assert.Equal(t, tt.wantIDs, ids(doc.Items))
		})
	}
}

func TestDecodeDocument_KeepsFirstDuplicate(t *testing.T) {
	doc := DecodeDocument(map[string]any{"items": []any{
		map[string]any{"id": "a", "quantity": int64(2)},
		map[string]any{"id": "a", "quantity": int64(5)},
	}})
	require.Len(t, doc.Items, 1)
	assert.Equal(t, 2, doc.Items[0].Quantity)
}

func TestDecodeDocument_AcceptsFirestoreTimestamps(t *testing.T) {
	ts := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	doc := DecodeDocument(map[string]any{
		"updatedAt": ts,
		"timestamp": int64(42),
		"items":     []any{map[string]any{"id": "a", "lastModified": ts}},
	})
	assert.Equal(t, "2026-05-06T07:08:09Z", doc.UpdatedAt)
	assert.Equal(t, int64(42), doc.Timestamp)
	assert.True(t, doc.Items[0].LastModified.Equal(ts))
}
