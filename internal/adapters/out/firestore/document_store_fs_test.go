package firestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coldom "storefront/internal/domain/collection"
)

func TestDocumentStoreFS_RequiresClientAndKeys(t *testing.T) {
	var nilStore *DocumentStoreFS
	_, err := nilStore.Get(context.Background(), "carts", "u1")
	assert.EqualError(t, err, "document_store_fs: firestore client is nil")

	s := NewDocumentStoreFS(nil)
	err = s.Set(context.Background(), "carts", "u1", map[string]any{}, coldom.SetOptions{Merge: true})
	assert.EqualError(t, err, "document_store_fs: firestore client is nil")
	assert.Error(t, s.Delete(context.Background(), "carts", "u1"))
}

func TestNormalizeValue_ProducesCodecShapes(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, jst)

	in := map[string]any{
		"userId":    "u1",
		"timestamp": int(42),
		"updatedAt": ts,
		"items": []any{
			map[string]any{"id": "a", "quantity": int32(2), "price": float32(1.5)},
		},
		"typed": []map[string]any{{"id": "b"}},
	}

	out, ok := normalizeValue(in).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(42), out["timestamp"])
	assert.True(t, ts.Equal(out["updatedAt"].(time.Time)))
	assert.Equal(t, time.UTC, out["updatedAt"].(time.Time).Location())

	items := out["items"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, int64(2), first["quantity"])
	assert.Equal(t, float64(1.5), first["price"])

	typed, ok := out["typed"].([]any)
	require.True(t, ok)
	assert.Len(t, typed, 1)

	doc := coldom.DecodeDocument(out)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, 2, doc.Items[0].Quantity)
}
