package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coldom "storefront/internal/domain/collection"
)

func TestFieldCodec_RoundTripsThroughDomainDecoder(t *testing.T) {
	now := time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC)
	doc := coldom.NewRemoteDocument("u1", coldom.Collection{
		{ID: "a", Quantity: 2, Fields: map[string]any{"price": 9.5}},
		{ID: "b"},
	}, now)

	encoded, err := encodeFields(doc.Encode())
	require.NoError(t, err)
	assert.Equal(t, `"u1"`, encoded[coldom.FieldUserID])

	raw := make(map[string]string, len(encoded))
	for k, v := range encoded {
		raw[k] = v.(string)
	}
	decoded, err := decodeFields(raw)
	require.NoError(t, err)

	got := coldom.DecodeDocument(decoded)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, now.UnixMilli(), got.Timestamp)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, 9.5, got.Items[0].Fields["price"])
	assert.True(t, got.Items[1].LastModified.Equal(now))
}

func TestDecodeFields_RejectsCorruptJSON(t *testing.T) {
	_, err := decodeFields(map[string]string{"items": "[{"})
	assert.ErrorContains(t, err, `decode field "items"`)
}

func TestDocumentStoreRedis_ValidatesKey(t *testing.T) {
	s := NewDocumentStoreRedis(nil)
	_, err := s.Get(context.Background(), "carts", "u1")
	assert.EqualError(t, err, "document_store_redis: redis client is nil")

	var nilStore *DocumentStoreRedis
	assert.Error(t, nilStore.Set(context.Background(), "carts", "u1", nil, coldom.SetOptions{}))
}
