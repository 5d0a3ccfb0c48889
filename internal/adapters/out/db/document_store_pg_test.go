package db

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	coldom "storefront/internal/domain/collection"
)

func TestUpsertSQL_MergeConcatenatesJSONB(t *testing.T) {
	assert.Contains(t, upsertSQL(true), "mirrored_documents.doc || EXCLUDED.doc")
	assert.NotContains(t, upsertSQL(false), "||")
	assert.Contains(t, upsertSQL(false), "doc        = EXCLUDED.doc")
}

func TestWrapPQ_NamesUndefinedTable(t *testing.T) {
	err := wrapPQ("get", &pq.Error{Code: "42P01"})
	assert.ErrorContains(t, err, "run EnsureSchema")

	plain := errors.New("boom")
	assert.ErrorIs(t, wrapPQ("set", plain), plain)
}

func TestDocumentStorePG_RequiresDB(t *testing.T) {
	s := NewDocumentStorePG(nil)
	_, err := s.Get(context.Background(), "carts", "u1")
	assert.EqualError(t, err, "document_store_pg: db is nil")
	assert.Error(t, s.Set(context.Background(), "carts", "u1", nil, coldom.SetOptions{Merge: true}))
	assert.Error(t, s.EnsureSchema(context.Background()))
}
