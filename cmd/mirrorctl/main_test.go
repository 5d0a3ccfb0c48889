package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memout "storefront/internal/adapters/out/memory"
	coldom "storefront/internal/domain/collection"
)

func run(t *testing.T, store *memout.DocumentStoreMem, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	open := func(context.Context) (coldom.DocumentStore, func() error, error) {
		return store, func() error { return nil }, nil
	}
	cmd := newRootCmd(&options{}, open, &out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMirrorctl_GetClearDelete(t *testing.T) {
	store := memout.NewDocumentStoreMem()
	doc := coldom.NewRemoteDocument("u1", coldom.Collection{{ID: "a", Quantity: 2}}, time.Now())
	require.NoError(t, store.Set(context.Background(), "carts", "u1", doc.Encode(), coldom.SetOptions{}))

	out, err := run(t, store, "get", "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "a"`)
	assert.Contains(t, out, `"quantity": 2`)

	out, err = run(t, store, "clear", "--user", "u1", "--collection", "carts")
	require.NoError(t, err)
	assert.Equal(t, "cleared carts/u1\n", out)

	raw, err := store.Get(context.Background(), "carts", "u1")
	require.NoError(t, err)
	assert.Empty(t, coldom.DecodeDocument(raw).Items)

	_, err = run(t, store, "delete", "--user", "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())

	_, err = run(t, store, "get", "--user", "u1")
	assert.ErrorContains(t, err, "document not found")
}

func TestMirrorctl_RequiresUser(t *testing.T) {
	_, err := run(t, memout.NewDocumentStoreMem(), "get")
	assert.EqualError(t, err, "--user is required")
}
