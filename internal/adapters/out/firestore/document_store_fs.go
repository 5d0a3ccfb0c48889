// internal/adapters/out/firestore/document_store_fs.go
package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	coldom "storefront/internal/domain/collection"
)

// DocumentStoreFS implements collection.DocumentStore using Firestore.
//
// Collection design:
// - collection: carts / wishlists
// - docId: userId (Firebase UID)  ✅ docId is the source of truth
// - fields: userId, items(array of maps), updatedAt, timestamp
type DocumentStoreFS struct {
	Client *firestore.Client
}

func NewDocumentStoreFS(client *firestore.Client) *DocumentStoreFS {
	return &DocumentStoreFS{Client: client}
}

func (r *DocumentStoreFS) doc(collection, key string) (*firestore.DocumentRef, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("document_store_fs: firestore client is nil")
	}
	col := strings.TrimSpace(collection)
	if col == "" {
		return nil, errors.New("document_store_fs: collection is empty")
	}
	k := strings.TrimSpace(key)
	if k == "" {
		return nil, errors.New("document_store_fs: key is empty")
	}
	return r.Client.Collection(col).Doc(k), nil
}

// Get returns (nil, nil) if not found (nil policy).
func (r *DocumentStoreFS) Get(ctx context.Context, collection, key string) (map[string]any, error) {
	ref, err := r.doc(collection, key)
	if err != nil {
		return nil, err
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	if snap == nil || !snap.Exists() {
		return nil, nil
	}

	// snap.Data() instead of DataTo: items is an open-shaped array of maps
	// (pass-through fields), so decoding is left to the domain codec.
	raw := snap.Data()
	if raw == nil {
		return map[string]any{}, nil
	}
	return normalizeValue(raw).(map[string]any), nil
}

// Set writes payload. Merge=true only touches the top-level fields present in payload.
func (r *DocumentStoreFS) Set(ctx context.Context, collection, key string, payload map[string]any, opts coldom.SetOptions) error {
	ref, err := r.doc(collection, key)
	if err != nil {
		return err
	}
	if payload == nil {
		payload = map[string]any{}
	}

	if opts.Merge {
		_, err = ref.Set(ctx, payload, firestore.MergeAll)
		return err
	}
	_, err = ref.Set(ctx, payload)
	return err
}

// Delete removes the document (operator tooling).
func (r *DocumentStoreFS) Delete(ctx context.Context, collection, key string) error {
	ref, err := r.doc(collection, key)
	if err != nil {
		return err
	}
	_, err = ref.Delete(ctx)
	return err
}
