// internal/adapters/out/memory/document_store_mem.go
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	coldom "storefront/internal/domain/collection"
)

// DocumentStoreMem is an in-process collection.DocumentStore used for local
// runs and tests. Values are deep-copied on the way in and out.
type DocumentStoreMem struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
}

func NewDocumentStoreMem() *DocumentStoreMem {
	return &DocumentStoreMem{docs: map[string]map[string]any{}}
}

func memKey(collection, key string) (string, error) {
	col := strings.TrimSpace(collection)
	if col == "" {
		return "", errors.New("document_store_mem: collection is empty")
	}
	k := strings.TrimSpace(key)
	if k == "" {
		return "", errors.New("document_store_mem: key is empty")
	}
	return col + "/" + k, nil
}

func (s *DocumentStoreMem) Get(ctx context.Context, collection, key string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k, err := memKey(collection, key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[k]
	if !ok {
		return nil, nil
	}
	return copyValue(doc).(map[string]any), nil
}

func (s *DocumentStoreMem) Set(ctx context.Context, collection, key string, payload map[string]any, opts coldom.SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := memKey(collection, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[k]
	if !ok || !opts.Merge {
		doc = map[string]any{}
	}
	for field, v := range payload {
		doc[field] = copyValue(v)
	}
	s.docs[k] = doc
	return nil
}

func (s *DocumentStoreMem) Delete(ctx context.Context, collection, key string) error {
	k, err := memKey(collection, key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.docs, k)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored documents.
func (s *DocumentStoreMem) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = copyValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = copyValue(vv)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = copyValue(vv)
		}
		return out
	default:
		return v
	}
}
