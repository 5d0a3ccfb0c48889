// internal/adapters/out/redis/document_store_redis.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/go-redis/redis/v8"

	coldom "storefront/internal/domain/collection"
)

// DocumentStoreRedis keeps each mirrored document in a Redis hash.
//
// Layout:
// - key:    "<collection>:<docKey>"  e.g. carts:uid123
// - fields: one per top-level document field, value is the JSON encoding
//
// Merge writes HSET only the fields present in payload, which gives the same
// top-level merge the Firestore store has with MergeAll.
type DocumentStoreRedis struct {
	Client *goredis.Client
}

func NewDocumentStoreRedis(client *goredis.Client) *DocumentStoreRedis {
	return &DocumentStoreRedis{Client: client}
}

func (r *DocumentStoreRedis) key(collection, key string) (string, error) {
	if r == nil || r.Client == nil {
		return "", errors.New("document_store_redis: redis client is nil")
	}
	col := strings.TrimSpace(collection)
	if col == "" {
		return "", errors.New("document_store_redis: collection is empty")
	}
	k := strings.TrimSpace(key)
	if k == "" {
		return "", errors.New("document_store_redis: key is empty")
	}
	return col + ":" + k, nil
}

// Get returns (nil, nil) if the hash does not exist.
func (r *DocumentStoreRedis) Get(ctx context.Context, collection, key string) (map[string]any, error) {
	k, err := r.key(collection, key)
	if err != nil {
		return nil, err
	}

	fields, err := r.Client.HGetAll(ctx, k).Result()
	if err != nil && err != goredis.Nil {
		return nil, fmt.Errorf("document_store_redis: hgetall %s: %w", k, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeFields(fields)
}

// Set writes payload. Merge=false replaces the whole hash inside MULTI/EXEC.
func (r *DocumentStoreRedis) Set(ctx context.Context, collection, key string, payload map[string]any, opts coldom.SetOptions) error {
	k, err := r.key(collection, key)
	if err != nil {
		return err
	}
	values, err := encodeFields(payload)
	if err != nil {
		return err
	}

	if opts.Merge {
		if len(values) == 0 {
			return nil
		}
		if err := r.Client.HSet(ctx, k, values).Err(); err != nil {
			return fmt.Errorf("document_store_redis: hset %s: %w", k, err)
		}
		return nil
	}

	_, err = r.Client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, k)
		if len(values) > 0 {
			pipe.HSet(ctx, k, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("document_store_redis: replace %s: %w", k, err)
	}
	return nil
}

// Delete removes the hash (operator tooling).
func (r *DocumentStoreRedis) Delete(ctx context.Context, collection, key string) error {
	k, err := r.key(collection, key)
	if err != nil {
		return err
	}
	return r.Client.Del(ctx, k).Err()
}

func encodeFields(payload map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(payload))
	for field, v := range payload {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("document_store_redis: encode field %q: %w", field, err)
		}
		out[field] = string(b)
	}
	return out, nil
}

func decodeFields(fields map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for field, raw := range fields {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("document_store_redis: decode field %q: %w", field, err)
		}
		out[field] = v
	}
	return out, nil
}
