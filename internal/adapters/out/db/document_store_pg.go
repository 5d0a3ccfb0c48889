// internal/adapters/out/db/document_store_pg.go
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	coldom "storefront/internal/domain/collection"
)

const documentsTable = "mirrored_documents"

// DocumentStorePG implements collection.DocumentStore using PostgreSQL.
// Every (collection, key) pair is one jsonb row; merge writes use the jsonb
// concatenation operator so only the top-level fields present are replaced.
type DocumentStorePG struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewDocumentStorePG(db *sql.DB) *DocumentStorePG {
	return &DocumentStorePG{DB: db, Now: time.Now}
}

// EnsureSchema creates the documents table if it does not exist.
func (r *DocumentStorePG) EnsureSchema(ctx context.Context) error {
	if r == nil || r.DB == nil {
		return errors.New("document_store_pg: db is nil")
	}
	q := `
CREATE TABLE IF NOT EXISTS ` + pq.QuoteIdentifier(documentsTable) + ` (
  collection  TEXT        NOT NULL,
  key         TEXT        NOT NULL,
  doc         JSONB       NOT NULL DEFAULT '{}'::jsonb,
  updated_at  TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (collection, key)
)`
	_, err := r.DB.ExecContext(ctx, q)
	return err
}

func (r *DocumentStorePG) args(collection, key string) (string, string, error) {
	if r == nil || r.DB == nil {
		return "", "", errors.New("document_store_pg: db is nil")
	}
	col := strings.TrimSpace(collection)
	if col == "" {
		return "", "", errors.New("document_store_pg: collection is empty")
	}
	k := strings.TrimSpace(key)
	if k == "" {
		return "", "", errors.New("document_store_pg: key is empty")
	}
	return col, k, nil
}

// Get returns (nil, nil) if no row exists.
func (r *DocumentStorePG) Get(ctx context.Context, collection, key string) (map[string]any, error) {
	col, k, err := r.args(collection, key)
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = r.DB.QueryRowContext(ctx, `
SELECT doc FROM `+documentsTable+`
WHERE collection = $1 AND key = $2`, col, k).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapPQ("get", err)
	}

	out := map[string]any{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("document_store_pg: decode %s/%s: %w", col, k, err)
	}
	return out, nil
}

// Set upserts payload; Merge=false replaces doc entirely.
func (r *DocumentStorePG) Set(ctx context.Context, collection, key string, payload map[string]any, opts coldom.SetOptions) error {
	col, k, err := r.args(collection, key)
	if err != nil {
		return err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("document_store_pg: encode %s/%s: %w", col, k, err)
	}

	_, err = r.DB.ExecContext(ctx, upsertSQL(opts.Merge), col, k, string(b), r.now())
	if err != nil {
		return wrapPQ("set", err)
	}
	return nil
}

// Delete removes the row (operator tooling).
func (r *DocumentStorePG) Delete(ctx context.Context, collection, key string) error {
	col, k, err := r.args(collection, key)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `DELETE FROM `+documentsTable+` WHERE collection = $1 AND key = $2`, col, k)
	if err != nil {
		return wrapPQ("delete", err)
	}
	return nil
}

func (r *DocumentStorePG) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func upsertSQL(merge bool) string {
	docExpr := "EXCLUDED.doc"
	if merge {
		docExpr = documentsTable + ".doc || EXCLUDED.doc"
	}
	return `
INSERT INTO ` + documentsTable + ` (collection, key, doc, updated_at)
VALUES ($1, $2, $3::jsonb, $4)
ON CONFLICT (collection, key) DO UPDATE SET
  doc        = ` + docExpr + `,
  updated_at = EXCLUDED.updated_at`
}

func wrapPQ(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code.Name() == "undefined_table" {
			return fmt.Errorf("document_store_pg: %s: table %s missing (run EnsureSchema): %w", op, documentsTable, err)
		}
		return fmt.Errorf("document_store_pg: %s: %s: %w", op, pqErr.Code.Name(), err)
	}
	return fmt.Errorf("document_store_pg: %s: %w", op, err)
}
