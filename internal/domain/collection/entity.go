// internal/domain/collection/entity.go
package collection

import (
	"errors"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidItem = errors.New("collection: invalid item")
)

// Item is one entry of a mirrored collection.
//   - ID is the identity (unique within a Collection)
//   - Quantity is used by cart-like collections; 0 means presence-only
//   - Fields carries descriptive values (name, price, image, ...) untouched
type Item struct {
	ID           string         `json:"id"`
	Quantity     int            `json:"quantity,omitempty"`
	LastModified time.Time      `json:"lastModified,omitempty"`
	Fields       map[string]any `json:"fields,omitempty"`
}

// Collection is an ordered list of items, unique by ID.
// Order is insertion order; nothing here sorts.
type Collection []Item

// CountMode selects how TotalCount is computed.
type CountMode int

const (
	// CountItems counts entries (wishlist).
	CountItems CountMode = iota
	// CountQuantities sums quantities (cart). Presence-only entries count as 1.
	CountQuantities
)

// MergePolicy decides what happens when an item with an existing ID is added.
// It returns the merged item and whether anything changed.
type MergePolicy func(existing, incoming Item) (Item, bool)

// KeepExisting is the presence-only policy: re-adding is a no-op.
func KeepExisting(existing, _ Item) (Item, bool) {
	return existing, false
}

// IncrementQuantity adds the incoming quantity (at least 1) to the existing one.
// Fields missing on the existing item are filled from the incoming item.
func IncrementQuantity(existing, incoming Item) (Item, bool) {
	add := incoming.Quantity
	if add < 1 {
		add = 1
	}
	out := existing.Clone()
	if out.Quantity < 1 {
		out.Quantity = 1
	}
	out.Quantity += add

	for k, v := range incoming.Fields {
		if out.Fields == nil {
			out.Fields = map[string]any{}
		}
		if _, ok := out.Fields[k]; !ok {
			out.Fields[k] = v
		}
	}
	return out, true
}

// ReplaceExisting swaps the existing item for the incoming one, keeping its position.
func ReplaceExisting(_, incoming Item) (Item, bool) {
	return incoming.Clone(), true
}

// NewItem builds an item with a trimmed id.
func NewItem(id string, quantity int, fields map[string]any) (Item, error) {
	it := Item{
		ID:       strings.TrimSpace(id),
		Quantity: quantity,
		Fields:   cloneFields(fields),
	}
	if err := it.validate(); err != nil {
		return Item{}, err
	}
	return it, nil
}

// Clone returns a deep-enough copy (Fields map is copied, values are shared).
func (it Item) Clone() Item {
	out := it
	out.Fields = cloneFields(it.Fields)
	return out
}

// Price returns the numeric "price" field, if any.
func (it Item) Price() (float64, bool) {
	if it.Fields == nil {
		return 0, false
	}
	return asFloat(it.Fields["price"])
}

func (it Item) validate() error {
	if strings.TrimSpace(it.ID) == "" {
		return ErrInvalidItem
	}
	if it.Quantity < 0 {
		return ErrInvalidItem
	}
	return nil
}

// Add inserts item, or applies policy if the id is already present.
// policy == nil behaves like KeepExisting.
func (c Collection) Add(item Item, policy MergePolicy) (Collection, bool, error) {
	item.ID = strings.TrimSpace(item.ID)
	if err := item.validate(); err != nil {
		return c, false, err
	}
	if policy == nil {
		policy = KeepExisting
	}

	idx := c.indexOf(item.ID)
	if idx >= 0 {
		merged, changed := policy(c[idx], item)
		if !changed {
			return c, false, nil
		}
		merged.ID = item.ID
		out := c.Clone()
		out[idx] = merged
		return out, true, nil
	}

	out := make(Collection, 0, len(c)+1)
	out = append(out, c.Clone()...)
	out = append(out, item.Clone())
	return out, true, nil
}

// Remove drops the item with id. No-op if absent.
func (c Collection) Remove(id string) (Collection, bool) {
	idx := c.indexOf(strings.TrimSpace(id))
	if idx < 0 {
		return c, false
	}
	out := make(Collection, 0, len(c)-1)
	out = append(out, c[:idx]...)
	out = append(out, c[idx+1:]...)
	return out.Clone(), true
}

// SetQuantity sets the quantity for id; qty <= 0 removes it.
// Absent ids are left alone.
func (c Collection) SetQuantity(id string, qty int) (Collection, bool) {
	id = strings.TrimSpace(id)
	idx := c.indexOf(id)
	if idx < 0 {
		return c, false
	}
	if qty <= 0 {
		return c.Remove(id)
	}
	if c[idx].Quantity == qty {
		return c, false
	}
	out := c.Clone()
	out[idx].Quantity = qty
	return out, true
}

func (c Collection) Contains(id string) bool {
	return c.indexOf(strings.TrimSpace(id)) >= 0
}

// Get returns the item with id.
func (c Collection) Get(id string) (Item, bool) {
	idx := c.indexOf(strings.TrimSpace(id))
	if idx < 0 {
		return Item{}, false
	}
	return c[idx].Clone(), true
}

// Count returns the entry count or the quantity sum depending on mode.
func (c Collection) Count(mode CountMode) int {
	if mode != CountQuantities {
		return len(c)
	}
	n := 0
	for _, it := range c {
		if it.Quantity <= 0 {
			n++
			continue
		}
		n += it.Quantity
	}
	return n
}

// Subtotal sums price*quantity over items with a numeric price.
func (c Collection) Subtotal() float64 {
	var total float64
	for _, it := range c {
		p, ok := it.Price()
		if !ok {
			continue
		}
		q := it.Quantity
		if q <= 0 {
			q = 1
		}
		total += p * float64(q)
	}
	return math.Round(total*100) / 100
}

func (c Collection) Clone() Collection {
	if c == nil {
		return Collection{}
	}
	out := make(Collection, len(c))
	for i := range c {
		out[i] = c[i].Clone()
	}
	return out
}

func (c Collection) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// ----------------------------
// Helpers
// ----------------------------

func cloneFields(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
