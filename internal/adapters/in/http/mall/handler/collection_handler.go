// internal/adapters/in/http/mall/handler/collection_handler.go
package mallHandler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	usecase "storefront/internal/application/usecase"
	coldom "storefront/internal/domain/collection"
)

// CollectionHandler serves /mall/sessions/{sid}/{kind} (cart / wishlist).
// Remote persistence is fire-and-forget; its failures are logged by the
// store and never change the response.
type CollectionHandler struct {
	reg SessionRegistry
	log *zap.Logger
}

func NewCollectionHandler(reg SessionRegistry, logger *zap.Logger) *CollectionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollectionHandler{reg: reg, log: logger.With(zap.String("component", "mall_collection_handler"))}
}

type collectionResponse struct {
	Kind       string    `json:"kind"`
	Items      []itemDTO `json:"items"`
	Loading    bool      `json:"loading"`
	TotalCount int       `json:"totalCount"`
	Subtotal   *float64  `json:"subtotal,omitempty"`
}

type addItemRequest struct {
	ID       string         `json:"id"`
	Quantity int            `json:"quantity"`
	Fields   map[string]any `json:"fields"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func view(kind usecase.Kind, s *usecase.MirroredStore) collectionResponse {
	resp := collectionResponse{
		Kind:       string(kind),
		Items:      toItemDTOs(s.Items()),
		Loading:    s.Loading(),
		TotalCount: s.TotalCount(),
	}
	if kind == usecase.KindCart {
		sub := s.Subtotal()
		resp.Subtotal = &sub
	}
	return resp
}

// GET /mall/sessions/{sid}/{kind}
func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, kind, store, ok := h.resolve(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view(kind, store))
}

// POST /mall/sessions/{sid}/{kind}/items
func (h *CollectionHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	_, kind, store, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	item, err := coldom.NewItem(req.ID, req.Quantity, req.Fields)
	if err != nil {
		badRequest(w, "invalid item: id is required and quantity must not be negative")
		return
	}
	if err := store.Add(item); err != nil {
		if errors.Is(err, coldom.ErrInvalidItem) {
			badRequest(w, err.Error())
			return
		}
		h.log.Error("add failed", zap.String("kind", string(kind)), zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "add failed")
		return
	}
	writeJSON(w, http.StatusOK, view(kind, store))
}

// PUT /mall/sessions/{sid}/{kind}/items/{id}
func (h *CollectionHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	_, kind, store, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var req setQuantityRequest
	if err := readJSON(w, r, &req); err != nil || req.Quantity == nil {
		badRequest(w, "quantity is required")
		return
	}
	store.SetQuantity(urlParam(r, "id"), *req.Quantity)
	writeJSON(w, http.StatusOK, view(kind, store))
}

// DELETE /mall/sessions/{sid}/{kind}/items/{id}
func (h *CollectionHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	_, kind, store, ok := h.resolve(w, r)
	if !ok {
		return
	}
	store.Remove(urlParam(r, "id"))
	writeJSON(w, http.StatusOK, view(kind, store))
}

// GET /mall/sessions/{sid}/{kind}/items/{id}
func (h *CollectionHandler) Contains(w http.ResponseWriter, r *http.Request) {
	_, _, store, ok := h.resolve(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"contains": store.Contains(urlParam(r, "id"))})
}

// DELETE /mall/sessions/{sid}/{kind}
func (h *CollectionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	_, kind, store, ok := h.resolve(w, r)
	if !ok {
		return
	}
	store.Clear()
	writeJSON(w, http.StatusOK, view(kind, store))
}

// POST /mall/sessions/{sid}/wishlist/items/{id}/move-to-cart
func (h *CollectionHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	sf, err := h.reg.Get(urlParam(r, "sid"))
	if err != nil {
		notFound(w, "session not found")
		return
	}
	if err := sf.MoveToCart(urlParam(r, "id")); err != nil {
		if errors.Is(err, usecase.ErrItemNotInCollection) {
			notFound(w, "item not in wishlist")
			return
		}
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cart":     view(usecase.KindCart, sf.Cart()),
		"wishlist": view(usecase.KindWishlist, sf.Wishlist()),
	})
}

func (h *CollectionHandler) resolve(w http.ResponseWriter, r *http.Request) (*usecase.Storefront, usecase.Kind, *usecase.MirroredStore, bool) {
	sf, err := h.reg.Get(urlParam(r, "sid"))
	if err != nil {
		notFound(w, "session not found")
		return nil, "", nil, false
	}
	kind, err := usecase.ParseKind(urlParam(r, "kind"))
	if err != nil {
		notFound(w, "unknown collection")
		return nil, "", nil, false
	}
	store, err := sf.Store(kind)
	if err != nil {
		notFound(w, "unknown collection")
		return nil, "", nil, false
	}
	return sf, kind, store, true
}
