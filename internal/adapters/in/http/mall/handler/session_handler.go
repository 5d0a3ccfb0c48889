// internal/adapters/in/http/mall/handler/session_handler.go
package mallHandler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"storefront/internal/adapters/in/http/middleware"
	usecase "storefront/internal/application/usecase"
)

// SessionRegistry is the subset of usecase.Registry the handlers need.
type SessionRegistry interface {
	Create(ctx context.Context) *usecase.Storefront
	Get(id string) (*usecase.Storefront, error)
	Delete(ctx context.Context, id string) error
}

// SessionHandler serves /mall/sessions.
type SessionHandler struct {
	reg SessionRegistry
	log *zap.Logger
}

func NewSessionHandler(reg SessionRegistry, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{reg: reg, log: logger.With(zap.String("component", "mall_session_handler"))}
}

type sessionResponse struct {
	SessionID     string `json:"sessionId"`
	CreatedAt     string `json:"createdAt"`
	Authenticated bool   `json:"authenticated"`
	CartCount     int    `json:"cartCount"`
	WishlistCount int    `json:"wishlistCount"`
}

func toSessionResponse(sf *usecase.Storefront) sessionResponse {
	_, authed := sf.Session().Identity()
	return sessionResponse{
		SessionID:     sf.Session().ID(),
		CreatedAt:     toRFC3339(sf.Session().CreatedAt()),
		Authenticated: authed,
		CartCount:     sf.Cart().TotalCount(),
		WishlistCount: sf.Wishlist().TotalCount(),
	}
}

// POST /mall/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sf := h.reg.Create(r.Context())
	h.log.Info("session created", zap.String("session", sf.Session().ID()))
	writeJSON(w, http.StatusCreated, toSessionResponse(sf))
}

// GET /mall/sessions/{sid}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sf))
}

// DELETE /mall/sessions/{sid}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sid := urlParam(r, "sid")
	err := h.reg.Delete(r.Context(), sid)
	switch {
	case errors.Is(err, usecase.ErrSessionNotFound):
		notFound(w, "session not found")
		return
	case err != nil:
		// flush was cut short (client went away); the session is gone anyway
		h.log.Warn("session deleted before flush completed", zap.String("session", sid), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// PUT /mall/sessions/{sid}/identity (UserAuthMiddleware)
// Logs the session in as the verified uid; both collections reload before
// the response is written.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	uid, ok := middleware.CurrentUserUID(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sf, ok := h.lookup(w, r)
	if !ok {
		return
	}

	sf.Login(uid)
	email, _ := middleware.CurrentUserEmail(r)
	h.log.Info("session login",
		zap.String("session", sf.Session().ID()),
		zap.String("uid", usecase.MaskUID(uid)),
		zap.String("email_domain", emailDomain(email)),
		zap.Duration("elapsed", time.Since(start)),
	)
	writeJSON(w, http.StatusOK, toSessionResponse(sf))
}

// DELETE /mall/sessions/{sid}/identity
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	sf.Logout()
	h.log.Info("session logout", zap.String("session", sf.Session().ID()))
	writeJSON(w, http.StatusOK, toSessionResponse(sf))
}

// RequireOwner guards the routes of one session. Anonymous sessions pass
// through. Once the session has an identity, the request must carry a
// verified token (requireUser) for that same uid: 401 without one, 403 for
// another user.
func (h *SessionHandler) RequireOwner(requireUser func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		owned := requireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sf, ok := h.lookup(w, r)
			if !ok {
				return
			}
			owner, _ := sf.Session().Identity()
			uid, _ := middleware.CurrentUserUID(r)
			if uid != owner {
				h.log.Warn("session owner mismatch",
					zap.String("session", sf.Session().ID()),
					zap.String("uid", usecase.MaskUID(uid)),
				)
				writeErr(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		}))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sf, ok := h.lookup(w, r)
			if !ok {
				return
			}
			if _, authed := sf.Session().Identity(); !authed {
				next.ServeHTTP(w, r)
				return
			}
			owned.ServeHTTP(w, r)
		})
	}
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*usecase.Storefront, bool) {
	sf, err := h.reg.Get(urlParam(r, "sid"))
	if err != nil {
		notFound(w, "session not found")
		return nil, false
	}
	return sf, true
}
