// internal/adapters/in/http/mall/router.go
package mall

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mallhandler "storefront/internal/adapters/in/http/mall/handler"
)

// Deps is the buyer-facing (mall) handler set.
type Deps struct {
	Sessions    *mallhandler.SessionHandler
	Collections *mallhandler.CollectionHandler

	// RequireUser wraps endpoints that need a verified Firebase user:
	// login, and every route of a session that has an identity.
	RequireUser func(http.Handler) http.Handler
}

// Register mounts the mall routes onto r.
func Register(r chi.Router, deps Deps) {
	if r == nil || deps.Sessions == nil || deps.Collections == nil {
		return
	}
	requireUser := deps.RequireUser
	if requireUser == nil {
		requireUser = func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "user auth middleware not initialized", http.StatusServiceUnavailable)
			})
		}
	}

	s, c := deps.Sessions, deps.Collections

	r.Route("/mall/sessions", func(r chi.Router) {
		r.Post("/", s.Create)

		r.Route("/{sid}", func(r chi.Router) {
			r.With(requireUser).Put("/identity", s.Login)

			// once logged in, only the owner's token may read or change the session
			r.Group(func(r chi.Router) {
				r.Use(s.RequireOwner(requireUser))

				r.Get("/", s.Get)
				r.Delete("/", s.Delete)
				r.Delete("/identity", s.Logout)

				r.Post("/wishlist/items/{id}/move-to-cart", c.MoveToCart)

				r.Route("/{kind}", func(r chi.Router) {
					r.Get("/", c.Get)
					r.Delete("/", c.Clear)
					r.Post("/items", c.AddItem)
					r.Get("/items/{id}", c.Contains)
					r.Put("/items/{id}", c.SetQuantity)
					r.Delete("/items/{id}", c.RemoveItem)
				})
			})
		})
	})
}
