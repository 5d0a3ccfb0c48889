// internal/platform/di/mall/register.go
package mall

import (
	"net/http"

	"go.uber.org/zap"

	httpin "storefront/internal/adapters/in/http"
	mallhttp "storefront/internal/adapters/in/http/mall"
	mallhandler "storefront/internal/adapters/in/http/mall/handler"
	"storefront/internal/adapters/in/http/middleware"
)

// Handler builds the full mall HTTP handler from cont.
// Identity endpoints fail closed (503) when Firebase Auth is unavailable.
func Handler(cont *Container) http.Handler {
	if cont == nil {
		return http.NotFoundHandler()
	}
	logger := cont.log

	var requireUser func(http.Handler) http.Handler
	if cont.Infra.FirebaseAuth != nil {
		mw := &middleware.UserAuthMiddleware{
			FirebaseAuth: cont.Infra.FirebaseAuth,
			Logger:       cont.Infra.Logger,
		}
		requireUser = mw.Handler
	} else {
		logger.Warn("FirebaseAuth is nil; identity endpoints will return 503")
	}

	return httpin.NewRouter(httpin.RouterDeps{
		Mall: mallhttp.Deps{
			Sessions:    mallhandler.NewSessionHandler(cont.Registry, cont.Infra.Logger),
			Collections: mallhandler.NewCollectionHandler(cont.Registry, cont.Infra.Logger),
			RequireUser: requireUser,
		},
		AllowedOrigins: cont.Infra.Settings.AllowedOrigins,
		Logger:         cont.Infra.Logger.With(zap.String("component", "http")),
		Ready:          cont.Infra.Ping,
	})
}
