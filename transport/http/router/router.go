package router

import (
	"github.com/go-chi/chi/v5"

	"roost/internal/handlers/booking"
	"roost/internal/handlers/payment"
	"roost/transport/http/middleware"
)

type DomainHandlers struct {
	Booking booking.Handler
	Payment payment.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
	App            middleware.AppMiddleware
	Auth           middleware.Auth
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Use(r.App.Tracing)
	router.Use(r.App.CORS)
	router.Use(r.App.RateLimit())

	router.Route("/v1", func(routerGroup chi.Router) {
		// The provider callback authenticates with the gateway API key, not
		// a user token.
		r.DomainHandlers.Payment.CallbackRouter(routerGroup)

		routerGroup.Group(func(authed chi.Router) {
			authed.Use(r.Auth.Auth)

			r.DomainHandlers.Booking.Router(authed)
			r.DomainHandlers.Payment.Router(authed)
		})
	})
}

func New(domainHandlers DomainHandlers, app middleware.AppMiddleware, auth middleware.Auth) Router {
	return Router{
		DomainHandlers: domainHandlers,
		App:            app,
		Auth:           auth,
	}
}
