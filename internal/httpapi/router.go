package httpapi

import (
	"net/http"

	"warimas-orderflow/internal/logger"
	"warimas-orderflow/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	JWTSecret   []byte
	InternalKey string
	// Limiter is optional.
	Limiter *middleware.RateLimiter
	// GraphQL is mounted at /query when set. Its fields check the caller
	// themselves; Playground is mounted at /playground.
	GraphQL    http.Handler
	Playground http.Handler
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(middleware.AuthMiddleware(cfg.JWTSecret, cfg.InternalKey))
	r.Use(logger.LoggingMiddleware)
	if cfg.Limiter != nil {
		r.Use(cfg.Limiter.Middleware)
	}

	r.Get("/healthz", h.Health)

	if cfg.GraphQL != nil {
		r.Handle("/query", cfg.GraphQL)
	}
	if cfg.Playground != nil {
		r.Handle("/playground", cfg.Playground)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Get("/events", h.Events)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/lines", h.AddLine)
			r.Patch("/lines/{lineID}", h.ChangeQuantity)
			r.Delete("/lines", h.RemoveLines)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", h.GetCheckout)
			r.Post("/precheck", h.Precheck)
			r.Post("/orders", h.PlaceOrder)
			r.Get("/payment/callback", h.PaymentCallback)
			r.Post("/abandon", h.Abandon)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Get("/received", h.ListReceived)
			r.Get("/{orderID}", h.GetOrder)

			r.Route("/items/{itemID}", func(r chi.Router) {
				r.Get("/", h.GetItem)
				r.Post("/actions", h.ApplyAction)
				r.Get("/claims", h.ListClaims)
			})
		})
	})

	return r
}
