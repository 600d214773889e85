package handlers

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)
		r.Post("/auth/register", h.RegisterHandler)
		r.Post("/auth/login", h.LoginHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Post("/fare/verify", h.VerifyHandler)
			r.Post("/fare/topup", h.TopUpHandler)

			r.Post("/cards", h.RegisterCardHandler)
			r.Get("/cards", h.ListCardsHandler)
			r.Get("/cards/transactions", h.ListTransactionsHandler)
			r.Put("/cards/alias", h.UpdateAliasHandler)
			r.Delete("/cards/{tag}", h.DeleteCardHandler)
		})
	})
}
