/**
 * @description
 * This file sets up the HTTP router for the donation-service using chi.
 * It defines all routes and attaches middleware. Public query endpoints and
 * the provider webhook need no auth; the admin group requires a portal JWT
 * with the admin role.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: The HTTP router.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures the service's router.
func NewRouter(handlers *DonationHandlers, webhook *WebhookHandler, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/donation", func(r chi.Router) {
		r.Get("/active", handlers.ActiveCampaignHandler)
		r.Get("/recent-donors", handlers.RecentDonorsHandler)
		r.Get("/leaderboard", handlers.LeaderboardHandler)
		r.Get("/milestones", handlers.MilestonesHandler)
		r.Post("/create-payment", handlers.CreatePaymentHandler)
		r.Get("/check-payment/{orderCode}", handlers.CheckPaymentHandler)
		r.Get("/donor-tier/{name}", handlers.DonorTierHandler)

		r.Post("/webhook/payos", webhook.ServeHTTP)

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(jwtSecret))
			r.Get("/list", handlers.AdminListHandler)
			r.Post("/create", handlers.AdminCreateHandler)
			r.Put("/{id}", handlers.AdminUpdateHandler)
			r.Delete("/{id}", handlers.AdminDeleteHandler)
			r.Get("/{id}/transactions", handlers.AdminTransactionsHandler)
			r.Post("/{id}/add-manual", handlers.AdminAddManualHandler)
		})
	})

	return r
}
