package routes

import (
	"github.com/go-chi/chi/v5"
	"savings-circle/rosca/internal/api"
	"savings-circle/rosca/internal/middleware"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, deps *api.Dependencies, limiter *middleware.RateLimiter) {
	svcs := deps.Services

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(limiter.Middleware)

		v1.Get("/fees/ratios", api.GetFeeRatiosHandler())

		v1.Group(func(member chi.Router) {
			member.Use(middleware.AuthMiddleware(svcs.Tokens, deps.Repo.UserGorm))

			member.Get("/me", api.GetMeHandler(deps.Repo.UserGorm, deps.Repo.Payments))
			member.Post("/turns/{turn_id}/reserve", api.ReserveTurnHandler(svcs.Turns))
			member.Post("/associations/{association_id}/contributions", api.PayInstallmentHandler(svcs.Installments))
			member.Get("/associations/{association_id}", api.GetAssociationHandler(svcs.Associations))
			member.Get("/associations/{association_id}/payments", api.ListPaymentsHandler(deps.Repo.Payments))

			// Admin-only group
			member.Group(func(admin chi.Router) {
				admin.Use(middleware.IsAdminMiddleware())

				admin.Post("/admin/associations", api.CreateAssociationHandler(svcs.Associations))
				admin.Post("/admin/associations/{association_id}/cycle", api.TriggerCycleHandler(svcs.Cycles))
				admin.Post("/admin/wallets/{user_id}/topup", api.TopUpWalletHandler(svcs.Associations))
			})
		})
	})
}
