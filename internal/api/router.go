/**
 * @description
 * This file sets up the HTTP router for the luckypool-service. It defines the
 * API endpoints, associates them with their corresponding handlers, and
 * applies any necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LuckyPoolRoutes creates and returns a new router for the lucky pool service.
func LuckyPoolRoutes(h *LuckyPoolHandlers, jwtSecret, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Aggregate pool state is public.
	r.Get("/luckypool/state", h.StateHandler)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Post("/luckypool/captcha", h.CaptchaHandler)
		r.Post("/luckypool/airdrop", h.AirdropClaimHandler)
		r.Get("/luckypool/airdrop", h.AirdropStateHandler)
		r.Post("/luckypool/prize", h.PrizeClaimHandler)
		r.Post("/luckypool/harvest", h.HarvestHandler)
		r.Post("/luckypool/luckydraw", h.LuckyDrawHandler)
	})

	// Internal ops endpoints are guarded by the shared API key.
	r.Group(func(r chi.Router) {
		r.Use(InternalKeyMiddleware(internalAPIKey))

		r.Post("/internal/luckypool/prizes", h.PrizeIssueHandler)
	})

	return r
}
