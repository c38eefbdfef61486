package routes

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"REFERRAL_AUTH_BACK-END/internal/handlers"
	"REFERRAL_AUTH_BACK-END/internal/metrics"
	"REFERRAL_AUTH_BACK-END/internal/middleware"
)

// Handlers groups everything SetupRoutes mounts.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Reset     *handlers.PasswordResetHandler
	Referrals *handlers.ReferralHandler
	Health    *handlers.HealthHandler
	Verifier  middleware.TokenVerifier
	Metrics   *metrics.Metrics
}

// SetupRoutes configures all application routes on a fresh mux
func SetupRoutes(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check routes
	mux.HandleFunc("GET /healthz", h.Health.HealthCheck)
	mux.HandleFunc("GET /livez", h.Health.LivenessCheck)
	mux.HandleFunc("GET /readyz", h.Health.ReadinessCheck)

	// Authentication routes
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/forgot-password", h.Reset.ForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password/{token}", h.Reset.ResetPassword)

	// Referral routes
	mux.HandleFunc("GET /api/referrals/referral-stats", middleware.AuthMiddleware(h.Referrals.Stats, h.Verifier))
	mux.HandleFunc("GET /api/referrals/referrals", middleware.AuthMiddleware(h.Referrals.List, h.Verifier))

	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics.Handler())
	}
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// Root route
	mux.HandleFunc("GET /{$}", rootHandler)

	return mux
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("API is running..."))
}
