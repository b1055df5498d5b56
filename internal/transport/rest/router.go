package rest

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/loan-servicing/api"
	"github.com/frahmantamala/loan-servicing/internal/auth"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/user"
	"github.com/frahmantamala/loan-servicing/internal/loan"
	"github.com/frahmantamala/loan-servicing/internal/payment"
	"github.com/frahmantamala/loan-servicing/internal/scoring"
	"github.com/frahmantamala/loan-servicing/internal/transport/middleware"
	"github.com/frahmantamala/loan-servicing/internal/transport/swagger"
	userapi "github.com/frahmantamala/loan-servicing/internal/user"
)

type Handlers struct {
	Auth    *auth.Handler
	User    *userapi.Handler
	Loan    *loan.Handler
	Payment *payment.Handler
	Scoring *scoring.Handler
	Health  *HealthHandler
}

type Options struct {
	AllowedOrigins []string
	// Contract enables request validation when set.
	Contract routers.Router
	// Idempotency guards intent creation when set.
	Idempotency func(http.Handler) http.Handler
	MediaRoot   string
	MediaURL    string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options, logger *slog.Logger) {
	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	if h.Health != nil {
		router.Get("/health", h.Health.healthCheckHandler)
		router.Get("/ping", h.Health.pingHandler)
	}

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec)
	})
	router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))

	if opts.MediaRoot != "" {
		prefix := "/" + strings.Trim(opts.MediaURL, "/") + "/"
		router.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(opts.MediaRoot))))
	}

	router.Group(func(r chi.Router) {
		if opts.Contract != nil {
			r.Use(middleware.RequestValidator(opts.Contract, logger))
		}
		idempotent := opts.Idempotency
		if idempotent == nil {
			idempotent = func(next http.Handler) http.Handler { return next }
		}

		if h.Scoring != nil {
			r.Get("/ai/health", h.Scoring.Health)
		}

		if h.Auth == nil {
			return
		}
		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)

				pr.Group(func(ar chi.Router) {
					ar.Use(h.Auth.RequireRoles(user.RoleAdmin))
					ar.Delete("/staff/borrowers/{id}", h.User.DeleteBorrower)
				})
			}

			if h.Loan != nil {
				pr.Get("/loans/applications", h.Loan.ListApplications)
				pr.Get("/loans/loans/mine", h.Loan.MyLoans)

				pr.Group(func(br chi.Router) {
					br.Use(h.Auth.RequireRoles(user.RoleBorrower))
					br.Post("/loans/applications", h.Loan.CreateApplication)
					br.Get("/loans/loans/{loan_id}/chart", h.Loan.Chart)
				})

				pr.Group(func(sr chi.Router) {
					sr.Use(h.Auth.RequireRoles(user.RoleOfficer, user.RoleAdmin))
					sr.Post("/loans/applications/{id}/decision", h.Loan.Decide)
					sr.Post("/loans/applications/{id}/score", h.Loan.Rescore)
				})
			}

			if h.Payment != nil {
				pr.Group(func(br chi.Router) {
					br.Use(h.Auth.RequireRoles(user.RoleBorrower))
					br.With(idempotent).Post("/loans/loans/{loan_id}/repayments/{repayment_id}/stripe/intent", h.Payment.CreateIntent)
					br.Post("/loans/payments/confirm", h.Payment.Confirm)
				})

				pr.Group(func(sr chi.Router) {
					sr.Use(h.Auth.RequireRoles(user.RoleOfficer, user.RoleAdmin))
					sr.Get("/loans/payments/pending", h.Payment.Pending)
					sr.Post("/loans/payments/{id}/approve", h.Payment.Approve)
					sr.Post("/loans/payments/{id}/cancel", h.Payment.Cancel)
				})
			}
		})
	})
}
