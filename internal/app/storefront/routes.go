// Package storefront предоставляет маршруты витрины.
package storefront

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/game-rental-service/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/game-rental-service/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/game-rental-service/internal/http/handlers/health"
	notificationlist "github.com/magabrotheeeer/game-rental-service/internal/http/handlers/notification/list"
	"github.com/magabrotheeeer/game-rental-service/internal/http/handlers/notification/markread"
	"github.com/magabrotheeeer/game-rental-service/internal/http/handlers/premium/autorenew"
	"github.com/magabrotheeeer/game-rental-service/internal/http/handlers/premium/status"
	"github.com/magabrotheeeer/game-rental-service/internal/http/handlers/premium/upgrade"
	"github.com/magabrotheeeer/game-rental-service/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/game-rental-service/internal/services/auth"
	"github.com/magabrotheeeer/game-rental-service/internal/services/lifecycle"
	notifierservice "github.com/magabrotheeeer/game-rental-service/internal/services/notifier"
)

// RegisterRoutes регистрирует все маршруты витрины.
func RegisterRoutes(r chi.Router, logger *slog.Logger, authService *authservice.Service, lifecycleService *lifecycle.Service, notifierService *notifierservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/premium/upgrade", upgrade.New(logger, lifecycleService).ServeHTTP)
			r.Post("/premium/autorenew", autorenew.New(logger, lifecycleService).ServeHTTP)
			r.Get("/premium/status", status.New(logger, lifecycleService).ServeHTTP)
			r.Get("/notifications", notificationlist.New(logger, notifierService).ServeHTTP)
			r.Post("/notifications/{id}/read", markread.New(logger, notifierService).ServeHTTP)
		})
	})

	r.Get("/health", health.New())
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
