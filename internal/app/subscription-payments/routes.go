// Package subscriptionpayments предоставляет маршруты приложения.
package subscriptionpayments

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/subscription-payments/internal/http/handlers/callback"
	"github.com/magabrotheeeer/subscription-payments/internal/http/handlers/health"
	invoicecreate "github.com/magabrotheeeer/subscription-payments/internal/http/handlers/invoice/create"
	"github.com/magabrotheeeer/subscription-payments/internal/http/handlers/pricing/adjusted"
	promoapply "github.com/magabrotheeeer/subscription-payments/internal/http/handlers/promo/apply"
	"github.com/magabrotheeeer/subscription-payments/internal/http/handlers/user/trial"
	"github.com/magabrotheeeer/subscription-payments/internal/http/handlers/user/verify"
	"github.com/magabrotheeeer/subscription-payments/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-payments/internal/services/checkout"
	"github.com/magabrotheeeer/subscription-payments/internal/services/reconcile"
	"github.com/magabrotheeeer/subscription-payments/internal/services/subscription"
	"github.com/magabrotheeeer/subscription-payments/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения. Продуктовые конечные
// точки не требуют аутентификации: сервис обслуживает единственный известный
// клиент. Callback-и регистрируются для обоих провайдеров независимо от того,
// какой из них выбран для создания новых счетов.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *repository.Storage,
	subscriptionService *subscription.Service,
	checkoutService *checkout.Service,
	reconcileService *reconcile.Service,
	plisio callback.Verifier, cryptomus callback.Verifier) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		middlewarectx.CORSMiddleware,
		middlewarectx.RateLimitMiddleware(logger),
	)

	r.Post("/verify-user", verify.New(logger, subscriptionService).ServeHTTP)
	r.Post("/request-trial", trial.New(logger, subscriptionService).ServeHTTP)
	r.Post("/apply-promo", promoapply.New(logger, checkoutService).ServeHTTP)
	r.Post("/get-adjusted-prices", adjusted.New(logger, checkoutService).ServeHTTP)
	r.Post("/create-invoice", invoicecreate.New(logger, checkoutService).ServeHTTP)

	r.Post("/plisio-callback", callback.New(logger, plisio, reconcileService).ServeHTTP)
	r.Post("/cryptomus-callback", callback.New(logger, cryptomus, reconcileService).ServeHTTP)

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
