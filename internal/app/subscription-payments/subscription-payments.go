// Package subscriptionpayments собирает приложение: хранилище, кеш,
// платёжных провайдеров, сервисы и HTTP-сервер.
package subscriptionpayments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/subscription-payments/internal/cache"
	"github.com/magabrotheeeer/subscription-payments/internal/config"
	"github.com/magabrotheeeer/subscription-payments/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-payments/internal/migrations"
	"github.com/magabrotheeeer/subscription-payments/internal/paymentprovider"
	"github.com/magabrotheeeer/subscription-payments/internal/services/checkout"
	"github.com/magabrotheeeer/subscription-payments/internal/services/reconcile"
	"github.com/magabrotheeeer/subscription-payments/internal/services/subscription"
	"github.com/magabrotheeeer/subscription-payments/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер и ресурсы приложения.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

// New создаёт приложение: подключается к PostgreSQL и Redis, прогоняет
// миграции, собирает провайдеров и сервисы и регистрирует маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	plisio := paymentprovider.NewPlisio(cfg.PlisioAPIKey, cfg.PlisioSecretKey, cfg.BackendURL)
	cryptomus := paymentprovider.NewCryptomus(cfg.CryptomusMerchantID, cfg.CryptomusAPIKey, cfg.BackendURL)

	var active paymentprovider.Provider
	switch cfg.Provider {
	case plisio.Name():
		active = plisio
	case cryptomus.Name():
		active = cryptomus
	default:
		return nil, fmt.Errorf("unknown payment provider: %q", cfg.Provider)
	}

	subscriptionService := subscription.New(logger, db, cacheRedis)
	checkoutService := checkout.New(logger, db, db, subscriptionService, active, cfg.FreeThresholdPercent)
	reconcileService := reconcile.New(logger, db, db, subscriptionService)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db,
		subscriptionService, checkoutService, reconcileService, plisio, cryptomus)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его корректно при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		if cerr := a.cache.Db.Close(); cerr != nil {
			a.logger.Error("failed to close redis client", sl.Err(cerr))
		}
		return err
	}
}
