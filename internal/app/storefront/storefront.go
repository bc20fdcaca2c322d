// Package storefront собирает HTTP-приложение витрины: хранилище, кэш,
// брокер, сервисы и маршруты.
package storefront

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/game-rental-service/internal/cache"
	"github.com/magabrotheeeer/game-rental-service/internal/config"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/jwt"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
	"github.com/magabrotheeeer/game-rental-service/internal/migrations"
	authservice "github.com/magabrotheeeer/game-rental-service/internal/services/auth"
	"github.com/magabrotheeeer/game-rental-service/internal/services/dispatch"
	"github.com/magabrotheeeer/game-rental-service/internal/services/lifecycle"
	notifierservice "github.com/magabrotheeeer/game-rental-service/internal/services/notifier"
	"github.com/magabrotheeeer/game-rental-service/internal/storage/repository"
)

// App представляет HTTP-приложение витрины.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New создает новый экземпляр приложения витрины.
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

	// Брокер для витрины не обязателен: без него уведомления
	// только сохраняются в базе.
	var conn *amqp.Connection
	var ch *amqp.Channel
	if cfg.RabbitMQURL != "" {
		conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			logger.Warn("rabbitmq unavailable, email notifications disabled", sl.Err(err))
		} else {
			ch, err = rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
			if err != nil {
				logger.Warn("failed to setup rabbitmq channel", sl.Err(err))
			}
		}
	}

	jwtMaker := jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.New(db, jwtMaker)

	scheduler := dispatch.NewScheduler(db)
	lifecycleService := lifecycle.New(db, cacheRedis, scheduler, logger)
	notifierService := notifierservice.New(db, ch, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authService, lifecycleService, notifierService)

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
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
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
		a.closeResources()
		return err
	}
}

func (a *App) closeResources() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
