// Package sweeper собирает приложение фоновой обработки: свипер истекших
// подписок и диспетчер отложенных заданий.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/game-rental-service/internal/cache"
	"github.com/magabrotheeeer/game-rental-service/internal/config"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
	"github.com/magabrotheeeer/game-rental-service/internal/services/dispatch"
	"github.com/magabrotheeeer/game-rental-service/internal/services/lifecycle"
	notifierservice "github.com/magabrotheeeer/game-rental-service/internal/services/notifier"
	sweeperservice "github.com/magabrotheeeer/game-rental-service/internal/services/sweeper"
	"github.com/magabrotheeeer/game-rental-service/internal/storage/repository"
)

// App представляет приложение свипера.
type App struct {
	sweeperService *sweeperservice.Service
	dispatcher     *dispatch.Dispatcher
	db             *repository.Storage
	conn           *amqp.Connection
	ch             *amqp.Channel
	logger         *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения свипера.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	notifierService := notifierservice.New(db, ch, logger)
	sweeperService := sweeperservice.New(db, notifierService, cacheRedis, logger, cfg.Sweeper)

	// Диспетчер живет в этом же бинаре: конвертация пробных периодов
	// идет рядом со свипом, обоим нужен только опрос базы по таймеру.
	scheduler := dispatch.NewScheduler(db)
	lifecycleService := lifecycle.New(db, cacheRedis, scheduler, logger)
	dispatcher := dispatch.NewDispatcher(db, lifecycleService, logger, cfg.Dispatcher)

	return &App{
		sweeperService: sweeperService,
		dispatcher:     dispatcher,
		db:             db,
		conn:           conn,
		ch:             ch,
		logger:         logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run запускает свипер и диспетчер до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	go a.sweeperService.Run(ctx)
	go a.dispatcher.Run(ctx)

	<-ctx.Done()

	a.logger.Info("shutting down sweeper service")
	closeResources(a.ch, a.conn, a.logger)
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
