// Package reminder собирает приложение планировщика напоминаний
// об окончании премиум-доступа.
package reminder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/game-rental-service/internal/config"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
	notifierservice "github.com/magabrotheeeer/game-rental-service/internal/services/notifier"
	reminderservice "github.com/magabrotheeeer/game-rental-service/internal/services/reminder"
	"github.com/magabrotheeeer/game-rental-service/internal/storage/repository"
)

// App представляет приложение планировщика напоминаний.
type App struct {
	reminderService *reminderservice.Service
	db              *repository.Storage
	conn            *amqp.Connection
	ch              *amqp.Channel
	logger          *slog.Logger
}

// New создает новый экземпляр приложения напоминаний.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		if cerr := conn.Close(); cerr != nil {
			logger.Error("failed to close connection", sl.Err(cerr))
		}
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		if cerr := conn.Close(); cerr != nil {
			logger.Error("failed to close connection", sl.Err(cerr))
		}
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	notifierService := notifierservice.New(db, ch, logger)
	reminderService := reminderservice.New(db, notifierService, logger, cfg.Reminder)

	return &App{
		reminderService: reminderService,
		db:              db,
		conn:            conn,
		ch:              ch,
		logger:          logger,
	}, nil
}

// Run запускает планировщик напоминаний до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	go a.reminderService.Run(ctx)

	<-ctx.Done()

	a.logger.Info("shutting down reminder service")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
