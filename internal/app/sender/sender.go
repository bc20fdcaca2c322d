// Package sender собирает приложение почтовой рассылки: читает очереди
// уведомлений из RabbitMQ и отправляет письма по SMTP.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/game-rental-service/internal/config"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/smtp"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
	senderservice "github.com/magabrotheeeer/game-rental-service/internal/services/sender"
)

// App представляет приложение почтовой рассылки.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New создает новый экземпляр приложения рассылки.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		if cerr := conn.Close(); cerr != nil {
			logger.Error("failed to close connection", sl.Err(cerr))
		}
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.New(transport, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run подписывается на очереди уведомлений и работает до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	for _, q := range rabbitmq.GetNotificationQueues() {
		if err := rabbitmq.ConsumerMessage(ctx, a.ch, q.QueueName, a.senderService.HandleMessage); err != nil {
			a.logger.Error("failed to start consumer",
				slog.String("queue", q.QueueName), sl.Err(err))
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}
