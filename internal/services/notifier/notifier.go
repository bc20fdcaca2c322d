// Package notifier отвечает за пользовательские уведомления: сохраняет их
// в хранилище и публикует почтовые сообщения в RabbitMQ.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/game-rental-service/internal/lib/besteffort"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

// Repository определяет методы хранилища для уведомлений.
type Repository interface {
	// GetProfile возвращает профиль по UID.
	GetProfile(ctx context.Context, userUID string) (*models.Profile, error)
	// CreateNotification сохраняет уведомление и возвращает его ID.
	CreateNotification(ctx context.Context, n models.Notification) (int64, error)
	// ListNotifications возвращает уведомления пользователя с пагинацией.
	ListNotifications(ctx context.Context, userUID string, limit, offset int) ([]*models.Notification, error)
	// MarkNotificationRead помечает уведомление прочитанным.
	MarkNotificationRead(ctx context.Context, userUID string, id int64) (bool, error)
}

// Service сохраняет уведомления и рассылает почтовые сообщения.
type Service struct {
	repo Repository
	ch   *amqp.Channel
	log  *slog.Logger
}

// New создает новый экземпляр Service. Канал RabbitMQ может быть nil,
// тогда уведомления только сохраняются без отправки почты.
func New(repo Repository, ch *amqp.Channel, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		ch:   ch,
		log:  log,
	}
}

// Notify сохраняет уведомление и публикует почтовое сообщение.
// Сохранение обязательно, публикация идет как best-effort: недоступный
// брокер не должен ронять свипер или планировщик напоминаний.
func (s *Service) Notify(ctx context.Context, n models.Notification) (int64, error) {
	id, err := s.repo.CreateNotification(ctx, n)
	if err != nil {
		return 0, err
	}
	s.log.Info("notification stored",
		slog.String("user_uid", n.UserUID),
		slog.String("type", n.Type),
		slog.Int64("id", id))

	besteffort.Do(s.log, "notifier.publish", func() error {
		return s.publishEmail(ctx, n)
	})
	return id, nil
}

func (s *Service) publishEmail(ctx context.Context, n models.Notification) error {
	if s.ch == nil {
		return nil
	}

	var routing string
	switch n.Type {
	case models.NotificationPlanExpired:
		routing = rabbitmq.RoutingExpired
	case models.NotificationPlanExpiring:
		routing = rabbitmq.RoutingExpiring
	default:
		return fmt.Errorf("no routing key for notification type %q", n.Type)
	}

	profile, err := s.repo.GetProfile(ctx, n.UserUID)
	if err != nil {
		return err
	}

	msg := models.NotificationMessage{
		Email:    profile.Email,
		Username: profile.Username,
		Type:     n.Type,
		Title:    n.Title,
		Message:  n.Message,
	}
	return rabbitmq.PublishMessage(s.ch, rabbitmq.Exchange, routing, msg)
}

// List возвращает уведомления пользователя с пагинацией.
func (s *Service) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Notification, error) {
	return s.repo.ListNotifications(ctx, userUID, limit, offset)
}

// MarkRead помечает уведомление пользователя прочитанным.
// Возвращает false, если уведомление не найдено.
func (s *Service) MarkRead(ctx context.Context, userUID string, id int64) (bool, error) {
	return s.repo.MarkNotificationRead(ctx, userUID, id)
}
