// Package sender отправляет почтовые уведомления, полученные из очередей
// RabbitMQ, через SMTP транспорт.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/smtp"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

// Service отправляет письма через SMTP транспорт.
type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(transport smtp.TransportInterface, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		log:       log,
	}
}

// HandleMessage обрабатывает сообщение уведомления из очереди и отправляет
// письмо. Возвращаемая ошибка ведет к повторной доставке сообщения.
func (s *Service) HandleMessage(body []byte) error {
	var message models.NotificationMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}
	if message.Email == "" {
		s.log.Warn("notification message without email, dropping",
			slog.String("type", message.Type))
		return nil
	}

	subject := message.Title
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\n%s", message.Username, message.Message)

	return s.sendEmail([]string{message.Email}, subject, bodyText)
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
