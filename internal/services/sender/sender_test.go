package sender

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/game-rental-service/internal/lib/smtp"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	return m.Called(from).Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	return m.Called(to).Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	return m.Called().Error(0)
}

func (m *MockSMTPClient) Quit() error {
	return m.Called().Error(0)
}

type MockSMTPWriter struct {
	mock.Mock
}

func (m *MockSMTPWriter) Write(p []byte) (n int, err error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockSMTPWriter) Close() error {
	return m.Called().Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func messageBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(models.NotificationMessage{
		Email:    "user@example.com",
		Username: "user",
		Type:     models.NotificationPlanExpiring,
		Title:    "Премиум-доступ скоро закончится",
		Message:  "Ваш премиум-доступ закончится через 3 дн.",
	})
	require.NoError(t, err)
	return body
}

func TestHandleMessage_Success(t *testing.T) {
	transport := new(MockTransport)
	client := new(MockSMTPClient)
	writer := new(MockSMTPWriter)

	transport.On("GetSMTPUser").Return("noreply@example.com")
	transport.On("Connect").Return(client, nil).Once()
	client.On("Mail", "noreply@example.com").Return(nil).Once()
	client.On("Rcpt", "user@example.com").Return(nil).Once()
	client.On("Data").Return(writer, nil).Once()
	writer.On("Write", mock.MatchedBy(func(p []byte) bool {
		msg := string(p)
		return strings.Contains(msg, "To: user@example.com") &&
			strings.Contains(msg, "Subject: Премиум-доступ скоро закончится") &&
			strings.Contains(msg, "Здравствуйте, user!")
	})).Return(100, nil).Once()
	writer.On("Close").Return(nil).Once()
	client.On("Quit").Return(nil).Once()
	client.On("Close").Return(nil).Once()

	svc := New(transport, newNoopLogger())
	err := svc.HandleMessage(messageBody(t))

	require.NoError(t, err)
	transport.AssertExpectations(t)
	client.AssertExpectations(t)
	writer.AssertExpectations(t)
}

func TestHandleMessage_BadPayload(t *testing.T) {
	svc := New(new(MockTransport), newNoopLogger())
	err := svc.HandleMessage([]byte("not-json"))

	assert.Error(t, err)
}

func TestHandleMessage_NoEmailDropped(t *testing.T) {
	transport := new(MockTransport)
	body, err := json.Marshal(models.NotificationMessage{Username: "user", Type: models.NotificationPlanExpired})
	require.NoError(t, err)

	svc := New(transport, newNoopLogger())
	err = svc.HandleMessage(body)

	require.NoError(t, err)
	transport.AssertNotCalled(t, "Connect")
}

func TestHandleMessage_ConnectError(t *testing.T) {
	transport := new(MockTransport)
	transport.On("GetSMTPUser").Return("noreply@example.com")
	transport.On("Connect").Return(nil, errors.New("dial error")).Once()

	svc := New(transport, newNoopLogger())
	err := svc.HandleMessage(messageBody(t))

	assert.Error(t, err)
}
