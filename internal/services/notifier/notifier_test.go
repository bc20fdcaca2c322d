package notifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetProfile(ctx context.Context, userUID string) (*models.Profile, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}
func (m *RepoMock) CreateNotification(ctx context.Context, n models.Notification) (int64, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(int64), args.Error(1)
}
func (m *RepoMock) ListNotifications(ctx context.Context, userUID string, limit, offset int) ([]*models.Notification, error) {
	args := m.Called(ctx, userUID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Notification), args.Error(1)
}
func (m *RepoMock) MarkNotificationRead(ctx context.Context, userUID string, id int64) (bool, error) {
	args := m.Called(ctx, userUID, id)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestNotify_StoresWithoutBroker(t *testing.T) {
	repo := new(RepoMock)
	n := models.Notification{
		UserUID: "uid-1",
		Type:    models.NotificationPlanExpired,
		Title:   "Премиум-доступ закончился",
	}
	repo.On("CreateNotification", mock.Anything, n).Return(int64(7), nil).Once()

	svc := New(repo, nil, newNoopLogger())
	id, err := svc.Notify(context.Background(), n)

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	repo.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
}

func TestNotify_StoreFailure(t *testing.T) {
	repo := new(RepoMock)
	repo.On("CreateNotification", mock.Anything, mock.Anything).
		Return(int64(0), errors.New("db down")).Once()

	svc := New(repo, nil, newNoopLogger())
	_, err := svc.Notify(context.Background(), models.Notification{UserUID: "uid-1"})

	require.Error(t, err)
}

func TestList(t *testing.T) {
	repo := new(RepoMock)
	expected := []*models.Notification{{ID: 1, UserUID: "uid-1"}}
	repo.On("ListNotifications", mock.Anything, "uid-1", 20, 0).Return(expected, nil).Once()

	svc := New(repo, nil, newNoopLogger())
	got, err := svc.List(context.Background(), "uid-1", 20, 0)

	require.NoError(t, err)
	assert.Equal(t, expected, got)
}

func TestMarkRead_NotFound(t *testing.T) {
	repo := new(RepoMock)
	repo.On("MarkNotificationRead", mock.Anything, "uid-1", int64(99)).Return(false, nil).Once()

	svc := New(repo, nil, newNoopLogger())
	ok, err := svc.MarkRead(context.Background(), "uid-1", 99)

	require.NoError(t, err)
	assert.False(t, ok)
}
