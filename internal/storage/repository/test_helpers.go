package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/game-rental-service/internal/migrations"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateProfile создает тестового пользователя с ролью free
func (f *TestDataFactory) CreateProfile(t *testing.T, username, email string) string {
	userUID := uuid.New().String()
	_, err := f.storage.DB.Exec(`INSERT INTO users (uid, username, email, password_hash, role)
		VALUES ($1, $2, $3, $4, 'free')`,
		userUID, username, email, "hashedpassword")
	require.NoError(t, err)
	return userUID
}

// CreatePremiumProfile создает пользователя в premium с денормализованными полями
func (f *TestDataFactory) CreatePremiumProfile(t *testing.T, username, email string,
	plan models.Plan, expiresAt, trialEndsAt *time.Time, autoRenew bool) string {
	userUID := uuid.New().String()
	_, err := f.storage.DB.Exec(`INSERT INTO users
		(uid, username, email, password_hash, role, premium_plan, premium_expires_at, premium_auto_renew, trial_ends_at)
		VALUES ($1, $2, $3, $4, 'premium', $5, $6, $7, $8)`,
		userUID, username, email, "hashedpassword", string(plan), expiresAt, autoRenew, trialEndsAt)
	require.NoError(t, err)
	return userUID
}

// CreateSubscription создает запись подписки и возвращает её ID
func (f *TestDataFactory) CreateSubscription(t *testing.T, userUID string, plan models.Plan,
	startAt time.Time, expiresAt *time.Time, status models.SubscriptionStatus, autoRenew bool) string {
	id := uuid.New().String()
	_, err := f.storage.DB.Exec(`INSERT INTO subscriptions
		(id, user_uid, plan, start_at, expires_at, status, auto_renew)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, userUID, string(plan), startAt, expiresAt, string(status), autoRenew)
	require.NoError(t, err)
	return id
}

// CreateNotificationAt создает уведомление с заданным created_at
func (f *TestDataFactory) CreateNotificationAt(t *testing.T, userUID, ntype string, createdAt time.Time) int64 {
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO notifications (user_uid, type, title, message, created_at)
		VALUES ($1, $2, 'title', 'message', $3)
		RETURNING id`,
		userUID, ntype, createdAt).Scan(&id)
	require.NoError(t, err)
	return id
}

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL
// и прогоняет реальные миграции проекта.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var storage *Storage
	for range 10 {
		storage, err = New(dsn)
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "Failed to create storage after retries")

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath), "Failed to run migrations")

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		_ = pgContainer.Terminate(ctx)
	}

	return storage, cleanup
}
