package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

func TestStorage_CreateAndGetProfile(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	uid, err := storage.CreateProfile(ctx, models.Profile{
		Email:        "test@example.com",
		Username:     "testuser",
		PasswordHash: "hashedpassword",
		Role:         models.RoleFree,
	})
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	got, err := storage.GetProfile(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, uid, got.UID)
	assert.Equal(t, "test@example.com", got.Email)
	assert.Equal(t, "testuser", got.Username)
	assert.Equal(t, models.RoleFree, got.Role)
	assert.False(t, got.FreeTrialUsed)
	assert.Nil(t, got.PremiumPlan)

	byName, err := storage.GetProfileByUsername(ctx, "testuser")
	require.NoError(t, err)
	assert.Equal(t, uid, byName.UID)
}

func TestStorage_GetProfile_NotFound(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	_, err := storage.GetProfile(context.Background(), "550e8400-e29b-41d4-a716-446655440000")
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStorage_CreateProfile_DuplicateUsername(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	factory.CreateProfile(t, "testuser", "first@example.com")

	_, err := storage.CreateProfile(ctx, models.Profile{
		Email:        "second@example.com",
		Username:     "testuser",
		PasswordHash: "hashedpassword",
		Role:         models.RoleFree,
	})
	require.Error(t, err)
}

func TestStorage_UpgradeProfilePremium(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	uid := factory.CreateProfile(t, "testuser", "test@example.com")

	plan := models.PlanMonthly
	expiresAt := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Microsecond)
	trialEndsAt := time.Now().Add(7 * 24 * time.Hour).UTC().Truncate(time.Microsecond)

	err := storage.UpgradeProfilePremium(ctx, uid, models.PremiumStatus{
		Plan:        &plan,
		ExpiresAt:   &expiresAt,
		AutoRenew:   true,
		TrialEndsAt: &trialEndsAt,
	}, true)
	require.NoError(t, err)

	got, err := storage.GetProfile(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, models.RolePremium, got.Role)
	require.NotNil(t, got.PremiumPlan)
	assert.Equal(t, models.PlanMonthly, *got.PremiumPlan)
	require.NotNil(t, got.PremiumExpiresAt)
	assert.True(t, expiresAt.Equal(*got.PremiumExpiresAt))
	assert.True(t, got.PremiumAutoRenew)
	require.NotNil(t, got.TrialEndsAt)
	assert.True(t, got.FreeTrialUsed)
}

func TestStorage_UpgradeProfilePremium_NotFound(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	plan := models.PlanMonthly
	err := storage.UpgradeProfilePremium(context.Background(),
		"550e8400-e29b-41d4-a716-446655440000",
		models.PremiumStatus{Plan: &plan}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStorage_DowngradeProfile(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	uid := factory.CreateProfile(t, "testuser", "test@example.com")

	plan := models.PlanMonthly
	expiresAt := time.Now().Add(30 * 24 * time.Hour)
	err := storage.UpgradeProfilePremium(ctx, uid, models.PremiumStatus{
		Plan:      &plan,
		ExpiresAt: &expiresAt,
		AutoRenew: true,
	}, true)
	require.NoError(t, err)

	changed, err := storage.DowngradeProfile(ctx, uid)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := storage.GetProfile(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, models.RoleFree, got.Role)
	assert.Nil(t, got.PremiumPlan)
	assert.Nil(t, got.PremiumExpiresAt)
	assert.False(t, got.PremiumAutoRenew)
	assert.Nil(t, got.TrialEndsAt)
	// признак использованного триала не сбрасывается
	assert.True(t, got.FreeTrialUsed)

	// повторное понижение безвредно и сообщает об отсутствии изменений
	changed, err = storage.DowngradeProfile(ctx, uid)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestStorage_SetProfileAutoRenew(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	expiresAt := time.Now().Add(30 * 24 * time.Hour)
	uid := factory.CreatePremiumProfile(t, "testuser", "test@example.com",
		models.PlanMonthly, &expiresAt, nil, true)

	require.NoError(t, storage.SetProfileAutoRenew(ctx, uid, false))

	got, err := storage.GetProfile(ctx, uid)
	require.NoError(t, err)
	assert.False(t, got.PremiumAutoRenew)

	err = storage.SetProfileAutoRenew(ctx, "550e8400-e29b-41d4-a716-446655440000", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStorage_ListPremiumProfiles(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	expiresAt := time.Now().Add(30 * 24 * time.Hour)

	factory.CreateProfile(t, "freeuser", "free@example.com")
	premiumUID := factory.CreatePremiumProfile(t, "premiumuser", "premium@example.com",
		models.PlanMonthly, &expiresAt, nil, true)
	factory.CreatePremiumProfile(t, "lifetimeuser", "lifetime@example.com",
		models.PlanLifetime, nil, nil, false)

	got, err := storage.ListPremiumProfiles(context.Background())
	require.NoError(t, err)
	// free и lifetime не попадают в выборку напоминаний
	require.Len(t, got, 1)
	assert.Equal(t, premiumUID, got[0].UID)
}
