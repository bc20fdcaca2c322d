package status

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/game-rental-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

// MockService реализует интерфейс status.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) PremiumStatus(ctx context.Context, userUID string) (*models.PremiumStatus, error) {
	args := m.Called(ctx, userUID)
	if res := args.Get(0); res != nil {
		return res.(*models.PremiumStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestStatusHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	expires := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	plan := models.PlanMonthly

	tests := []struct {
		name           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "premium пользователь",
			setupMock: func(m *MockService) {
				m.On("PremiumStatus", mock.Anything, "uid-1").Return(&models.PremiumStatus{
					Role:      models.RolePremium,
					Plan:      &plan,
					ExpiresAt: &expires,
					AutoRenew: true,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"role":"premium"`,
		},
		{
			name: "пользователь не найден",
			setupMock: func(m *MockService) {
				m.On("PremiumStatus", mock.Anything, "uid-1").Return(nil, sql.ErrNoRows)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `user not found`,
		},
		{
			name: "ошибка хранилища",
			setupMock: func(m *MockService) {
				m.On("PremiumStatus", mock.Anything, "uid-1").Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `failed to read premium status`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/premium/status", nil)
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, "uid-1"))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
