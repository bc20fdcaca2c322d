package upgrade

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/game-rental-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
	"github.com/magabrotheeeer/game-rental-service/internal/services/lifecycle"
)

// MockService реализует интерфейс upgrade.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Upgrade(ctx context.Context, userUID string, req models.DummyUpgrade) (*lifecycle.UpgradeResult, error) {
	args := m.Called(ctx, userUID, req)
	if res := args.Get(0); res != nil {
		return res.(*lifecycle.UpgradeResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestUpgradeHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		userUID        string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешное повышение до premium",
			userUID: "uid-1",
			body:    `{"to_role":"premium","plan":"monthly","trial":true}`,
			setupMock: func(m *MockService) {
				m.On("Upgrade", mock.Anything, "uid-1", mock.Anything).Return(&lifecycle.UpgradeResult{
					Outcome:        lifecycle.Outcome{OK: true},
					Role:           models.RolePremium,
					SubscriptionID: "sub-1",
					TrialApplied:   true,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"trial":true`,
		},
		{
			name:    "повторное повышение отклоняется",
			userUID: "uid-1",
			body:    `{"to_role":"premium"}`,
			setupMock: func(m *MockService) {
				m.On("Upgrade", mock.Anything, "uid-1", mock.Anything).Return(&lifecycle.UpgradeResult{
					Outcome: lifecycle.Outcome{OK: false, Reason: lifecycle.ReasonAlreadyPremium},
				}, nil)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"reason":"already-premium"`,
		},
		{
			name:    "пользователь не найден",
			userUID: "uid-missing",
			body:    `{"to_role":"premium"}`,
			setupMock: func(m *MockService) {
				m.On("Upgrade", mock.Anything, "uid-missing", mock.Anything).Return(&lifecycle.UpgradeResult{
					Outcome: lifecycle.Outcome{OK: false, Reason: lifecycle.ReasonUserNotFound},
				}, nil)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"reason":"user-not-found"`,
		},
		{
			name:           "некорректная целевая роль",
			userUID:        "uid-1",
			body:           `{"to_role":"admin"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field ToRole must be one of the allowed values`,
		},
		{
			name:           "некорректный JSON",
			userUID:        "uid-1",
			body:           `{invalid`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:    "ошибка сервиса",
			userUID: "uid-1",
			body:    `{"to_role":"premium"}`,
			setupMock: func(m *MockService) {
				m.On("Upgrade", mock.Anything, "uid-1", mock.Anything).Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `failed to change access level`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/premium/upgrade", strings.NewReader(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}

func TestUpgradeHandler_NoUserInContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handler := New(logger, new(MockService))

	req := httptest.NewRequest(http.MethodPost, "/premium/upgrade", strings.NewReader(`{"to_role":"premium"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
