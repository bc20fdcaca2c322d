package autorenew

import (
	"context"
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

// MockService реализует интерфейс autorenew.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) SetAutoRenew(ctx context.Context, userUID string, enabled bool, reason string) (*lifecycle.AutoRenewResult, error) {
	args := m.Called(ctx, userUID, enabled, reason)
	if res := args.Get(0); res != nil {
		return res.(*lifecycle.AutoRenewResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestAutoRenewHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "отключение автопродления на платном премиуме",
			body: `{"enabled":false,"reason":"too expensive"}`,
			setupMock: func(m *MockService) {
				m.On("SetAutoRenew", mock.Anything, "uid-1", false, "too expensive").Return(&lifecycle.AutoRenewResult{
					Outcome: lifecycle.Outcome{OK: true},
					Role:    models.RolePremium,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"downgraded":false`,
		},
		{
			name: "отключение во время пробного периода понижает до free",
			body: `{"enabled":false}`,
			setupMock: func(m *MockService) {
				m.On("SetAutoRenew", mock.Anything, "uid-1", false, "").Return(&lifecycle.AutoRenewResult{
					Outcome:    lifecycle.Outcome{OK: true},
					Role:       models.RoleFree,
					Downgraded: true,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"downgraded":true`,
		},
		{
			name: "пользователь не premium",
			body: `{"enabled":true}`,
			setupMock: func(m *MockService) {
				m.On("SetAutoRenew", mock.Anything, "uid-1", true, "").Return(&lifecycle.AutoRenewResult{
					Outcome: lifecycle.Outcome{OK: false, Reason: lifecycle.ReasonNotPremium},
				}, nil)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"reason":"not-premium"`,
		},
		{
			name:           "флаг не передан",
			body:           `{"reason":"oops"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Enabled is a required field`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/premium/autorenew", strings.NewReader(tt.body))
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
