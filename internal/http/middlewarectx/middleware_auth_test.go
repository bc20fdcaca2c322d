package middlewarectx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/game-rental-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/jwt"

	"io"
	"log/slog"
)

// Mock for Service
type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) ValidateToken(ctx context.Context, token string) (*jwt.CustomClaims, error) {
	args := m.Called(ctx, token)
	claims, _ := args.Get(0).(*jwt.CustomClaims)
	return claims, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware(t *testing.T) {
	authMock := new(AuthServiceMock)
	logger := newNoopLogger()

	handlerCalled := false

	// Test handler which checks context values
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		username := r.Context().Value(middlewarectx.User)
		role := r.Context().Value(middlewarectx.Role)
		userUID := r.Context().Value(middlewarectx.UserUID)
		assert.Equal(t, "testuser", username)
		assert.Equal(t, "free", role)
		assert.Equal(t, "uid-1", userUID)
		w.WriteHeader(http.StatusOK)
	})

	middleware := middlewarectx.JWTMiddleware(authMock, logger)(nextHandler)

	tests := []struct {
		name           string
		authHeader     string
		mockClaims     *jwt.CustomClaims
		mockErr        error
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "missing Authorization header",
			authHeader:     "",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "invalid Authorization header prefix",
			authHeader:     "Basic sometoken",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "token validation error",
			authHeader:     "Bearer token",
			mockClaims:     nil,
			mockErr:        errors.New("token is expired"),
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "valid token",
			authHeader:     "Bearer validtoken",
			mockClaims:     &jwt.CustomClaims{Username: "testuser", Role: "free", UserUID: "uid-1"},
			mockErr:        nil,
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled = false
			authMock.ExpectedCalls = nil // reset calls
			authMock.Calls = nil
			if tt.mockClaims != nil || tt.mockErr != nil {
				authMock.On("ValidateToken", mock.Anything, strings.TrimPrefix(tt.authHeader, "Bearer ")).
					Return(tt.mockClaims, tt.mockErr).Once()
			}

			req := httptest.NewRequest(http.MethodGet, "/somepath", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			rec := httptest.NewRecorder()

			middleware.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, handlerCalled)
			authMock.AssertExpectations(t)
		})
	}
}
