// Package status реализует HTTP-обработчик чтения премиум-статуса.
package status

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/game-rental-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/game-rental-service/internal/http/response"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

// Handler обрабатывает HTTP-запросы чтения премиум-статуса.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения премиум-статуса.
type Service interface {
	PremiumStatus(ctx context.Context, userUID string) (*models.PremiumStatus, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Премиум-статус пользователя
// @Description Возвращает снимок премиум-полей профиля: роль, план, дату окончания, автопродление.
// @Tags Premium
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.OKResponse "Премиум-статус"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /premium/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.premium.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	status, err := h.service.PremiumStatus(r.Context(), userUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Error("user not found", slog.String("user_uid", userUID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to read premium status", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to read premium status"))
		return
	}

	render.JSON(w, r, response.OKWithData(status))
}
