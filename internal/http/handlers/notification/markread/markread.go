// Package markread реализует HTTP-обработчик пометки уведомления прочитанным.
package markread

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/game-rental-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/game-rental-service/internal/http/response"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
)

// Handler обрабатывает HTTP-запросы пометки уведомлений.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс пометки уведомлений.
type Service interface {
	MarkRead(ctx context.Context, userUID string, id int64) (bool, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Пометить уведомление прочитанным
// @Description Помечает уведомление пользователя прочитанным по его ID.
// @Tags Notifications
// @Security BearerAuth
// @Produce  json
// @Param id path int true "ID уведомления"
// @Success 200 {object} response.OKResponse "Уведомление помечено"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Уведомление не найдено"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /notifications/{id}/read [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.markread"

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

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("invalid notification id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid notification id"))
		return
	}

	marked, err := h.service.MarkRead(r.Context(), userUID, id)
	if err != nil {
		log.Error("failed to mark notification read", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to mark notification read"))
		return
	}
	if !marked {
		log.Info("notification not found", slog.Int64("id", id))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("notification not found"))
		return
	}

	log.Info("notification marked read",
		slog.String("user_uid", userUID),
		slog.Int64("id", id))
	render.JSON(w, r, response.OK())
}
