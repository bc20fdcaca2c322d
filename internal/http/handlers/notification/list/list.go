// Package list реализует HTTP-обработчик списка уведомлений пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/game-rental-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/game-rental-service/internal/http/response"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

const defaultLimit = 20

// Handler обрабатывает HTTP-запросы списка уведомлений.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения уведомлений.
type Service interface {
	List(ctx context.Context, userUID string, limit, offset int) ([]*models.Notification, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список уведомлений пользователя
// @Description Возвращает уведомления пользователя, новые первыми.
// @Tags Notifications
// @Security BearerAuth
// @Produce  json
// @Param limit query int false "Размер страницы, по умолчанию 20"
// @Param offset query int false "Смещение, по умолчанию 0"
// @Success 200 {object} response.OKResponse "Список уведомлений"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /notifications [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.list"

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

	limit := queryInt(r, "limit", defaultLimit)
	offset := queryInt(r, "offset", 0)

	items, err := h.service.List(r.Context(), userUID, limit, offset)
	if err != nil {
		log.Error("failed to list notifications", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list notifications"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"notifications": items,
		"count":         len(items),
	}))
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
