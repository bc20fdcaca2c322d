// Package autorenew реализует HTTP-обработчик переключения автопродления.
package autorenew

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/game-rental-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/game-rental-service/internal/http/response"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
	"github.com/magabrotheeeer/game-rental-service/internal/services/lifecycle"
)

// Handler обрабатывает HTTP-запросы переключения автопродления.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики автопродления.
type Service interface {
	SetAutoRenew(ctx context.Context, userUID string, enabled bool, reason string) (*lifecycle.AutoRenewResult, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Переключение автопродления
// @Description Включает или выключает автопродление премиума. Отключение во время пробного периода немедленно понижает до free.
// @Tags Premium
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body models.DummyAutoRenew true "Новое значение флага"
// @Success 200 {object} response.OKResponse "Флаг переключен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 409 {object} response.ErrorResponse "Пользователь не premium"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /premium/autorenew [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.premium.autorenew"

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

	var req models.DummyAutoRenew
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded")

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	res, err := h.service.SetAutoRenew(r.Context(), userUID, *req.Enabled, req.Reason)
	if err != nil {
		log.Error("failed to toggle auto-renew", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to toggle auto-renew"))
		return
	}
	if !res.OK {
		log.Info("auto-renew toggle rejected", slog.String("reason", res.Reason))
		status := http.StatusConflict
		if res.Reason == lifecycle.ReasonUserNotFound {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
		render.JSON(w, r, response.Rejected("auto-renew toggle rejected", res.Reason))
		return
	}

	log.Info("auto-renew toggled",
		slog.String("user_uid", userUID),
		slog.Bool("enabled", *req.Enabled),
		slog.Bool("downgraded", res.Downgraded))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"role":       res.Role,
		"downgraded": res.Downgraded,
	}))
}
