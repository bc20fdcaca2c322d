// Package upgrade реализует HTTP-обработчик смены уровня доступа:
// повышение до premium (с пробным периодом или без) и понижение до free.
package upgrade

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

// Handler обрабатывает HTTP-запросы смены уровня доступа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики жизненного цикла премиума.
type Service interface {
	Upgrade(ctx context.Context, userUID string, req models.DummyUpgrade) (*lifecycle.UpgradeResult, error)
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
// @Summary Смена уровня доступа
// @Description Повышает пользователя до premium или понижает до free. Пробный период выдается не больше одного раза.
// @Tags Premium
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body models.DummyUpgrade true "Целевая роль и тарифный план"
// @Success 200 {object} response.OKResponse "Уровень доступа изменен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 409 {object} response.ErrorResponse "Отказ по предусловию"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /premium/upgrade [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.premium.upgrade"

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

	var req models.DummyUpgrade
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

	res, err := h.service.Upgrade(r.Context(), userUID, req)
	if err != nil {
		log.Error("upgrade failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to change access level"))
		return
	}
	if !res.OK {
		log.Info("upgrade rejected", slog.String("reason", res.Reason))
		w.WriteHeader(rejectionStatus(res.Reason))
		render.JSON(w, r, response.Rejected("access level change rejected", res.Reason))
		return
	}

	log.Info("access level changed",
		slog.String("user_uid", userUID),
		slog.String("role", string(res.Role)),
		slog.Bool("trial", res.TrialApplied))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"role":            res.Role,
		"status":          res.Status,
		"subscription_id": res.SubscriptionID,
		"trial":           res.TrialApplied,
	}))
}

func rejectionStatus(reason string) int {
	switch reason {
	case lifecycle.ReasonUserNotFound:
		return http.StatusNotFound
	case lifecycle.ReasonInvalidPlan:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusConflict
	}
}
