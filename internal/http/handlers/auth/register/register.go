// Package register реализует HTTP-обработчик для регистрации новых пользователей.
package register

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/game-rental-service/internal/http/response"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

// Handler обрабатывает HTTP-запросы регистрации пользователей.
type Handler struct {
	log         *slog.Logger
	authService Service
	validate    *validator.Validate
}

// Service определяет методы бизнес-логики для регистрации пользователей.
type Service interface {
	Register(ctx context.Context, email, username, password string) (string, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, authService Service) *Handler {
	return &Handler{
		log:         log,
		authService: authService,
		validate:    validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Регистрация нового пользователя
// @Description Создает нового пользователя по email, username и password. Новые аккаунты начинают с роли free.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.DummyRegister true "Данные нового пользователя"
// @Success 200 {object} response.OKResponse "Успешная регистрация"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации данных"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при регистрации"
// @Router /register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyRegister
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

	userUID, err := h.authService.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		log.Error("registration failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to register user"))
		return
	}

	log.Info("register success", slog.String("username", req.Username))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message":  "user created successfully",
		"user_uid": userUID,
		"username": req.Username,
		"email":    req.Email,
	}))
}
