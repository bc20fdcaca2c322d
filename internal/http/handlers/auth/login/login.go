// Package login реализует HTTP-обработчик для аутентификации пользователей.
package login

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/game-rental-service/internal/http/response"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
	"github.com/magabrotheeeer/game-rental-service/internal/services/auth"
)

// Handler обрабатывает HTTP-запросы входа пользователей.
type Handler struct {
	log         *slog.Logger
	authService Service
	validate    *validator.Validate
}

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	Login(ctx context.Context, username, password string) (string, models.Role, error)
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
// @Summary Авторизация пользователя
// @Description Аутентифицирует пользователя по имени и паролю, возвращает JWT.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.DummyLogin true "Учетные данные пользователя"
// @Success 200 {object} response.OKResponse "Успешная авторизация"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyLogin
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

	token, role, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			log.Error("invalid credentials", slog.String("username", req.Username))
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid credentials"))
			return
		}
		log.Error("login failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to login"))
		return
	}

	log.Info("login success", slog.String("username", req.Username))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token":    token,
		"role":     role,
		"username": req.Username,
	}))
}
