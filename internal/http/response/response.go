// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OKResponse описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("OK").
// Поле Data — данные ответа (опционально, при успехе).
type OKResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("Error").
// Поле Error  — сообщение ошибки ответа.
// Поле Reason — машинно-читаемая причина отказа (опционально).
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
	Reason string `json:"reason,omitempty" example:"already-premium"`
}

// OK возвращает успешный Response без данных.
func OK() OKResponse {
	return OKResponse{
		Status: StatusOK,
	}
}

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) OKResponse {
	return OKResponse{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// Rejected возвращает Response с ошибкой и машинно-читаемой причиной отказа.
func Rejected(msg, reason string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
		Reason: reason,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "alphanum":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only numbers and letters", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is too short", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of the allowed values", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return ErrorResponse{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}
