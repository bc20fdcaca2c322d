package models

// DummyRegister используется для приёма данных регистрации из JSON-запроса.
type DummyRegister struct {
	Email    string `json:"email" validate:"required,email"`        // Электронная почта
	Username string `json:"username" validate:"required,alphanum"`  // Имя пользователя
	Password string `json:"password" validate:"required,min=8"`     // Пароль (не короче 8 символов)
}

// DummyLogin используется для приёма данных входа из JSON-запроса.
type DummyLogin struct {
	Username string `json:"username" validate:"required,alphanum"` // Имя пользователя
	Password string `json:"password" validate:"required"`          // Пароль
}

// DummyUpgrade используется для приёма запроса на смену уровня доступа.
// Роль admin через этот запрос получить нельзя.
type DummyUpgrade struct {
	ToRole    string `json:"to_role" validate:"required,oneof=free premium"`                       // Целевая роль
	Plan      string `json:"plan,omitempty" validate:"omitempty,oneof=monthly quarterly annual lifetime"` // Тарифный план, по умолчанию monthly
	Trial     bool   `json:"trial,omitempty"`                                                      // Запрошен ли пробный период
	PaymentID string `json:"payment_id,omitempty"`                                                 // Ссылка на успешный платеж
}

// DummyAutoRenew используется для приёма переключения автопродления.
type DummyAutoRenew struct {
	Enabled *bool  `json:"enabled" validate:"required"` // Новое значение флага
	Reason  string `json:"reason,omitempty"`            // Причина, попадает в аудит
}
