// Package models содержит доменные структуры сервиса аренды игр:
// профиль пользователя, подписки премиум-доступа, уведомления,
// записи аудита и отложенные задания.
package models

import "time"

// Role роль пользователя в системе.
type Role string

const (
	// RoleFree обычный пользователь без премиум-доступа.
	RoleFree Role = "free"
	// RolePremium пользователь с активным премиум-доступом.
	RolePremium Role = "premium"
	// RoleAdmin администратор, не участвует в жизненном цикле подписок.
	RoleAdmin Role = "admin"
)

// Profile представляет зарегистрированного пользователя сервиса.
// Премиум-поля денормализованы для быстрого чтения и поддерживаются
// в согласованном состоянии с таблицей подписок.
type Profile struct {
	UID              string     // Уникальный идентификатор пользователя
	Email            string     // Электронная почта
	Username         string     // Имя пользователя (уникальное)
	PasswordHash     string     // Хэш пароля пользователя
	Role             Role       // Текущая роль: free, premium или admin
	PremiumPlan      *Plan      // Кэшированный тарифный план (nil для free)
	PremiumExpiresAt *time.Time // Кэшированная дата окончания премиума (nil для lifetime и free)
	PremiumAutoRenew bool       // Флаг автопродления
	TrialEndsAt      *time.Time // Дата окончания пробного периода (только пока триал не сконвертирован)
	FreeTrialUsed    bool       // Признак уже использованного пробного периода, никогда не сбрасывается
	CreatedAt        time.Time
}

// PremiumStatus денормализованный снимок премиум-полей профиля,
// отдаваемый наружу и кэшируемый в redis.
type PremiumStatus struct {
	Role          Role       `json:"role"`
	Plan          *Plan      `json:"plan,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	AutoRenew     bool       `json:"auto_renew"`
	TrialEndsAt   *time.Time `json:"trial_ends_at,omitempty"`
	FreeTrialUsed bool       `json:"free_trial_used"`
}
