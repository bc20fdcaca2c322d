package models

import "time"

// Теги статусов для записей аудита смены роли.
const (
	UpgradeStatusUpgraded          = "upgraded"
	UpgradeStatusTrialGranted      = "trial-granted"
	UpgradeStatusTrialCharged      = "trial-charged"
	UpgradeStatusDowngraded        = "downgraded"
	UpgradeStatusAutoRenewOn       = "auto-renew-activated"
	UpgradeStatusAutoRenewCanceled = "auto-renew-canceled"
)

// UpgradeRecord запись аудита изменения роли или флага автопродления.
// Только добавляется, никогда не изменяется и не участвует в управляющей
// логике — используется исключительно для наблюдаемости.
type UpgradeRecord struct {
	ID        int64
	UserUID   string
	FromRole  Role
	ToRole    Role
	Status    string // Свободный тег: upgraded, trial-charged, auto-renew-canceled и т.п.
	Reason    string
	Meta      map[string]any // Произвольные дополнительные данные
	CreatedAt time.Time
}
