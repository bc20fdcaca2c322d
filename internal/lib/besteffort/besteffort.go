// Package besteffort оформляет необязательные побочные эффекты.
//
// Часть шагов бизнес-операций (запись аудита, инвалидация кеша, публикация
// уведомления, отражение флага на исторической записи) не должна ронять
// основную операцию. Обёртка делает это различие видимым в коде: ошибка
// логируется и отбрасывается.
package besteffort

import (
	"log/slog"

	"github.com/magabrotheeeer/game-rental-service/internal/lib/sl"
)

// Do выполняет fn и в случае ошибки пишет предупреждение в лог.
// Ошибка никогда не возвращается вызывающему.
func Do(log *slog.Logger, op string, fn func() error) {
	if err := fn(); err != nil {
		log.Warn("best-effort step failed", slog.String("op", op), sl.Err(err))
	}
}
