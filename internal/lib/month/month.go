// Package month содержит календарную арифметику для расчёта сроков подписок.
package month

import (
	"math"
	"time"
)

// Add прибавляет к дате n календарных месяцев с прижатием числа к концу
// месяца. В отличие от time.AddDate, 31 января + 1 месяц дает 28 (29)
// февраля, а не переполняется в март.
func Add(t time.Time, n int) time.Time {
	year, mon, day := t.Date()
	hour, minute, sec := t.Clock()

	// Сначала сдвигаем первое число месяца, затем возвращаем день с прижатием.
	first := time.Date(year, mon, 1, hour, minute, sec, t.Nanosecond(), t.Location())
	target := first.AddDate(0, n, 0)

	if last := daysIn(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

// DaysUntil возвращает число дней от now до t, округлённое до ближайшего
// целого. Округление к ближайшему (а не вниз) позволяет напоминаниям
// срабатывать при дрожании расписания до ~12 часов в обе стороны.
func DaysUntil(now, t time.Time) int {
	return int(math.Round(t.Sub(now).Hours() / 24))
}

func daysIn(year int, mon time.Month) int {
	// Нулевой день следующего месяца — последний день текущего.
	return time.Date(year, mon+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
