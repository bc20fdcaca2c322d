package month

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		months   int
		expected time.Time
	}{
		{
			name:     "обычный месяц",
			start:    date(2025, time.March, 15),
			months:   1,
			expected: date(2025, time.April, 15),
		},
		{
			name:     "31 января прижимается к 28 февраля",
			start:    date(2025, time.January, 31),
			months:   1,
			expected: date(2025, time.February, 28),
		},
		{
			name:     "високосный февраль",
			start:    date(2024, time.January, 31),
			months:   1,
			expected: date(2024, time.February, 29),
		},
		{
			name:     "31 мая прижимается к 30 июня",
			start:    date(2025, time.May, 31),
			months:   1,
			expected: date(2025, time.June, 30),
		},
		{
			name:     "квартал с переходом через конец года",
			start:    date(2025, time.November, 30),
			months:   3,
			expected: date(2026, time.February, 28),
		},
		{
			name:     "год целиком",
			start:    date(2025, time.June, 1),
			months:   12,
			expected: date(2026, time.June, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Add(tt.start, tt.months))
		})
	}
}

func TestAddKeepsClock(t *testing.T) {
	start := time.Date(2025, time.January, 31, 23, 45, 7, 0, time.UTC)
	got := Add(start, 1)
	assert.Equal(t, 23, got.Hour())
	assert.Equal(t, 45, got.Minute())
	assert.Equal(t, 7, got.Second())
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		target   time.Time
		expected int
	}{
		{"ровно трое суток", now.Add(72 * time.Hour), 3},
		{"2 дня 20 часов округляется вверх", now.Add(68 * time.Hour), 3},
		{"3 дня 4 часа округляется вниз", now.Add(76 * time.Hour), 3},
		{"меньше половины суток", now.Add(11 * time.Hour), 0},
		{"прошедшая дата отрицательна", now.Add(-48 * time.Hour), -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysUntil(now, tt.target))
		})
	}
}
