package models

import "fmt"

// Plan тарифный план премиум-подписки.
type Plan string

const (
	// PlanMonthly помесячный план, 1 календарный месяц.
	PlanMonthly Plan = "monthly"
	// PlanQuarterly квартальный план, 3 календарных месяца.
	PlanQuarterly Plan = "quarterly"
	// PlanAnnual годовой план, 12 календарных месяцев.
	PlanAnnual Plan = "annual"
	// PlanLifetime бессрочный план, не имеет даты окончания.
	PlanLifetime Plan = "lifetime"
)

// Months возвращает длительность плана в календарных месяцах.
// Для lifetime возвращает ok = false: у бессрочного плана нет периода.
func (p Plan) Months() (months int, ok bool) {
	switch p {
	case PlanMonthly:
		return 1, true
	case PlanQuarterly:
		return 3, true
	case PlanAnnual:
		return 12, true
	default:
		return 0, false
	}
}

// ParsePlan проверяет и приводит строку к известному тарифному плану.
func ParsePlan(s string) (Plan, error) {
	switch Plan(s) {
	case PlanMonthly, PlanQuarterly, PlanAnnual, PlanLifetime:
		return Plan(s), nil
	default:
		return "", fmt.Errorf("unknown plan: %q", s)
	}
}
