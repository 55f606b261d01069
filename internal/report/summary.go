package report

import (
	"time"

	"skpdi/internal/category"
)

// CategoryTotals is the per-category plan/fact card of the dashboard.
type CategoryTotals struct {
	Key     string
	Title   string
	Planned float64
	Fact    float64
	Delta   float64
}

// DailyRevenue is the reviewed fact total of one report day.
type DailyRevenue struct {
	Date   time.Time
	Amount float64
}

// ContractProgress pairs the contracted total with the executed amount.
type ContractProgress struct {
	Total    float64
	Executed float64
}

// Summary holds the month-level dashboard metrics. Pointer fields are
// absent when the metric is undefined for the month, never NaN or Inf.
type Summary struct {
	Planned            float64
	Fact               float64
	Delta              float64
	Completion         *float64
	AverageDaily       *float64
	ContractTotal      *float64
	ContractExecuted   *float64
	ContractCompletion *float64
	DailyRevenue       []DailyRevenue
}

type seasonalTotals struct {
	planSummer float64
	planWinter float64
	factSummer float64
	factWinter float64
	factOff    float64
}

func sumByCategory(rows []PlanFactRow) seasonalTotals {
	var t seasonalTotals
	for _, row := range rows {
		switch category.KindOf(row.SmetaCode) {
		case category.Summer:
			t.planSummer += row.Planned.Or(0)
			t.factSummer += row.Fact.Or(0)
		case category.Winter:
			t.planWinter += row.Planned.Or(0)
			t.factWinter += row.Fact.Or(0)
		case category.OffSchedule:
			t.factOff += row.Fact.Or(0)
		}
	}
	return t
}

// BuildCategories computes the summer/winter/off-schedule cards from the
// month's raw rows. The off-schedule plan is the fixed share of the seasonal
// plans, never a sum of off-schedule rows.
func BuildCategories(rows []PlanFactRow) []CategoryTotals {
	t := sumByCategory(rows)
	planOff := (t.planSummer + t.planWinter) * category.PlanShare

	return []CategoryTotals{
		{
			Key:     category.CodeSummer,
			Title:   "Лето",
			Planned: t.planSummer,
			Fact:    t.factSummer,
			Delta:   t.factSummer - t.planSummer,
		},
		{
			Key:     category.CodeWinter,
			Title:   "Зима",
			Planned: t.planWinter,
			Fact:    t.factWinter,
			Delta:   t.factWinter - t.planWinter,
		},
		{
			Key:     category.OffScheduleLabel,
			Title:   "Внерегламент",
			Planned: planOff,
			Fact:    t.factOff,
			Delta:   t.factOff - planOff,
		},
	}
}

// BuildSummary derives the month summary from the raw row set.
// daily and contract are optional enrichments: an empty slice or nil pointer
// degrades the respective metric to absent.
func BuildSummary(monthStart time.Time, rows []PlanFactRow, daily []DailyRevenue, contract *ContractProgress, today time.Time) Summary {
	t := sumByCategory(rows)
	planOff := (t.planSummer + t.planWinter) * category.PlanShare

	planned := t.planSummer + t.planWinter + planOff
	fact := t.factSummer + t.factWinter + t.factOff

	s := Summary{
		Planned:      planned,
		Fact:         fact,
		Delta:        fact - planned,
		DailyRevenue: daily,
	}
	if planned != 0 {
		pct := fact / planned
		s.Completion = &pct
	}

	factTotal := fact
	s.AverageDaily = AverageDaily(monthStart, daily, &factTotal, today)

	if contract != nil {
		total, executed := contract.Total, contract.Executed
		s.ContractTotal = &total
		s.ContractExecuted = &executed
		if total != 0 {
			pct := executed / total
			s.ContractCompletion = &pct
		}
	}
	return s
}

// AverageDaily computes the average daily revenue for the selected month.
//
// Past (and future) months use the explicit fact total when available,
// otherwise the sum of the daily rows, divided by the calendar days of the
// month; a zero total means no value. The current month averages only over
// report days strictly before today, so today's partial day never skews the
// figure; no prior days means no value.
func AverageDaily(monthStart time.Time, daily []DailyRevenue, factTotal *float64, today time.Time) *float64 {
	monthStart = MonthStart(monthStart)

	if !sameDay(monthStart, MonthStart(today)) {
		total := 0.0
		if factTotal != nil {
			total = *factTotal
		} else {
			for _, d := range daily {
				total += d.Amount
			}
		}
		if total == 0 {
			return nil
		}
		avg := total / float64(daysInMonth(monthStart))
		return &avg
	}

	var sum float64
	var n int
	for _, d := range daily {
		if sameDay(d.Date, today) {
			continue
		}
		sum += d.Amount
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}
