package report

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Relations the report layer reads. All of them are owned by the data
// warehouse loaders; this service never writes to them.
const (
	tablePlanVsFact       = "skpdi_plan_vs_fact_monthly"
	tableFactAgg          = "skpdi_fact_agg"
	tablePlanAgg          = "skpdi_plan_agg"
	tableContractTotal    = "podolsk_mad_2025_contract_amount"
	tableContractExecuted = "skpdi_fact_monthly_cat_mv"
)

// UntitledWork labels fact rows that carry neither a work name nor a unit.
const UntitledWork = "Без названия"

// Amount is a monetary value that may be absent. Absent covers SQL NULL as
// well as values that do not coerce to a finite float: those contribute
// nothing to an aggregate instead of zeroing it out.
type Amount struct {
	Float64 float64
	Valid   bool
}

// Scan implements sql.Scanner. It never fails: unusable input simply leaves
// the amount invalid, matching the per-value skip policy of the aggregator.
func (a *Amount) Scan(src any) error {
	a.Float64, a.Valid = ToFloat(src)
	return nil
}

// Ptr returns the value as a nullable pointer for response payloads.
func (a Amount) Ptr() *float64 {
	if !a.Valid {
		return nil
	}
	v := a.Float64
	return &v
}

// Or returns the value, or fallback when absent.
func (a Amount) Or(fallback float64) float64 {
	if !a.Valid {
		return fallback
	}
	return a.Float64
}

func (a *Amount) add(v float64) {
	a.Float64 += v
	a.Valid = true
}

// ToFloat coerces database values to a finite float64. NaN, infinities,
// NULLs and unparseable strings report ok=false; callers must skip those,
// never substitute zero.
func ToFloat(v any) (f float64, ok bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case []byte:
		// lib/pq hands NUMERIC columns over as text
		return parseFloat(string(x))
	case string:
		return parseFloat(x)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// PlanFactRow is one raw record of the plan-vs-fact view.
type PlanFactRow struct {
	MonthStart time.Time
	SmetaCode  string
	WorkName   string
	Unit       string
	Planned    Amount
	Fact       Amount
}

// Description resolves the display name of the work line: work name,
// falling back to the unit, falling back to UntitledWork.
func (r PlanFactRow) Description() string {
	if name := strings.TrimSpace(r.WorkName); name != "" {
		return name
	}
	if unit := strings.TrimSpace(r.Unit); unit != "" {
		return unit
	}
	return UntitledWork
}

// RowSource is a finite, single-pass, non-restartable sequence of fact
// rows. Implementations stream from a live cursor; consumers must drain it
// in one pass and then check Err.
type RowSource interface {
	// Next returns the next row, or ok=false once the sequence is done.
	Next() (row PlanFactRow, ok bool)
	// Err reports the error that terminated the sequence early, if any.
	Err() error
}

// sliceSource adapts an in-memory row set to a RowSource.
type sliceSource struct {
	rows []PlanFactRow
	next int
}

func newSliceSource(rows []PlanFactRow) *sliceSource {
	return &sliceSource{rows: rows}
}

func (s *sliceSource) Next() (PlanFactRow, bool) {
	if s.next >= len(s.rows) {
		return PlanFactRow{}, false
	}
	row := s.rows[s.next]
	s.next++
	return row, true
}

func (s *sliceSource) Err() error { return nil }

// MonthStart truncates a date to the first day of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// NextMonthStart returns the first day of the following month.
func NextMonthStart(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0)
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
