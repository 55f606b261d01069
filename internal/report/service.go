package report

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"skpdi/internal/database"
	"skpdi/internal/factquery"
)

var itemsSQL = fmt.Sprintf(`
	SELECT
		pvf.month_start,
		pvf.smeta_code,
		pvf.description,
		pvf.unit,
		pvf.planned_amount,
		pvf.fact_amount_done
	FROM %s AS pvf
	WHERE pvf.month_start = $1
	ORDER BY ABS(COALESCE(pvf.delta_amount_done, 0)) DESC, pvf.description;
`, tablePlanVsFact)

var availableMonthsSQL = fmt.Sprintf(`
	SELECT DISTINCT month_start
	FROM %s
	WHERE planned_amount IS NOT NULL OR fact_amount_done IS NOT NULL
	ORDER BY month_start DESC
	LIMIT $1;
`, tablePlanVsFact)

var lastUpdatedSQL = fmt.Sprintf(`
	SELECT COALESCE(MAX(loaded_at), 'epoch'::timestamptz) AS last_updated
	FROM (
		SELECT loaded_at FROM %s
		UNION ALL
		SELECT loaded_at FROM %s
	) AS loads;
`, tableFactAgg, tablePlanAgg)

var contractTotalSQL = fmt.Sprintf(`
	SELECT COALESCE(SUM(contract_amount), 0) AS contract_total
	FROM %s;
`, tableContractTotal)

var contractExecutedSQL = fmt.Sprintf(`
	SELECT COALESCE(SUM(category_amount), 0) AS executed_total
	FROM %s;
`, tableContractExecuted)

// MonthReport is everything the dashboard needs for one month.
type MonthReport struct {
	Month       time.Time
	LastUpdated *time.Time
	Summary     Summary
	Categories  []CategoryTotals
	Items       []Item
	HasData     bool
}

// DailyReportItem is one grouped work line of a single report day.
type DailyReportItem struct {
	Smeta       string
	WorkType    string
	Description string
	Unit        string
	TotalVolume *float64
	TotalAmount *float64
}

// DailyReport is the per-day work breakdown.
type DailyReport struct {
	Date        time.Time
	LastUpdated *time.Time
	Items       []DailyReportItem
	HasData     bool
}

// DailyWorkVolume is one day of a single work line's drill-down.
type DailyWorkVolume struct {
	Date        time.Time
	Amount      float64
	Unit        string
	TotalAmount float64
}

// Service runs the read operations of the reporting core. Each operation
// acquires exactly one pooled connection for its duration and is wrapped in
// the transient-error retry policy.
type Service struct {
	db    *database.Provider
	retry database.RetryPolicy
	now   func() time.Time
}

func NewService(db *database.Provider, retry database.RetryPolicy) *Service {
	return &Service{db: db, retry: retry, now: time.Now}
}

// FetchMonth reads the plan-vs-fact view for one month and assembles the
// aggregated items, category cards and summary metrics.
func (s *Service) FetchMonth(ctx context.Context, monthStart time.Time) (MonthReport, error) {
	return database.Retry(ctx, s.retry, "fetch_month", func() (MonthReport, error) {
		return s.fetchMonth(ctx, monthStart)
	})
}

func (s *Service) fetchMonth(ctx context.Context, monthStart time.Time) (MonthReport, error) {
	monthStart = MonthStart(monthStart)

	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return MonthReport{}, err
	}
	defer conn.Close()

	rows, err := s.queryPlanFactRows(ctx, conn, monthStart)
	if err != nil {
		return MonthReport{}, fmt.Errorf("read plan-vs-fact rows: %w", err)
	}

	items, err := AggregateItems(newSliceSource(rows))
	if err != nil {
		return MonthReport{}, fmt.Errorf("aggregate items: %w", err)
	}

	// Secondary aggregates degrade to absent instead of failing the month.
	daily := s.fetchDailyTotals(ctx, conn, monthStart)
	contract := s.fetchContractProgress(ctx, conn)
	lastUpdated := s.fetchLastUpdated(ctx, conn)

	return MonthReport{
		Month:       monthStart,
		LastUpdated: lastUpdated,
		Summary:     BuildSummary(monthStart, rows, daily, contract, s.now()),
		Categories:  BuildCategories(rows),
		Items:       items,
		HasData:     len(items) > 0,
	}, nil
}

func (s *Service) queryPlanFactRows(ctx context.Context, conn *sql.Conn, monthStart time.Time) ([]PlanFactRow, error) {
	dbRows, err := conn.QueryContext(ctx, itemsSQL, monthStart)
	if err != nil {
		return nil, err
	}
	defer dbRows.Close()

	var rows []PlanFactRow
	for dbRows.Next() {
		var (
			row      PlanFactRow
			month    sql.NullTime
			smeta    sql.NullString
			workName sql.NullString
			unit     sql.NullString
		)
		if err := dbRows.Scan(&month, &smeta, &workName, &unit, &row.Planned, &row.Fact); err != nil {
			return nil, err
		}
		row.MonthStart = month.Time
		row.SmetaCode = smeta.String
		row.WorkName = workName.String
		row.Unit = unit.String
		rows = append(rows, row)
	}
	return rows, dbRows.Err()
}

// fetchDailyTotals loads per-day reviewed fact totals for the month.
// Failures are logged and degrade to an empty list.
func (s *Service) fetchDailyTotals(ctx context.Context, conn *sql.Conn, monthStart time.Time) []DailyRevenue {
	query, args, err := factquery.New().
		Select(
			"date_done::date AS work_date",
			"SUM(total_amount) AS fact_total",
		).
		MonthStart(monthStart).
		Status("").
		GroupBy("work_date").
		Having("SUM(total_amount) IS NOT NULL").
		OrderBy("work_date").
		Build()
	if err != nil {
		slog.WarnContext(ctx, "failed to build daily totals query", "month", monthStart, "error", err)
		return nil
	}

	dbRows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		slog.WarnContext(ctx, "failed to load daily totals, using empty list", "month", monthStart, "error", err)
		return nil
	}
	defer dbRows.Close()

	var daily []DailyRevenue
	for dbRows.Next() {
		var (
			day    sql.NullTime
			amount Amount
		)
		if err := dbRows.Scan(&day, &amount); err != nil {
			slog.WarnContext(ctx, "failed to scan daily total row", "month", monthStart, "error", err)
			return nil
		}
		if !day.Valid || !amount.Valid {
			continue
		}
		daily = append(daily, DailyRevenue{Date: day.Time, Amount: amount.Float64})
	}
	if err := dbRows.Err(); err != nil {
		slog.WarnContext(ctx, "failed to read daily totals, using empty list", "month", monthStart, "error", err)
		return nil
	}
	return daily
}

// fetchContractProgress sums the contracted and executed totals. Either
// query failing makes the whole metric absent; the month report survives.
func (s *Service) fetchContractProgress(ctx context.Context, conn *sql.Conn) *ContractProgress {
	var progress ContractProgress

	var total Amount
	if err := conn.QueryRowContext(ctx, contractTotalSQL).Scan(&total); err != nil {
		slog.WarnContext(ctx, "failed to load contract total", "error", err)
		return nil
	}
	progress.Total = total.Or(0)

	var executed Amount
	if err := conn.QueryRowContext(ctx, contractExecutedSQL).Scan(&executed); err != nil {
		slog.WarnContext(ctx, "failed to load executed contract amount", "error", err)
		return nil
	}
	progress.Executed = executed.Or(0)

	return &progress
}

// fetchLastUpdated reads the newest loaded_at over both load tables.
func (s *Service) fetchLastUpdated(ctx context.Context, conn *sql.Conn) *time.Time {
	var ts sql.NullTime
	if err := conn.QueryRowContext(ctx, lastUpdatedSQL).Scan(&ts); err != nil {
		slog.WarnContext(ctx, "failed to read last-updated timestamp", "error", err)
		return nil
	}
	if !ts.Valid || ts.Time.Unix() <= 0 {
		return nil
	}
	t := ts.Time
	return &t
}

// FetchAvailableMonths lists month starts that have plan or fact data,
// newest first.
func (s *Service) FetchAvailableMonths(ctx context.Context, limit int) ([]time.Time, error) {
	if limit <= 0 {
		limit = 12
	}
	return database.Retry(ctx, s.retry, "fetch_available_months", func() ([]time.Time, error) {
		conn, err := s.db.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer conn.Close()
		return s.fetchDates(ctx, conn, availableMonthsSQL, limit)
	})
}

// FetchAvailableDays lists the current month's report days, newest first.
func (s *Service) FetchAvailableDays(ctx context.Context) ([]time.Time, error) {
	query, args, err := factquery.New().
		Distinct().
		Select("date_done::date AS work_date").
		CurrentMonth().
		Status("").
		OrderBy("work_date DESC").
		Build()
	if err != nil {
		return nil, fmt.Errorf("build available days query: %w", err)
	}

	return database.Retry(ctx, s.retry, "fetch_available_days", func() ([]time.Time, error) {
		conn, err := s.db.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer conn.Close()
		return s.fetchDates(ctx, conn, query, args...)
	})
}

func (s *Service) fetchDates(ctx context.Context, conn *sql.Conn, query string, args ...any) ([]time.Time, error) {
	dbRows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer dbRows.Close()

	var dates []time.Time
	for dbRows.Next() {
		var d sql.NullTime
		if err := dbRows.Scan(&d); err != nil {
			return nil, err
		}
		if d.Valid {
			dates = append(dates, d.Time)
		}
	}
	return dates, dbRows.Err()
}

// FetchDailyReport returns the reviewed work lines of one day, grouped by
// smeta, section, description and unit.
func (s *Service) FetchDailyReport(ctx context.Context, day time.Time) (DailyReport, error) {
	if day.IsZero() {
		day = s.now()
	}

	query, args, err := factquery.New().
		Select(
			"COALESCE(smeta_code, '') AS smeta_code",
			"COALESCE(smeta_section, '') AS smeta_section",
			"COALESCE(description, '') AS description",
			"unit",
			"SUM(total_volume) AS total_volume",
			"SUM(total_amount) AS total_amount",
		).
		DateEquals(day).
		Status("").
		GroupBy("smeta_code", "smeta_section", "description", "unit").
		OrderBy("total_amount DESC NULLS LAST", "description").
		Build()
	if err != nil {
		return DailyReport{}, fmt.Errorf("build daily report query: %w", err)
	}

	return database.Retry(ctx, s.retry, "fetch_daily_report", func() (DailyReport, error) {
		conn, err := s.db.Acquire(ctx)
		if err != nil {
			return DailyReport{}, err
		}
		defer conn.Close()

		dbRows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return DailyReport{}, fmt.Errorf("read daily report: %w", err)
		}
		defer dbRows.Close()

		var items []DailyReportItem
		for dbRows.Next() {
			var (
				smeta, section, desc string
				unit                 sql.NullString
				volume, amount       Amount
			)
			if err := dbRows.Scan(&smeta, &section, &desc, &unit, &volume, &amount); err != nil {
				return DailyReport{}, fmt.Errorf("scan daily report row: %w", err)
			}
			desc = strings.TrimSpace(desc)
			if desc == "" {
				desc = UntitledWork
			}
			items = append(items, DailyReportItem{
				Smeta:       strings.TrimSpace(smeta),
				WorkType:    strings.TrimSpace(section),
				Description: desc,
				Unit:        strings.TrimSpace(unit.String),
				TotalVolume: volume.Ptr(),
				TotalAmount: amount.Ptr(),
			})
		}
		if err := dbRows.Err(); err != nil {
			return DailyReport{}, fmt.Errorf("read daily report: %w", err)
		}

		return DailyReport{
			Date:        day,
			LastUpdated: s.fetchLastUpdated(ctx, conn),
			Items:       items,
			HasData:     len(items) > 0,
		}, nil
	})
}

// FetchWorkDailyBreakdown returns per-day volumes for one work line over a
// month. The work line is matched by case-insensitive substring on
// description; an empty identifier yields an empty result. Query failures
// degrade to an empty list with a warning.
func (s *Service) FetchWorkDailyBreakdown(ctx context.Context, monthStart time.Time, workIdentifier string) ([]DailyWorkVolume, error) {
	workIdentifier = strings.TrimSpace(workIdentifier)
	if workIdentifier == "" {
		return nil, nil
	}

	// Any date inside the month may arrive from the UI; normalize so the
	// range covers the whole period.
	monthStart = MonthStart(monthStart)
	nextMonth := NextMonthStart(monthStart)

	query, args, err := factquery.New().
		Select(
			"date_done::date AS work_date",
			"SUM(COALESCE(total_volume, 0)) AS total_volume",
			"MAX(COALESCE(unit::text, '')) AS unit",
			"SUM(COALESCE(total_amount, 0)) AS total_amount",
		).
		DateRange(monthStart, nextMonth).
		Status("").
		ILikeDescription("%" + workIdentifier + "%").
		GroupBy("work_date").
		OrderBy("work_date").
		Build()
	if err != nil {
		return nil, fmt.Errorf("build work breakdown query: %w", err)
	}

	return database.Retry(ctx, s.retry, "fetch_work_daily_breakdown", func() ([]DailyWorkVolume, error) {
		conn, err := s.db.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer conn.Close()

		dbRows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			slog.WarnContext(ctx, "failed to load work daily breakdown",
				"work", workIdentifier, "month", monthStart, "error", err)
			return []DailyWorkVolume{}, nil
		}
		defer dbRows.Close()

		var result []DailyWorkVolume
		for dbRows.Next() {
			var (
				day            sql.NullTime
				volume, amount Amount
				unit           sql.NullString
			)
			if err := dbRows.Scan(&day, &volume, &unit, &amount); err != nil {
				slog.WarnContext(ctx, "failed to scan work daily breakdown row",
					"work", workIdentifier, "month", monthStart, "error", err)
				return []DailyWorkVolume{}, nil
			}
			if !day.Valid || !volume.Valid {
				continue
			}
			result = append(result, DailyWorkVolume{
				Date:        day.Time,
				Amount:      volume.Float64,
				Unit:        strings.TrimSpace(unit.String),
				TotalAmount: amount.Or(0),
			})
		}
		if err := dbRows.Err(); err != nil {
			slog.WarnContext(ctx, "failed to read work daily breakdown",
				"work", workIdentifier, "month", monthStart, "error", err)
			return []DailyWorkVolume{}, nil
		}
		return result, nil
	})
}
