package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"skpdi/internal/pdf"
	"skpdi/internal/report"
)

const dateLayout = "2006-01-02"

type errorResponse struct {
	Error string `json:"error"`
}

type dailyRevenueDTO struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type summaryDTO struct {
	PlannedAmount         float64           `json:"planned_amount"`
	FactAmount            float64           `json:"fact_amount"`
	DeltaAmount           float64           `json:"delta_amount"`
	CompletionPct         *float64          `json:"completion_pct"`
	AverageDailyRevenue   *float64          `json:"average_daily_revenue"`
	ContractAmount        *float64          `json:"contract_amount"`
	ContractExecuted      *float64          `json:"contract_executed"`
	ContractCompletionPct *float64          `json:"contract_completion_pct"`
	DailyRevenue          []dailyRevenueDTO `json:"daily_revenue"`
}

type categoryDTO struct {
	Key     string  `json:"key"`
	Title   string  `json:"title"`
	Planned float64 `json:"planned"`
	Fact    float64 `json:"fact"`
	Delta   float64 `json:"delta"`
}

type itemDTO struct {
	Smeta         string   `json:"smeta"`
	WorkName      string   `json:"work_name"`
	PlannedAmount *float64 `json:"planned_amount"`
	FactAmount    *float64 `json:"fact_amount"`
	DeltaAmount   float64  `json:"delta_amount"`
}

type dashboardResponse struct {
	Month       string        `json:"month"`
	LastUpdated *time.Time    `json:"last_updated"`
	Summary     summaryDTO    `json:"summary"`
	Categories  []categoryDTO `json:"categories"`
	Items       []itemDTO     `json:"items"`
	HasData     bool          `json:"has_data"`
}

type dailyReportItemDTO struct {
	Smeta       string   `json:"smeta,omitempty"`
	WorkType    string   `json:"work_type,omitempty"`
	Description string   `json:"description"`
	Unit        string   `json:"unit,omitempty"`
	TotalVolume *float64 `json:"total_volume"`
	TotalAmount *float64 `json:"total_amount"`
}

type dailyReportResponse struct {
	Date        string               `json:"date"`
	LastUpdated *time.Time           `json:"last_updated"`
	Items       []dailyReportItemDTO `json:"items"`
	HasData     bool                 `json:"has_data"`
}

type workVolumeDTO struct {
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Unit        string  `json:"unit"`
	TotalAmount float64 `json:"total_amount"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	month, err := parseDateParam(r, "month")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	rep, err := s.reports.FetchMonth(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to fetch month report", "month", month, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load dashboard data"})
		return
	}

	s.recordVisit(r, "/dashboard")
	writeJSON(w, http.StatusOK, toDashboardResponse(rep))
}

func (s *Server) handleDashboardPDF(w http.ResponseWriter, r *http.Request) {
	month, err := parseDateParam(r, "month")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	rep, err := s.reports.FetchMonth(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to fetch month report for pdf", "month", month, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load dashboard data"})
		return
	}

	out, err := pdf.Build(rep)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to render pdf", "month", month, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to render pdf"})
		return
	}

	s.recordVisit(r, "/dashboard/pdf")
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.FileName(rep.Month)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func (s *Server) handleAvailableMonths(w http.ResponseWriter, r *http.Request) {
	limit := s.monthsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 24 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be between 1 and 24"})
			return
		}
		limit = n
	}

	months, err := s.reports.FetchAvailableMonths(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to fetch available months", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load months"})
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"months": formatDates(months)})
}

func (s *Server) handleAvailableDays(w http.ResponseWriter, r *http.Request) {
	days, err := s.reports.FetchAvailableDays(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to fetch available days", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load days"})
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"days": formatDates(days)})
}

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	// Missing date means today's report.
	var day time.Time
	if r.URL.Query().Get("date") != "" {
		var err error
		if day, err = parseDateParam(r, "date"); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	rep, err := s.reports.FetchDailyReport(r.Context(), day)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to fetch daily report", "date", day, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load daily report"})
		return
	}

	items := make([]dailyReportItemDTO, 0, len(rep.Items))
	for _, item := range rep.Items {
		items = append(items, dailyReportItemDTO{
			Smeta:       item.Smeta,
			WorkType:    item.WorkType,
			Description: item.Description,
			Unit:        item.Unit,
			TotalVolume: item.TotalVolume,
			TotalAmount: item.TotalAmount,
		})
	}
	writeJSON(w, http.StatusOK, dailyReportResponse{
		Date:        rep.Date.Format(dateLayout),
		LastUpdated: rep.LastUpdated,
		Items:       items,
		HasData:     rep.HasData,
	})
}

func (s *Server) handleWorkBreakdown(w http.ResponseWriter, r *http.Request) {
	month, err := parseDateParam(r, "month")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	work := r.URL.Query().Get("work")
	if work == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "work parameter is required"})
		return
	}

	rows, err := s.reports.FetchWorkDailyBreakdown(r.Context(), month, work)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to fetch work breakdown", "month", month, "work", work, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load work breakdown"})
		return
	}

	out := make([]workVolumeDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, workVolumeDTO{
			Date:        row.Date.Format(dateLayout),
			Amount:      row.Amount,
			Unit:        row.Unit,
			TotalAmount: row.TotalAmount,
		})
	}
	writeJSON(w, http.StatusOK, map[string][]workVolumeDTO{"days": out})
}

// recordVisit runs on the request path but can never fail the response:
// insert errors are logged and swallowed.
func (s *Server) recordVisit(r *http.Request, endpoint string) {
	if s.visitLog == nil {
		return
	}
	s.visitLog.Record(r.Context(), r, endpoint)
}

func toDashboardResponse(rep report.MonthReport) dashboardResponse {
	daily := make([]dailyRevenueDTO, 0, len(rep.Summary.DailyRevenue))
	for _, d := range rep.Summary.DailyRevenue {
		daily = append(daily, dailyRevenueDTO{Date: d.Date.Format(dateLayout), Amount: d.Amount})
	}

	categories := make([]categoryDTO, 0, len(rep.Categories))
	for _, c := range rep.Categories {
		categories = append(categories, categoryDTO{
			Key:     c.Key,
			Title:   c.Title,
			Planned: c.Planned,
			Fact:    c.Fact,
			Delta:   c.Delta,
		})
	}

	items := make([]itemDTO, 0, len(rep.Items))
	for _, item := range rep.Items {
		items = append(items, itemDTO{
			Smeta:         item.Smeta,
			WorkName:      item.WorkName,
			PlannedAmount: item.Planned.Ptr(),
			FactAmount:    item.Fact.Ptr(),
			DeltaAmount:   item.Delta,
		})
	}

	return dashboardResponse{
		Month:       rep.Month.Format(dateLayout),
		LastUpdated: rep.LastUpdated,
		Summary: summaryDTO{
			PlannedAmount:         rep.Summary.Planned,
			FactAmount:            rep.Summary.Fact,
			DeltaAmount:           rep.Summary.Delta,
			CompletionPct:         rep.Summary.Completion,
			AverageDailyRevenue:   rep.Summary.AverageDaily,
			ContractAmount:        rep.Summary.ContractTotal,
			ContractExecuted:      rep.Summary.ContractExecuted,
			ContractCompletionPct: rep.Summary.ContractCompletion,
			DailyRevenue:          daily,
		},
		Categories: categories,
		Items:      items,
		HasData:    rep.HasData,
	}
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s parameter is required (YYYY-MM-DD)", name)
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: expected YYYY-MM-DD", name, raw)
	}
	return t, nil
}

func formatDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(dateLayout))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
