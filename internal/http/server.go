// Package http exposes the reporting core over a small JSON API.
// It is thin plumbing: all aggregation lives in internal/report.
package http

import (
	"net/http"

	"skpdi/internal/report"
	"skpdi/internal/visits"
)

type Server struct {
	http.Server
	reports     *report.Service
	visitLog    *visits.Logger
	monthsLimit int
}

// NewServer wires the API routes. visitLog may be nil to disable visit
// recording (tests do that).
func NewServer(addr string, reports *report.Service, visitLog *visits.Logger, allowedOrigins []string, monthsLimit int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: withCORS(allowedOrigins, withRequestLog(mux)),
		},
		reports:     reports,
		visitLog:    visitLog,
		monthsLimit: monthsLimit,
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/dashboard/pdf", s.handleDashboardPDF)
	mux.HandleFunc("GET /api/dashboard/months", s.handleAvailableMonths)
	mux.HandleFunc("GET /api/dashboard/days", s.handleAvailableDays)
	mux.HandleFunc("GET /api/dashboard/daily", s.handleDailyReport)
	mux.HandleFunc("GET /api/dashboard/work-breakdown", s.handleWorkBreakdown)

	return s
}
