// Package visits records dashboard page views in the dashboard_visits
// table. Recording is best effort: a lost visit must never affect the
// response that triggered it.
package visits

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"skpdi/internal/database"
)

const insertVisitSQL = `
	INSERT INTO dashboard_visits (
		endpoint,
		client_ip,
		user_agent,
		user_id,
		session_id,
		session_duration_sec,
		device_type,
		browser,
		os
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`

// uniqueViolation is the Postgres error code for duplicate key inserts.
const uniqueViolation = "23505"

// Logger writes visit records.
type Logger struct {
	db *database.Provider
}

func NewLogger(db *database.Provider) *Logger {
	return &Logger{db: db}
}

// Record stores one dashboard visit extracted from the request. Duplicate
// session/endpoint pairs are expected and silently ignored; any other
// failure is logged and swallowed.
func (l *Logger) Record(ctx context.Context, r *http.Request, endpoint string) {
	ua := r.Header.Get("User-Agent")
	device, browser, osName := ParseUserAgent(ua)

	conn, err := l.db.Acquire(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to record dashboard visit", "endpoint", endpoint, "error", err)
		return
	}
	defer conn.Close()

	_, err = conn.ExecContext(ctx, insertVisitSQL,
		endpoint,
		nullable(clientIP(r)),
		nullable(ua),
		nullable(userID(r)),
		nullable(sessionID(r)),
		sessionDuration(r),
		nullable(device),
		nullable(browser),
		nullable(osName),
	)
	if err == nil {
		return
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		slog.DebugContext(ctx, "duplicate visit record, ignoring",
			"endpoint", endpoint, "session_id", sessionID(r))
		return
	}
	slog.WarnContext(ctx, "failed to record dashboard visit", "endpoint", endpoint, "error", err)
}

func nullable(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// clientIP prefers the first X-Forwarded-For hop over the socket peer.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

// userID is the anonymous persistent identifier the frontend keeps in
// localStorage and forwards via header or cookie.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-Id"); id != "" {
		return id
	}
	if c, err := r.Cookie("user_id"); err == nil {
		return c.Value
	}
	return ""
}

func sessionID(r *http.Request) string {
	if id := r.Header.Get("X-Session-Id"); id != "" {
		return id
	}
	if c, err := r.Cookie("session_id"); err == nil {
		return c.Value
	}
	return ""
}

func sessionDuration(r *http.Request) sql.NullInt64 {
	raw := r.Header.Get("X-Session-Duration-Sec")
	if raw == "" {
		return sql.NullInt64{}
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seconds < 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: seconds, Valid: true}
}

// ParseUserAgent is a coarse-grained classifier, good enough for the visit
// statistics page. Unknown values come back empty.
func ParseUserAgent(userAgent string) (device, browser, osName string) {
	if userAgent == "" {
		return "", "", ""
	}
	ua := strings.ToLower(userAgent)

	device = "desktop"
	if strings.Contains(ua, "mobi") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone") {
		device = "mobile"
	}

	switch {
	case strings.Contains(ua, "edg"):
		browser = "edge"
	case strings.Contains(ua, "chrome") && !strings.Contains(ua, "chromium"):
		browser = "chrome"
	case strings.Contains(ua, "safari") && !strings.Contains(ua, "chrome"):
		browser = "safari"
	case strings.Contains(ua, "firefox"):
		browser = "firefox"
	case strings.Contains(ua, "opr"), strings.Contains(ua, "opera"):
		browser = "opera"
	case strings.Contains(ua, "trident"), strings.Contains(ua, "msie"):
		browser = "ie"
	}

	switch {
	case strings.Contains(ua, "windows"):
		osName = "windows"
	case strings.Contains(ua, "android"):
		osName = "android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ios"):
		osName = "ios"
	case strings.Contains(ua, "mac os x"), strings.Contains(ua, "macintosh"):
		osName = "macos"
	case strings.Contains(ua, "linux"):
		osName = "linux"
	}

	return device, browser, osName
}
