package visits

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseUserAgent(t *testing.T) {
	cases := []struct {
		name    string
		ua      string
		device  string
		browser string
		os      string
	}{
		{
			name:    "chrome on windows",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			device:  "desktop",
			browser: "chrome",
			os:      "windows",
		},
		{
			name:    "safari on iphone",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			device:  "mobile",
			browser: "safari",
			os:      "ios",
		},
		{
			name:    "edge on windows",
			ua:      "Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 Edg/120.0",
			device:  "desktop",
			browser: "edge",
			os:      "windows",
		},
		{
			name:    "firefox on linux",
			ua:      "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			device:  "desktop",
			browser: "firefox",
			os:      "linux",
		},
		{
			name:    "android chrome is mobile",
			ua:      "Mozilla/5.0 (Linux; Android 14) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36",
			device:  "mobile",
			browser: "chrome",
			os:      "android",
		},
		{
			name: "empty",
			ua:   "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			device, browser, osName := ParseUserAgent(tc.ua)
			if device != tc.device || browser != tc.browser || osName != tc.os {
				t.Fatalf("ParseUserAgent(%q) = (%q, %q, %q), want (%q, %q, %q)",
					tc.ua, device, browser, osName, tc.device, tc.browser, tc.os)
			}
		})
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/dashboard", nil)
	r.RemoteAddr = "10.0.0.5:51234"
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := clientIP(r); got != "203.0.113.7" {
		t.Fatalf("clientIP = %q, want first forwarded hop", got)
	}

	r.Header.Del("X-Forwarded-For")
	if got := clientIP(r); got != "10.0.0.5" {
		t.Fatalf("clientIP = %q, want socket peer without port", got)
	}
}

func TestSessionDuration(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/dashboard", nil)

	if d := sessionDuration(r); d.Valid {
		t.Fatal("missing header must yield no value")
	}

	r.Header.Set("X-Session-Duration-Sec", "172")
	if d := sessionDuration(r); !d.Valid || d.Int64 != 172 {
		t.Fatalf("expected 172, got %+v", d)
	}

	r.Header.Set("X-Session-Duration-Sec", "-5")
	if d := sessionDuration(r); d.Valid {
		t.Fatal("negative durations must be dropped")
	}

	r.Header.Set("X-Session-Duration-Sec", "abc")
	if d := sessionDuration(r); d.Valid {
		t.Fatal("non-numeric durations must be dropped")
	}
}

func TestUserAndSessionID(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/dashboard", nil)
	if userID(r) != "" || sessionID(r) != "" {
		t.Fatal("no identifiers expected on a bare request")
	}

	r.Header.Set("X-User-Id", "u-123")
	if userID(r) != "u-123" {
		t.Fatalf("userID = %q, want header value", userID(r))
	}

	r2 := httptest.NewRequest("GET", "/api/dashboard", nil)
	r2.AddCookie(&http.Cookie{Name: "session_id", Value: "s-9"})
	r2.AddCookie(&http.Cookie{Name: "user_id", Value: "u-7"})
	if sessionID(r2) != "s-9" {
		t.Fatalf("sessionID = %q, want cookie value", sessionID(r2))
	}
	if userID(r2) != "u-7" {
		t.Fatalf("userID = %q, want cookie fallback", userID(r2))
	}
}
