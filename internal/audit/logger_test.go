package audit

import (
	"net/http/httptest"
	"testing"
)

func TestExtractClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/login", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	r.Header.Set("X-Real-IP", "198.51.100.2")

	if got := extractClientIP(r); got != "203.0.113.7" {
		t.Fatalf("extractClientIP = %q, want X-Forwarded-For value", got)
	}
}

func TestExtractClientIPFallsBackToRealIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/login", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Real-IP", "198.51.100.2")

	if got := extractClientIP(r); got != "198.51.100.2" {
		t.Fatalf("extractClientIP = %q, want X-Real-IP value", got)
	}
}

func TestExtractClientIPFallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/login", nil)
	r.RemoteAddr = "10.0.0.1:1234"

	if got := extractClientIP(r); got != "10.0.0.1:1234" {
		t.Fatalf("extractClientIP = %q, want RemoteAddr", got)
	}
}
