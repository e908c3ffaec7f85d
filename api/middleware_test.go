package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"

	"cryout/config"
	"cryout/core/rbac"
)

func testServer(t *testing.T, cfg *config.AppConfig) *Server {
	t.Helper()
	policy, err := rbac.NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	logger := &log.Logger{Handler: discard.New(), Level: log.ErrorLevel}
	return NewServer(cfg, ServerDeps{Policy: policy}, logger)
}

func TestRequestLimiter(t *testing.T) {
	l := newLimiter(2, time.Hour)
	if !l.allow("a") || !l.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if l.allow("a") {
		t.Fatal("third request should be limited")
	}
	if !l.allow("b") {
		t.Fatal("other keys get their own bucket")
	}
}

func TestLimitMiddlewareReturns429(t *testing.T) {
	s := testServer(t, &config.AppConfig{})
	called := 0
	h := s.limit(newLimiter(1, time.Hour), func(w http.ResponseWriter, r *http.Request) {
		called++
		w.WriteHeader(http.StatusOK)
	})

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest("POST", "/api/reports", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d status = %d, want %d", i, rec.Code, want)
		}
	}
	if called != 1 {
		t.Fatalf("handler called %d times, want 1", called)
	}
}

func TestWithAdminTokenGuard(t *testing.T) {
	s := testServer(t, &config.AppConfig{AdminToken: "secret"})
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"wrong token", "nope", http.StatusUnauthorized},
		{"right token", "secret", http.StatusOK},
	}
	for _, c := range cases {
		req := httptest.NewRequest("GET", "/api/admin/orgs", nil)
		if c.token != "" {
			req.Header.Set("X-Admin-Token", c.token)
		}
		rec := httptest.NewRecorder()
		s.withAdmin(rbac.PermAdminOrgs, ok)(rec, req)
		if rec.Code != c.want {
			t.Fatalf("%s: status = %d, want %d", c.name, rec.Code, c.want)
		}
	}
}

func TestWithAdminDisabledWithoutConfiguredToken(t *testing.T) {
	s := testServer(t, &config.AppConfig{})
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	req := httptest.NewRequest("GET", "/api/admin/orgs", nil)
	req.Header.Set("X-Admin-Token", "")
	rec := httptest.NewRecorder()
	s.withAdmin(rbac.PermAdminOrgs, ok)(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestClientIPTrustsConfiguredProxyOnly(t *testing.T) {
	s := testServer(t, &config.AppConfig{TrustedProxies: []string{"10.0.0.5"}})

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:4321"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.5")
	if got := s.clientIP(req); got != "203.0.113.9" {
		t.Fatalf("trusted proxy ip = %q", got)
	}

	req.RemoteAddr = "198.51.100.7:4321"
	if got := s.clientIP(req); got != "198.51.100.7" {
		t.Fatalf("untrusted peer ip = %q", got)
	}
}
