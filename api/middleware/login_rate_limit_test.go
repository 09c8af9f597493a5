package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeLimiterStore struct {
	counts map[string]int64
}

func newFakeLimiterStore() *fakeLimiterStore {
	return &fakeLimiterStore{counts: make(map[string]int64)}
}

func (f *fakeLimiterStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeLimiterStore) RateLimitKey(scope string) string {
	return "bordado:ratelimit:" + scope
}

func loginRequest(ip, email string) *http.Request {
	body := `{"email":"` + email + `","password":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("X-Forwarded-For", ip)
	return req
}

func passNext() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLoginRateLimitBlocksByIP(t *testing.T) {
	store := newFakeLimiterStore()
	handler := LoginRateLimit(NewLoginRateLimitPolicy(time.Minute, 2, 0), store, nil)(passNext())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("1.2.3.4", "admin@archivobordado.com"))
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d should pass, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("1.2.3.4", "admin@archivobordado.com"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third attempt, got %d", rec.Code)
	}

	// a different IP still gets through
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("5.6.7.8", "admin@archivobordado.com"))
	if rec.Code != http.StatusOK {
		t.Fatalf("other IP should pass, got %d", rec.Code)
	}
}

func TestLoginRateLimitBlocksByEmail(t *testing.T) {
	store := newFakeLimiterStore()
	handler := LoginRateLimit(NewLoginRateLimitPolicy(time.Minute, 0, 2), store, nil)(passNext())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("1.2.3.4", "Admin@ArchivoBordado.com"))
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d should pass, got %d", i+1, rec.Code)
		}
	}

	// same email from a fresh IP is still counted
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("9.9.9.9", "admin@archivobordado.com"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 across IPs for the same email, got %d", rec.Code)
	}
}

func TestLoginRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	handler := LoginRateLimit(NewLoginRateLimitPolicy(0, 0, 0), newFakeLimiterStore(), nil)(passNext())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("1.2.3.4", "admin@archivobordado.com"))
	if rec.Code != http.StatusOK {
		t.Fatalf("disabled policy must pass everything, got %d", rec.Code)
	}
}
