package handlers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(limit, window)
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		attempts []string
		expected []bool
	}{
		{"within limit", 2, []string{"10.0.0.1", "10.0.0.1"}, []bool{true, true}},
		{"over limit", 1, []string{"10.0.0.1", "10.0.0.1", "10.0.0.1"}, []bool{true, false, false}},
		{"separate clients", 1, []string{"10.0.0.1", "10.0.0.2"}, []bool{true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := newTestLimiter(t, tt.limit, time.Minute)
			for i, ip := range tt.attempts {
				if got := rl.Allow(ip); got != tt.expected[i] {
					t.Errorf("attempt %d from %s: got %v, want %v", i+1, ip, got, tt.expected[i])
				}
			}
		})
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := newTestLimiter(t, 1, 50*time.Millisecond)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("first attempt should pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("second attempt in the same window should be blocked")
	}

	time.Sleep(120 * time.Millisecond)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("attempt after the window should pass")
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl := newTestLimiter(t, 3, time.Minute)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("10.0.0.1") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 3 {
		t.Errorf("allowed %d attempts, want 3", allowed)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"forwarded first hop", "1.2.3.4, 5.6.7.8", "10.0.0.1:1234", "1.2.3.4"},
		{"remote addr", "", "127.0.0.1:5555", "127.0.0.1"},
		{"remote addr without port", "", "127.0.0.1", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
