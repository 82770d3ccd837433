package risk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientRetriesOnThrottle(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"score": 640, "risk_level": "HIGH", "session_id": "s-1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 5*time.Second)
	resp, err := c.Score(context.Background(), ModelRequest{Phone: "9999999999"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if resp.Score != 640 || resp.RiskLevel != "HIGH" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if calls != 3 {
		t.Errorf("server called %d times, want 3", calls)
	}
}

func TestClientDoesNotRetryServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	_, err := c.Score(context.Background(), ModelRequest{})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1 (no retry on 500)", calls)
	}
}

func TestClientGivesUpAfterBoundedAttempts(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	c.attempts = 2
	_, err := c.Score(context.Background(), ModelRequest{})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if calls != 2 {
		t.Errorf("server called %d times, want 2", calls)
	}
}
