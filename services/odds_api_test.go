package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestOddsClient(url string) *OddsAPIClient {
	c := NewOddsAPIClient(OddsAPIConfig{BaseURL: url, APIKey: "key", MaxAttempts: 3})
	c.backoffFn = func(int) time.Duration { return 0 }
	return c
}

func TestOddsAPIGetOdds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/sports/baseball_mlb/odds" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("apiKey") != "key" || q.Get("markets") != "spreads,totals" || q.Get("regions") != "us" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Header().Set("x-requests-remaining", "499")
		w.Header().Set("x-requests-used", "1")
		w.Write([]byte(`[{"id":"evt-1","sport_key":"baseball_mlb","commence_time":"2026-06-01T23:05:00Z",
			"home_team":"New York Yankees","away_team":"Boston Red Sox",
			"bookmakers":[{"key":"fanduel","title":"FanDuel","markets":[
				{"key":"spreads","outcomes":[{"name":"New York Yankees","price":-110,"point":-1.5},{"name":"Boston Red Sox","price":-110,"point":1.5}]},
				{"key":"totals","outcomes":[{"name":"Over","price":-105,"point":8.5},{"name":"Under","price":-115,"point":8.5}]}]}]}]`))
	}))
	defer srv.Close()

	events, quota, err := newTestOddsClient(srv.URL).GetOdds(context.Background(), "baseball_mlb")
	if err != nil {
		t.Fatalf("GetOdds: %v", err)
	}
	if quota.Remaining != "499" || quota.Used != "1" {
		t.Errorf("quota = %+v", quota)
	}
	if len(events) != 1 || events[0].HomeTeam != "New York Yankees" {
		t.Fatalf("events = %+v", events)
	}
	lines, ok := SelectLines(events[0])
	if !ok || lines.HomeSpread != -1.5 || lines.Total != 8.5 {
		t.Fatalf("lines = %+v, %v", lines, ok)
	}
}

func TestOddsAPIRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		if r.URL.Query().Get("daysFrom") != "1" {
			t.Errorf("daysFrom = %q", r.URL.Query().Get("daysFrom"))
		}
		w.Write([]byte(`[{"id":"evt-1","completed":true,"home_team":"A","away_team":"B","scores":[{"name":"A","score":"3"},{"name":"B","score":"2"}]}]`))
	}))
	defer srv.Close()

	events, _, err := newTestOddsClient(srv.URL).GetScores(context.Background(), "baseball_mlb", 1)
	if err != nil {
		t.Fatalf("GetScores: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
	if len(events) != 1 || !events[0].Completed || events[0].Scores[0].Score != "3" {
		t.Fatalf("events = %+v", events)
	}
}

func TestOddsAPIDoesNotRetryClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"rate limited", http.StatusTooManyRequests, func(t *testing.T, err error) {
			rl, ok := AsRateLimitError(err)
			if !ok {
				t.Fatalf("err = %v, want *RateLimitError", err)
			}
			if rl.RetryAfter != 30*time.Second {
				t.Errorf("retry after = %s", rl.RetryAfter)
			}
		}},
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			var pe *ProviderError
			if !errors.As(err, &pe) || pe.StatusCode != http.StatusUnauthorized || pe.Transient() {
				t.Fatalf("err = %v", err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.Header().Set("Retry-After", "30")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, _, err := newTestOddsClient(srv.URL).GetOdds(context.Background(), "baseball_mlb")
			tt.check(t, err)
			if got := atomic.LoadInt32(&calls); got != 1 {
				t.Errorf("calls = %d, want 1", got)
			}
		})
	}
}

func TestOddsAPIStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestOddsClient(srv.URL)
	c.backoffFn = func(int) time.Duration { return time.Hour }
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := c.GetOdds(ctx, "baseball_mlb")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}
