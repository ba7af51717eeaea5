package stats_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/vantageintel/vantage-web-ui/internal/stats"
)

func TestClientOverviewRetriesRateLimit(t *testing.T) {
	const unit = 10 * time.Millisecond

	var mu sync.Mutex
	var arrivals []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		n := len(arrivals)
		mu.Unlock()

		if n <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"articles":2,"byCategory":{"politics":2},"bySource":{"Reuters":2}}}`)
	}))
	defer srv.Close()

	client := stats.NewClient(srv.URL, unit)

	overview, err := client.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if overview.Articles != 2 {
		t.Errorf("Articles = %d, want 2", overview.Articles)
	}
	if overview.ByCategory["politics"] != 2 {
		t.Errorf("ByCategory = %v, want politics: 2", overview.ByCategory)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(arrivals) != 4 {
		t.Fatalf("server saw %d requests, want 4", len(arrivals))
	}
	// The waits grow linearly per attempt: unit, then twice, then three times.
	for i := 1; i < len(arrivals); i++ {
		gap := arrivals[i].Sub(arrivals[i-1])
		if want := time.Duration(i) * unit; gap < want {
			t.Errorf("gap before request %d = %v, want at least %v", i+1, gap, want)
		}
	}
}

func TestClientOverviewExhaustsRetries(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := stats.NewClient(srv.URL, time.Millisecond)

	_, err := client.Overview(context.Background())
	if !errors.Is(err, stats.ErrRateLimited) {
		t.Fatalf("Overview() error = %v, want ErrRateLimited", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 4 {
		t.Errorf("server saw %d requests, want 4 (initial plus three retries)", calls)
	}
}

func TestClientOverviewNoRetryOnOtherFailures(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := stats.NewClient(srv.URL, time.Millisecond)

	_, err := client.Overview(context.Background())
	if err == nil {
		t.Fatal("Overview() error = nil, want failure")
	}
	if errors.Is(err, stats.ErrRateLimited) {
		t.Errorf("Overview() error = %v, want a plain failure", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("server saw %d requests, want 1: non-429 failures are terminal", calls)
	}
}

func TestClientOverviewContextCancelsWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := stats.NewClient(srv.URL, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Overview(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Overview() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Overview() blocked %v; cancellation should cut the retry wait short", elapsed)
	}
}
