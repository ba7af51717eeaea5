package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vantageintel/vantage-web-ui/internal/handlers"
	"github.com/vantageintel/vantage-web-ui/internal/models"
	"github.com/vantageintel/vantage-web-ui/internal/services"
	"github.com/vantageintel/vantage-web-ui/internal/stats"
	"github.com/vantageintel/vantage-web-ui/internal/stream"
)

func catalogFixture() *mockArticleStore {
	return &mockArticleStore{articles: []models.Article{
		{ID: "1-a", Title: "Rates hold", Source: "Market Dispatch", Category: "economy"},
		{ID: "2-b", Title: "Budget vote slips", Source: "Capitol Wire", Category: "politics"},
		{ID: "3-c", Title: "Chip exports tighten", Source: "Silicon Ledger", Category: "economy"},
	}}
}

func TestHandleArticles(t *testing.T) {
	m := newTestMain(t, &mockLLM{}, &mockGenerator{}, catalogFixture())
	srv := newDashboardServer(t, m)

	tests := []struct {
		name      string
		url       string
		wantCount int
	}{
		{name: "full catalog", url: "/api/articles", wantCount: 3},
		{name: "category filter", url: "/api/articles?category=economy", wantCount: 2},
		{name: "empty category", url: "/api/articles?category=sports", wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.url)
			if err != nil {
				t.Fatalf("get articles: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("HandleArticles() status = %v, want %v", resp.StatusCode, http.StatusOK)
			}

			var out struct {
				Data []models.Article `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				t.Fatalf("decode articles: %v", err)
			}
			if out.Data == nil {
				t.Fatal("data should be an empty list, never null")
			}
			if len(out.Data) != tt.wantCount {
				t.Errorf("got %d articles, want %d", len(out.Data), tt.wantCount)
			}
		})
	}
}

func TestHandleArticle(t *testing.T) {
	m := newTestMain(t, &mockLLM{}, &mockGenerator{}, catalogFixture())
	srv := newDashboardServer(t, m)

	resp, err := http.Get(srv.URL + "/api/articles/2-b")
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("HandleArticle() status = %v, want %v", resp.StatusCode, http.StatusOK)
	}

	var out struct {
		Data models.Article `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode article: %v", err)
	}
	if out.Data.Title != "Budget vote slips" {
		t.Errorf("title = %q, want %q", out.Data.Title, "Budget vote slips")
	}

	resp, err = http.Get(srv.URL + "/api/articles/missing")
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("HandleArticle() status = %v, want %v", resp.StatusCode, http.StatusNotFound)
	}
}

func TestHandleAddArticle(t *testing.T) {
	store := catalogFixture()
	m := newTestMain(t, &mockLLM{}, &mockGenerator{}, store)
	srv := newDashboardServer(t, m)

	body := `{"title":"Port strike talks stall","source":"Global Brief","category":"world"}`
	resp := postJSON(t, srv.URL+"/api/articles", body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("HandleAddArticle() status = %v, want %v", resp.StatusCode, http.StatusCreated)
	}

	var out struct {
		Data models.Article `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode article: %v", err)
	}
	if out.Data.ID == "" {
		t.Error("stored article should come back with its final ID")
	}
	if out.Data.PublishedAt.IsZero() {
		t.Error("missing publishedAt should be filled in")
	}

	stored, err := store.Article(context.Background(), out.Data.ID)
	if err != nil {
		t.Fatalf("stored article not found: %v", err)
	}
	if stored.Title != "Port strike talks stall" {
		t.Errorf("stored title = %q, want %q", stored.Title, "Port strike talks stall")
	}

	resp = postJSON(t, srv.URL+"/api/articles", `{"source":"Global Brief"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("HandleAddArticle() status = %v, want %v for a missing title", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestHandleStatsRateLimiting(t *testing.T) {
	m := handlers.NewMain(
		services.NewConversationStore(),
		catalogFixture(),
		mockFetcher{},
		stats.NewLimiter(1, 2),
		stream.NewClient("", nil),
		nil,
		discardLogger(),
	)

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		w := httptest.NewRecorder()
		m.HandleStats(w, req)
		return w
	}

	first := get()
	if first.Code != http.StatusOK {
		t.Fatalf("HandleStats() status = %v, want %v", first.Code, http.StatusOK)
	}

	var out struct {
		Data stats.Overview `json:"data"`
	}
	if err := json.NewDecoder(first.Body).Decode(&out); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if out.Data.Articles != 3 {
		t.Errorf("articles = %d, want 3", out.Data.Articles)
	}
	if out.Data.ByCategory["economy"] != 2 || out.Data.BySource["Capitol Wire"] != 1 {
		t.Errorf("counters = %+v, want per-category and per-source counts", out.Data)
	}

	if second := get(); second.Code != http.StatusOK {
		t.Fatalf("second request status = %v, want the burst to allow it", second.Code)
	}
	if third := get(); third.Code != http.StatusTooManyRequests {
		t.Errorf("third request status = %v, want %v", third.Code, http.StatusTooManyRequests)
	}
}

func TestHandleOverview(t *testing.T) {
	t.Run("fetches through the stats endpoint", func(t *testing.T) {
		statsMain := handlers.NewMain(
			services.NewConversationStore(),
			catalogFixture(),
			mockFetcher{},
			stats.NewLimiter(100, 100),
			stream.NewClient("", nil),
			nil,
			discardLogger(),
		)
		statsSrv := newDashboardServer(t, statsMain)

		m := handlers.NewMain(
			services.NewConversationStore(),
			catalogFixture(),
			stats.NewClient(statsSrv.URL, time.Millisecond),
			stats.NewLimiter(100, 100),
			stream.NewClient("", nil),
			nil,
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodGet, "/api/overview", nil)
		w := httptest.NewRecorder()
		m.HandleOverview(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("HandleOverview() status = %v, want %v", w.Code, http.StatusOK)
		}
		var out struct {
			Data stats.Overview `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
			t.Fatalf("decode overview: %v", err)
		}
		if out.Data.Articles != 3 {
			t.Errorf("articles = %d, want 3", out.Data.Articles)
		}
	})

	t.Run("exhausted retries surface as unavailable", func(t *testing.T) {
		statsMain := handlers.NewMain(
			services.NewConversationStore(),
			catalogFixture(),
			mockFetcher{},
			stats.NewLimiter(0.001, 1),
			stream.NewClient("", nil),
			nil,
			discardLogger(),
		)
		statsSrv := newDashboardServer(t, statsMain)

		// Burn the only token so every retry is answered with 429.
		resp, err := http.Get(statsSrv.URL + "/api/stats")
		if err != nil {
			t.Fatalf("burn token: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("burn status = %v, want %v", resp.StatusCode, http.StatusOK)
		}

		m := handlers.NewMain(
			services.NewConversationStore(),
			catalogFixture(),
			stats.NewClient(statsSrv.URL, time.Millisecond),
			stats.NewLimiter(100, 100),
			stream.NewClient("", nil),
			nil,
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodGet, "/api/overview", nil)
		w := httptest.NewRecorder()
		m.HandleOverview(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("HandleOverview() status = %v, want %v", w.Code, http.StatusServiceUnavailable)
		}
	})

	t.Run("fetcher failure", func(t *testing.T) {
		m := handlers.NewMain(
			services.NewConversationStore(),
			catalogFixture(),
			mockFetcher{err: errors.New("connection refused")},
			stats.NewLimiter(100, 100),
			stream.NewClient("", nil),
			nil,
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodGet, "/api/overview", nil)
		w := httptest.NewRecorder()
		m.HandleOverview(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("HandleOverview() status = %v, want %v", w.Code, http.StatusInternalServerError)
		}
	})
}
