package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vantageintel/vantage-web-ui/internal/metrics"
	"github.com/vantageintel/vantage-web-ui/internal/stream"
)

func TestMetricsScrape(t *testing.T) {
	m := metrics.New()

	var _ stream.Observer = m

	m.StreamOpened("/api/generate/chat")
	m.EventDecoded("/api/generate/chat", stream.EventToken)
	m.EventDecoded("/api/generate/chat", stream.EventToken)
	m.StreamSettled("/api/generate/chat", stream.OutcomeComplete)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("scrape status = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	for _, want := range []string{
		`generation_streams_opened_total{path="/api/generate/chat"} 1`,
		`generation_events_decoded_total{path="/api/generate/chat",type="token"} 2`,
		`generation_streams_settled_total{outcome="complete",path="/api/generate/chat"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape body missing %q", want)
		}
	}
}
