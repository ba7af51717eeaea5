package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/tmaxmax/go-sse"
	"github.com/vantageintel/vantage-web-ui/internal/analysis"
	"github.com/vantageintel/vantage-web-ui/internal/models"
	"github.com/vantageintel/vantage-web-ui/internal/stream"
)

// analysisSSEType labels re-broadcast analysis updates.
var analysisSSEType = sse.Type("analysis")

// articleAnalysis pairs one article's merged state with the orchestrator
// driving its streams. Both live as long as the process; analysis is
// recomputed from scratch after a restart.
type articleAnalysis struct {
	article models.Article
	state   *analysis.State
	orch    *analysis.Orchestrator
}

type analysisHub struct {
	mu      sync.Mutex
	entries map[string]*articleAnalysis
}

func newAnalysisHub() *analysisHub {
	return &analysisHub{entries: make(map[string]*articleAnalysis)}
}

type perspectiveRequest struct {
	Target string `json:"target"`
}

// analysisView is the dashboard-facing snapshot of one article's analysis.
type analysisView struct {
	ArticleID     string                      `json:"articleId"`
	Article       models.Article              `json:"article"`
	Analysis      analysis.StructuredAnalysis `json:"analysis"`
	Error         string                      `json:"error,omitempty"`
	Sessions      map[string]analysis.Session `json:"sessions"`
	LoadingTarget string                      `json:"loadingTarget,omitempty"`
	GeneratingAll bool                        `json:"generatingAll"`
	Progress      int                         `json:"progress"`
}

// HandlePerspectives starts one target's perspective stream for an article
// and returns immediately; progress is visible through the analysis snapshot
// and the article's SSE topic.
func (m Main) HandlePerspectives(w http.ResponseWriter, r *http.Request) {
	var req perspectiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.logger.Error("Failed to decode perspective request", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !slices.Contains(m.targets, req.Target) {
		m.logger.Error("Unknown target", slog.String("target", req.Target))
		http.Error(w, fmt.Sprintf("Unknown target: %s", req.Target), http.StatusBadRequest)
		return
	}

	entry, err := m.analysisFor(r.Context(), r.PathValue("id"))
	if err != nil {
		m.analysisError(w, r.PathValue("id"), err)
		return
	}

	go entry.orch.RunOne(context.Background(), req.Target)

	m.writeJSON(w, http.StatusAccepted, dataEnvelope{
		Data: analysis.Session{Target: req.Target, Status: analysis.StatusPending},
	})
}

// HandlePerspectivesAll starts every configured target's stream for an
// article at once.
func (m Main) HandlePerspectivesAll(w http.ResponseWriter, r *http.Request) {
	entry, err := m.analysisFor(r.Context(), r.PathValue("id"))
	if err != nil {
		m.analysisError(w, r.PathValue("id"), err)
		return
	}

	go entry.orch.RunAll(context.Background(), m.targets)

	m.writeJSON(w, http.StatusAccepted, dataEnvelope{Data: m.targets})
}

// HandleAnalysis returns the merged analysis for an article together with
// the per-target stream sessions and the aggregate run flags.
func (m Main) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	articleID := r.PathValue("id")
	entry, err := m.analysisFor(r.Context(), articleID)
	if err != nil {
		m.analysisError(w, articleID, err)
		return
	}

	m.writeJSON(w, http.StatusOK, dataEnvelope{Data: analysisViewOf(articleID, entry)})
}

func (m Main) analysisError(w http.ResponseWriter, articleID string, err error) {
	if errors.Is(err, models.ErrArticleNotFound) {
		http.Error(w, "Article not found", http.StatusNotFound)
		return
	}
	m.logger.Error("Failed to get article analysis",
		slog.String("articleID", articleID),
		slog.String(errLoggerKey, err.Error()))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// analysisFor returns the article's analysis entry, creating it on first
// use. A new entry is seeded with the signals the article itself provides,
// so merged perspectives land beside them without disturbing them.
func (m Main) analysisFor(ctx context.Context, articleID string) (*articleAnalysis, error) {
	m.analyses.mu.Lock()
	entry, ok := m.analyses.entries[articleID]
	m.analyses.mu.Unlock()
	if ok {
		return entry, nil
	}

	article, err := m.articles.Article(ctx, articleID)
	if err != nil {
		return nil, err
	}

	m.analyses.mu.Lock()
	defer m.analyses.mu.Unlock()
	if entry, ok := m.analyses.entries[articleID]; ok {
		return entry, nil
	}

	state := analysis.NewState()
	state.MergeSections(analysis.Sections{
		Signals: []string{article.Category, article.Source},
	})

	open := func(ctx context.Context, target string) iter.Seq[stream.Event] {
		return m.assembler.Stream(ctx, "/api/generate/perspectives", perspectiveGenerationRequest{
			ArticleID: article.ID,
			Target:    target,
		})
	}

	entry = &articleAnalysis{
		article: article,
		state:   state,
		orch: analysis.NewOrchestrator(open, state, m.logger, func() {
			m.publishAnalysis(articleID)
		}),
	}
	m.analyses.entries[articleID] = entry
	return entry, nil
}

// publishAnalysis re-broadcasts one article's analysis snapshot on its topic.
func (m Main) publishAnalysis(articleID string) {
	m.analyses.mu.Lock()
	entry, ok := m.analyses.entries[articleID]
	m.analyses.mu.Unlock()
	if !ok {
		return
	}

	payload, err := json.Marshal(analysisViewOf(articleID, entry))
	if err != nil {
		m.logger.Error("Failed to marshal analysis",
			slog.String("articleID", articleID),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	e := sse.Message{Type: analysisSSEType}
	e.AppendData(string(payload))
	if err := m.sseSrv.Publish(&e, analysisTopic(articleID)); err != nil {
		m.logger.Error("Failed to publish analysis",
			slog.String("articleID", articleID),
			slog.String(errLoggerKey, err.Error()))
	}
}

func analysisViewOf(articleID string, entry *articleAnalysis) analysisView {
	snap := entry.orch.Snapshot()
	return analysisView{
		ArticleID:     articleID,
		Article:       entry.article,
		Analysis:      entry.state.Snapshot(),
		Error:         entry.state.Error(),
		Sessions:      snap.Sessions,
		LoadingTarget: snap.LoadingTarget,
		GeneratingAll: snap.GeneratingAll,
		Progress:      snap.Progress,
	}
}
