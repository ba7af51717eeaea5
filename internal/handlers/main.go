package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmaxmax/go-sse"
	"github.com/vantageintel/vantage-web-ui/internal/analysis"
	"github.com/vantageintel/vantage-web-ui/internal/models"
	"github.com/vantageintel/vantage-web-ui/internal/stats"
	"github.com/vantageintel/vantage-web-ui/internal/stream"
)

const errLoggerKey = "err"

// LLM represents a large language model interface that provides chat
// functionality. It accepts a context and a sequence of messages, returning
// an iterator that yields response chunks and potential errors.
type LLM interface {
	Chat(ctx context.Context, messages []models.Message) iter.Seq2[string, error]
}

// Generator produces a full completion for a single prompt. It is used where
// the response is consumed whole, such as perspective generation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ArticleStore defines the interface for the article catalog. It supplies the
// source content for generation and the raw data for stats aggregation.
type ArticleStore interface {
	Articles(ctx context.Context) ([]models.Article, error)
	ArticlesByCategory(ctx context.Context, category string) ([]models.Article, error)
	Article(ctx context.Context, id string) (models.Article, error)
	AddArticle(ctx context.Context, article models.Article) (string, error)
}

// ConversationStore defines the interface for the registry of live
// conversations.
type ConversationStore interface {
	Add(conv *models.Conversation)
	Conversation(id string) (*models.Conversation, bool)
	Remove(id string)
}

// StatsFetcher fetches the aggregate stats from the stats endpoint, retrying
// through rate limits.
type StatsFetcher interface {
	Overview(ctx context.Context) (stats.Overview, error)
}

// Main handles the dashboard side of the application: it assembles generation
// streams into conversations and analyses, re-broadcasts updates over
// server-sent events, and serves the article catalog and stats.
type Main struct {
	sseSrv *sse.Server

	conversations ConversationStore
	articles      ArticleStore
	analyses      *analysisHub
	assembler     stream.Client
	fetcher       StatsFetcher
	limiter       *stats.Limiter
	targets       []string

	logger *slog.Logger
}

// NewMain creates a new Main instance with the provided collaborators. It
// initializes the SSE server with default configurations; clients subscribe
// to per-message and per-article topics through query parameters. An empty
// targets slice falls back to the default perspective targets.
func NewMain(conversations ConversationStore, articles ArticleStore, fetcher StatsFetcher,
	limiter *stats.Limiter, assembler stream.Client, targets []string, logger *slog.Logger,
) Main {
	if len(targets) == 0 {
		targets = analysis.DefaultTargets
	}

	return Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				// We start with the default topic that all clients subscribe to
				topics := []string{sse.DefaultTopic}

				// We create a message-specific topic if the client requests updates for a particular message
				messageID := s.Req.URL.Query().Get("message_id")
				if messageID != "" {
					topics = append(topics, messageIDTopic(messageID))
				}

				// We do the same for a particular article's analysis
				articleID := s.Req.URL.Query().Get("article_id")
				if articleID != "" {
					topics = append(topics, analysisTopic(articleID))
				}

				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      topics,
				}, true
			},
		},
		conversations: conversations,
		articles:      articles,
		analyses:      newAnalysisHub(),
		assembler:     assembler,
		fetcher:       fetcher,
		limiter:       limiter,
		targets:       targets,
		logger:        logger.With(slog.String("module", "handlers")),
	}
}

func messageIDTopic(messageID string) string {
	return fmt.Sprintf("message-%s", messageID)
}

func analysisTopic(articleID string) string {
	return fmt.Sprintf("analysis-%s", articleID)
}

// HandleSSE serves the re-broadcast stream the dashboard listens on.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

// Shutdown gracefully terminates the Main instance's SSE server. It
// broadcasts a close message to all connected clients and waits up to 5
// seconds for connections to terminate. After the timeout, any remaining
// connections are forcefully closed.
func (m Main) Shutdown(ctx context.Context) error {
	e := &sse.Message{Type: sse.Type("close")}
	// We create a close event that complies with SSE spec requiring data
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}

type dataEnvelope struct {
	Data any `json:"data"`
}

func (m Main) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.Error("Failed to encode response", slog.String(errLoggerKey, err.Error()))
	}
}
