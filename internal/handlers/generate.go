package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/vantageintel/vantage-web-ui/internal/models"
	"github.com/vantageintel/vantage-web-ui/internal/stream"
)

// Generation serves the streaming generation API. It drives the configured
// provider and writes events as "data: <json>" lines terminated by the
// "data: [DONE]" sentinel; provider failures become error events on the
// stream rather than HTTP failures.
type Generation struct {
	llm       LLM
	generator Generator
	articles  ArticleStore

	logger *slog.Logger
}

// NewGeneration creates a new Generation instance with the provided LLM,
// single-shot generator, and article catalog.
func NewGeneration(llm LLM, generator Generator, articles ArticleStore, logger *slog.Logger) Generation {
	return Generation{
		llm:       llm,
		generator: generator,
		articles:  articles,
		logger:    logger.With(slog.String("module", "generation")),
	}
}

type chatGenerationRequest struct {
	Messages []generationMessage `json:"messages"`
	Mode     string              `json:"mode,omitempty"`
}

type generationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perspectiveGenerationRequest struct {
	ArticleID string `json:"article_id"`
	Target    string `json:"target"`
}

const keepAliveInterval = 10 * time.Second

// defaultMode labels completions whose request did not name a mode.
const defaultMode = "analysis"

// HandleGenerateChat streams a chat completion for the posted conversation
// history. Tokens are written as they arrive from the provider, followed by a
// terminal complete event carrying citations, the as-of timestamp, and the
// generation mode. A provider failure ends the stream with an error event.
func (g Generation) HandleGenerateChat(w http.ResponseWriter, r *http.Request) {
	var req chatGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.logger.Error("Failed to decode chat generation request", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		g.logger.Error("Messages are required")
		http.Error(w, "Messages are required", http.StatusBadRequest)
		return
	}

	f, ok := w.(http.Flusher)
	if !ok {
		g.logger.Error("Streaming unsupported")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	msgs := make([]models.Message, len(req.Messages))
	for i, msg := range req.Messages {
		msgs[i] = models.Message{
			Role:    models.Role(msg.Role),
			Content: msg.Content,
		}
	}

	writeStreamHeaders(w)
	defer writeDone(w, f)

	for chunk, err := range g.llm.Chat(r.Context(), msgs) {
		if err != nil {
			g.logger.Error("Error from llm provider", slog.String(errLoggerKey, err.Error()))
			_ = writeEvent(w, f, stream.Event{Type: stream.EventError, Message: err.Error()})
			return
		}
		if chunk == "" {
			continue
		}
		if err := writeEvent(w, f, stream.Event{Type: stream.EventToken, Content: chunk}); err != nil {
			g.logger.Error("Failed to write token", slog.String(errLoggerKey, err.Error()))
			return
		}
	}

	mode := req.Mode
	if mode == "" {
		mode = defaultMode
	}
	ev := stream.Event{
		Type:     stream.EventComplete,
		Complete: true,
		Sources:  g.chatSources(r.Context()),
		AsOf:     time.Now().UTC().Format(time.RFC3339),
		Mode:     mode,
	}
	if err := writeEvent(w, f, ev); err != nil {
		g.logger.Error("Failed to write completion", slog.String(errLoggerKey, err.Error()))
	}
}

// HandleGeneratePerspectives streams the perspective analysis for one target
// of one article. The request names exactly one target; the response carries
// a single complete event whose perspectives map holds that target's talking
// points. Keep-alive comment lines are written while the provider works.
func (g Generation) HandleGeneratePerspectives(w http.ResponseWriter, r *http.Request) {
	var req perspectiveGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.logger.Error("Failed to decode perspective generation request", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ArticleID == "" || req.Target == "" {
		g.logger.Error("Article ID and target are required")
		http.Error(w, "Article ID and target are required", http.StatusBadRequest)
		return
	}

	f, ok := w.(http.Flusher)
	if !ok {
		g.logger.Error("Streaming unsupported")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	article, err := g.articles.Article(r.Context(), req.ArticleID)
	if err != nil {
		if errors.Is(err, models.ErrArticleNotFound) {
			http.Error(w, "Article not found", http.StatusNotFound)
			return
		}
		g.logger.Error("Failed to get article",
			slog.String("articleID", req.ArticleID),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeStreamHeaders(w)
	defer writeDone(w, f)

	type generated struct {
		text string
		err  error
	}
	res := make(chan generated, 1)
	go func() {
		text, err := g.generator.Generate(r.Context(), perspectivePrompt(req.Target, article))
		res <- generated{text: text, err: err}
	}()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			writeKeepAlive(w, f)
		case gen := <-res:
			if gen.err != nil {
				g.logger.Error("Error from llm provider",
					slog.String("target", req.Target),
					slog.String(errLoggerKey, gen.err.Error()))
				_ = writeEvent(w, f, stream.Event{Type: stream.EventError, Message: gen.err.Error()})
				return
			}

			points := parseTalkingPoints(gen.text)
			if len(points) == 0 {
				g.logger.Error("Provider response held no talking points",
					slog.String("target", req.Target))
				_ = writeEvent(w, f, stream.Event{
					Type:    stream.EventError,
					Message: fmt.Sprintf("no talking points generated for target %s", req.Target),
				})
				return
			}

			_ = writeEvent(w, f, stream.Event{
				Type:         stream.EventComplete,
				Perspectives: map[string][]string{req.Target: points},
			})
			return
		}
	}
}

// chatSources picks the freshest catalog entries as citations for a chat
// completion. A catalog failure degrades to an uncited answer.
func (g Generation) chatSources(ctx context.Context) []models.Source {
	articles, err := g.articles.Articles(ctx)
	if err != nil {
		g.logger.Error("Failed to load articles for sources", slog.String(errLoggerKey, err.Error()))
		return nil
	}

	n := min(len(articles), 3)
	sources := make([]models.Source, 0, n)
	for _, article := range articles[:n] {
		sources = append(sources, models.Source{
			Title:   article.Title,
			URL:     article.URL,
			Snippet: article.Description,
		})
	}
	return sources
}

// perspectivePrompt asks the model for talking points framed for one
// audience. The line format is prescribed so the response parses without a
// second model call.
func perspectivePrompt(target string, article models.Article) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze this news article from the %s perspective.\n\n", target)
	fmt.Fprintf(&sb, "Title: %s\n", article.Title)
	if article.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", article.Description)
	}
	fmt.Fprintf(&sb, "Source: %s\n", article.Source)
	fmt.Fprintf(&sb, "Category: %s\n", article.Category)
	sb.WriteString("\nRespond with three to five concise talking points, one per line, each line starting with \"- \".")
	return sb.String()
}

var talkingPointMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s*`)

// parseTalkingPoints splits a model response into ordered talking points.
// Bulleted and numbered lines lose their markers; blank lines and lines that
// are nothing but a marker are dropped.
func parseTalkingPoints(text string) []string {
	var points []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(talkingPointMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		points = append(points, line)
	}
	return points
}

func writeStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func writeEvent(w http.ResponseWriter, f http.Flusher, ev stream.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	f.Flush()
	return nil
}

func writeDone(w http.ResponseWriter, f http.Flusher) {
	fmt.Fprint(w, "data: [DONE]\n\n")
	f.Flush()
}

func writeKeepAlive(w http.ResponseWriter, f http.Flusher) {
	fmt.Fprint(w, ": keep-alive\n\n")
	f.Flush()
}
