package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vantageintel/vantage-web-ui/internal/models"
	"github.com/vantageintel/vantage-web-ui/internal/stats"
)

// HandleArticles lists the article catalog, optionally filtered by the
// category query parameter.
func (m Main) HandleArticles(w http.ResponseWriter, r *http.Request) {
	var (
		articles []models.Article
		err      error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		articles, err = m.articles.ArticlesByCategory(r.Context(), category)
	} else {
		articles, err = m.articles.Articles(r.Context())
	}
	if err != nil {
		m.logger.Error("Failed to get articles", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if articles == nil {
		articles = []models.Article{}
	}

	m.writeJSON(w, http.StatusOK, dataEnvelope{Data: articles})
}

// HandleArticle returns a single catalog entry.
func (m Main) HandleArticle(w http.ResponseWriter, r *http.Request) {
	article, err := m.articles.Article(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, models.ErrArticleNotFound) {
			http.Error(w, "Article not found", http.StatusNotFound)
			return
		}
		m.logger.Error("Failed to get article",
			slog.String("articleID", r.PathValue("id")),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, http.StatusOK, dataEnvelope{Data: article})
}

// HandleAddArticle stores a new article in the catalog. A missing ID is
// filled in and the store prefixes it with its sequence number; the stored
// article comes back with its final ID.
func (m Main) HandleAddArticle(w http.ResponseWriter, r *http.Request) {
	var article models.Article
	if err := json.NewDecoder(r.Body).Decode(&article); err != nil {
		m.logger.Error("Failed to decode article", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if article.Title == "" {
		m.logger.Error("Title is required")
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}

	if article.ID == "" {
		article.ID = uuid.New().String()
	}
	if article.PublishedAt.IsZero() {
		article.PublishedAt = time.Now()
	}

	newID, err := m.articles.AddArticle(r.Context(), article)
	if err != nil {
		m.logger.Error("Failed to add article", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	article.ID = newID

	m.writeJSON(w, http.StatusCreated, dataEnvelope{Data: article})
}

// HandleStats serves the aggregate catalog counters behind a per-client rate
// limit. A limited client gets a plain 429 and is expected to retry with
// backoff.
func (m Main) HandleStats(w http.ResponseWriter, r *http.Request) {
	if !m.limiter.Allow(clientKey(r)) {
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	articles, err := m.articles.Articles(r.Context())
	if err != nil {
		m.logger.Error("Failed to get articles for stats", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, http.StatusOK, dataEnvelope{Data: stats.Collect(articles)})
}

// HandleOverview fetches the aggregate stats through the retrying stats
// client, so a transient rate limit never reaches the dashboard as a bare
// 429.
func (m Main) HandleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := m.fetcher.Overview(r.Context())
	if err != nil {
		if errors.Is(err, stats.ErrRateLimited) {
			m.logger.Error("Stats fetch rate limited", slog.String(errLoggerKey, err.Error()))
			http.Error(w, "Stats temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		m.logger.Error("Failed to fetch stats", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, http.StatusOK, dataEnvelope{Data: overview})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
