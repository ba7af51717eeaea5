// Package stats computes the dashboard's aggregate counters, serves them
// behind a per-client rate limit, and fetches them back with bounded retry.
package stats

import (
	"time"

	"github.com/vantageintel/vantage-web-ui/internal/models"
)

// Overview is the payload of the stats endpoint.
type Overview struct {
	Articles    int            `json:"articles"`
	ByCategory  map[string]int `json:"byCategory"`
	BySource    map[string]int `json:"bySource"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// Collect computes the overview for a set of articles.
func Collect(articles []models.Article) Overview {
	overview := Overview{
		Articles:    len(articles),
		ByCategory:  make(map[string]int),
		BySource:    make(map[string]int),
		GeneratedAt: time.Now(),
	}
	for _, article := range articles {
		overview.ByCategory[article.Category]++
		overview.BySource[article.Source]++
	}
	return overview
}
