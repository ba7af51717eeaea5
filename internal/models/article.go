package models

import (
	"errors"
	"time"
)

// ErrArticleNotFound is returned by article stores when no article matches the
// requested ID.
var ErrArticleNotFound = errors.New("article not found")

// Article is one entry of the news catalog. Title, Description, Source and
// Category are forwarded to the generation backend as source content when the
// article is analyzed.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}
