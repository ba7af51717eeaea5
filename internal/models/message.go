package models

import "time"

// Role identifies the author of a conversational turn.
type Role string

const (
	// RoleUser marks a message written by the dashboard user.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the generation backend.
	RoleAssistant Role = "assistant"
	// RoleSystem marks an instruction message that is sent to providers but never
	// displayed in the conversation.
	RoleSystem Role = "system"
)

// Source is one citation attached to an assistant message when its stream
// completes.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Metadata carries the non-prose attributes of a message. Sources, AsOf and Mode
// arrive only with the terminal event of a stream; Complete stays false while
// tokens are still being appended.
type Metadata struct {
	Sources  []Source `json:"sources,omitempty"`
	Complete bool     `json:"complete"`
	AsOf     string   `json:"asOf,omitempty"`
	Mode     string   `json:"mode,omitempty"`
	Error    string   `json:"error,omitempty"`

	// IsArticleCard marks the message as a contextual article card rather than
	// prose. ArticleContext holds the article the card refers to.
	IsArticleCard  bool     `json:"isArticleCard,omitempty"`
	ArticleContext *Article `json:"articleContext,omitempty"`
}

// Message represents an individual communication entry within a conversation.
// Content starts empty for an in-flight assistant message and is appended to as
// tokens arrive.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Metadata  Metadata  `json:"metadata"`
}

const (
	// StreamingStateLoading means an assistant message has produced no output yet.
	StreamingStateLoading = "loading"
	// StreamingStateStreaming means tokens are arriving but the message is not
	// finished.
	StreamingStateStreaming = "streaming"
	// StreamingStateEnded means the message is finished, even if its content is
	// empty.
	StreamingStateEnded = "ended"
)

// StreamingState classifies an assistant message for presentation. An empty but
// complete message is ended, never loading: the dashboard must distinguish
// "nothing yet" from "finished with nothing".
func (m Message) StreamingState() string {
	if m.Metadata.Complete {
		return StreamingStateEnded
	}
	if m.Content == "" {
		return StreamingStateLoading
	}
	return StreamingStateStreaming
}
