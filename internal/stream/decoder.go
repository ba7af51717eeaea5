package stream

import (
	"encoding/json"
	"strings"

	"github.com/vantageintel/vantage-web-ui/internal/models"
)

const (
	// EventToken carries one increment of assistant text.
	EventToken = "token"
	// EventComplete is the terminal success payload of a stream.
	EventComplete = "complete"
	// EventError surfaces an application-level failure mid-stream.
	EventError = "error"
)

// Event is one decoded record of a generation stream, discriminated by Type.
// Only the fields matching the type are populated. Consumers treat events of
// unrecognized types as no-ops.
type Event struct {
	Type string `json:"type"`

	// Content is the incremental text of a token event.
	Content string `json:"content,omitempty"`

	// Perspectives maps targets to talking points on the complete event of a
	// perspective stream.
	Perspectives map[string][]string `json:"perspectives,omitempty"`

	// Complete, Sources, AsOf and Mode arrive with the terminal complete event
	// of a chat stream.
	Complete bool            `json:"complete,omitempty"`
	Sources  []models.Source `json:"sources,omitempty"`
	AsOf     string          `json:"as_of,omitempty"`
	Mode     string          `json:"mode,omitempty"`

	// Message describes an error event.
	Message string `json:"message,omitempty"`
}

const dataPrefix = "data: "

const doneSentinel = "[DONE]"

// DecodeLine parses one framed line into an event. The second return is false
// for lines that carry no event: lines without the "data: " prefix such as
// blank keep-alives, the [DONE] sentinel, and payloads that do not parse as
// JSON. The sentinel is consumed without effect; the transport closing is what
// actually ends a stream. A malformed payload is dropped so later valid lines
// still get through.
func DecodeLine(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, dataPrefix) {
		return Event{}, false
	}

	payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if payload == doneSentinel {
		return Event{}, false
	}

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, false
	}
	return ev, true
}
