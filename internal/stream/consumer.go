package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
)

// Stream settlement outcomes reported to an Observer.
const (
	OutcomeComplete = "complete"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// An Observer receives stream activity for metrics. Implementations must be
// safe for concurrent use; streams for different targets run at once.
type Observer interface {
	StreamOpened(path string)
	EventDecoded(path, eventType string)
	StreamSettled(path, outcome string)
}

// NopObserver ignores all stream activity.
type NopObserver struct{}

// StreamOpened implements Observer.
func (NopObserver) StreamOpened(string) {}

// EventDecoded implements Observer.
func (NopObserver) EventDecoded(string, string) {}

// StreamSettled implements Observer.
func (NopObserver) StreamSettled(string, string) {}

// Client consumes generation streams from the backend. Each call to Stream
// binds a fresh LineFramer to one open HTTP response and exposes the decoded
// events one at a time.
type Client struct {
	baseURL  string
	client   *http.Client
	observer Observer
}

// NewClient creates a Client for the generation backend at baseURL. A nil
// observer disables instrumentation.
func NewClient(baseURL string, observer Observer) Client {
	if observer == nil {
		observer = NopObserver{}
	}
	return Client{
		baseURL:  baseURL,
		client:   &http.Client{},
		observer: observer,
	}
}

// Stream opens one generation stream and yields its events in arrival order.
// The request posts body as JSON and names exactly one target; fanning out is
// done with one call per target so a failure stays contained to its own
// transport. A request that cannot be sent, a non-OK status, and a failed read
// all surface as a terminal error event: to the caller, a stream that never
// started looks the same as a stream that reported an error. Cancelling ctx
// stops the read without producing an event.
func (c Client) Stream(ctx context.Context, path string, body any) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			yield(errorEvent(fmt.Sprintf("error marshaling request: %v", err)))
			c.observer.StreamSettled(path, OutcomeError)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
		if err != nil {
			yield(errorEvent(fmt.Sprintf("error creating request: %v", err)))
			c.observer.StreamSettled(path, OutcomeError)
			return
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				c.observer.StreamSettled(path, OutcomeCanceled)
				return
			}
			yield(errorEvent(fmt.Sprintf("error sending request: %v", err)))
			c.observer.StreamSettled(path, OutcomeError)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			yield(errorEvent(fmt.Sprintf("unexpected status code: %d", resp.StatusCode)))
			c.observer.StreamSettled(path, OutcomeError)
			return
		}

		c.observer.StreamOpened(path)

		framer := &LineFramer{}
		buf := make([]byte, 4096)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				for _, line := range framer.Feed(buf[:n]) {
					ev, ok := DecodeLine(line)
					if !ok {
						continue
					}
					c.observer.EventDecoded(path, ev.Type)
					if !yield(ev) {
						c.observer.StreamSettled(path, OutcomeCanceled)
						return
					}
				}
			}
			if err != nil {
				switch {
				case errors.Is(err, io.EOF):
					c.observer.StreamSettled(path, OutcomeComplete)
				case errors.Is(err, context.Canceled):
					c.observer.StreamSettled(path, OutcomeCanceled)
				default:
					yield(errorEvent(fmt.Sprintf("error reading stream: %v", err)))
					c.observer.StreamSettled(path, OutcomeError)
				}
				return
			}
		}
	}
}

func errorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}
