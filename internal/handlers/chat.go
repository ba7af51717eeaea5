package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"
	"github.com/vantageintel/vantage-web-ui/internal/models"
	"github.com/vantageintel/vantage-web-ui/internal/stream"
)

type chatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	Mode           string `json:"mode,omitempty"`
}

type conversationResponse struct {
	ConversationID string        `json:"conversationId"`
	Title          string        `json:"title,omitempty"`
	Messages       []messageView `json:"messages"`
}

type messageView struct {
	ID             string          `json:"id"`
	Role           string          `json:"role"`
	Content        string          `json:"content"`
	HTML           string          `json:"html,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	StreamingState string          `json:"streamingState"`
	Metadata       models.Metadata `json:"metadata"`
}

// messagesSSEType labels re-broadcast message updates.
var messagesSSEType = sse.Type("messages")

const titleMaxLen = 80

// HandleChats accepts a user message, appends it together with a placeholder
// assistant message, and assembles the generation stream into the
// conversation asynchronously. The response returns both new messages
// immediately; the placeholder reports the loading state until its first
// token lands and clients follow the rest over SSE.
//
// An empty conversationId creates a new conversation; an unknown one is a
// not-found error, since conversations live only in memory.
func (m Main) HandleChats(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.logger.Error("Failed to decode chat request", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		m.logger.Error("Message is required")
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	var conv *models.Conversation
	if req.ConversationID == "" {
		conv = models.NewConversation(uuid.New().String())
		m.conversations.Add(conv)
	} else {
		var ok bool
		conv, ok = m.conversations.Conversation(req.ConversationID)
		if !ok {
			m.logger.Error("Conversation not found", slog.String("conversationID", req.ConversationID))
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
	}

	// We create two messages: the user's input and a placeholder the stream
	// assembles into
	um := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleUser,
		Content:   req.Message,
		CreatedAt: time.Now(),
		Metadata:  models.Metadata{Complete: true},
	}
	conv.Append(um)

	am := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleAssistant,
		CreatedAt: time.Now(),
	}
	conv.Append(am)

	if conv.Title() == "" {
		conv.SetTitle(conversationTitle(req.Message))
	}

	go m.assemble(conv, am.ID, req.Mode)

	views, err := messageViews([]models.Message{um, am})
	if err != nil {
		m.logger.Error("Failed to render messages", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, http.StatusOK, conversationResponse{
		ConversationID: conv.ID(),
		Title:          conv.Title(),
		Messages:       views,
	})
}

// HandleDeleteChat drops a conversation and its server-side handle. The
// conversation is cleared first, so an assembler still streaming into it
// stops at its next update.
func (m Main) HandleDeleteChat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	conv, ok := m.conversations.Conversation(id)
	if !ok {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	conv.Clear()
	m.conversations.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

// HandleConversationMessages returns the conversation snapshot, with
// assistant markdown rendered to HTML.
func (m Main) HandleConversationMessages(w http.ResponseWriter, r *http.Request) {
	conv, ok := m.conversations.Conversation(r.PathValue("id"))
	if !ok {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	views, err := messageViews(conv.Messages())
	if err != nil {
		m.logger.Error("Failed to render messages", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, http.StatusOK, conversationResponse{
		ConversationID: conv.ID(),
		Title:          conv.Title(),
		Messages:       views,
	})
}

// assemble consumes one chat generation stream and folds it into the
// placeholder assistant message. Token events append to the content, the
// complete event seals the message with its citations, and an error event
// marks the message failed; each change is re-broadcast on the message's
// topic. A conversation cleared mid-stream simply stops the assembler, and
// with no terminal event the message is sealed as-is when the stream ends.
func (m Main) assemble(conv *models.Conversation, messageID, mode string) {
	// Ensure SSE listeners for this message are released on exit
	defer func() {
		e := &sse.Message{Type: sse.Type("closeMessage")}
		e.AppendData("bye")
		_ = m.sseSrv.Publish(e, messageIDTopic(messageID))
	}()

	var history []generationMessage
	for _, msg := range conv.Messages() {
		if msg.ID == messageID || msg.Content == "" {
			continue
		}
		history = append(history, generationMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	body := chatGenerationRequest{Messages: history, Mode: mode}

	completed := false
	for ev := range m.assembler.Stream(context.Background(), "/api/generate/chat", body) {
		var found bool
		switch ev.Type {
		case stream.EventToken:
			found = conv.UpdateByID(messageID, func(msg *models.Message) {
				msg.Content += ev.Content
			})
		case stream.EventComplete:
			completed = true
			found = conv.UpdateByID(messageID, func(msg *models.Message) {
				msg.Metadata.Complete = true
				msg.Metadata.Sources = ev.Sources
				msg.Metadata.AsOf = ev.AsOf
				msg.Metadata.Mode = ev.Mode
			})
		case stream.EventError:
			m.logger.Error("Chat stream failed",
				slog.String("messageID", messageID),
				slog.String(errLoggerKey, ev.Message))
			completed = true
			found = conv.UpdateByID(messageID, func(msg *models.Message) {
				msg.Metadata.Complete = true
				msg.Metadata.Error = ev.Message
			})
		default:
			continue
		}

		if !found {
			return
		}
		m.publishMessage(conv, messageID)
	}

	if !completed {
		if conv.UpdateByID(messageID, func(msg *models.Message) {
			msg.Metadata.Complete = true
		}) {
			m.publishMessage(conv, messageID)
		}
	}
}

// publishMessage re-broadcasts one message's current state on its topic.
func (m Main) publishMessage(conv *models.Conversation, messageID string) {
	msg, ok := conv.Message(messageID)
	if !ok {
		return
	}

	view, err := messageViewOf(msg)
	if err != nil {
		m.logger.Error("Failed to render message",
			slog.String("messageID", messageID),
			slog.String(errLoggerKey, err.Error()))
		return
	}
	payload, err := json.Marshal(view)
	if err != nil {
		m.logger.Error("Failed to marshal message",
			slog.String("messageID", messageID),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	e := sse.Message{Type: messagesSSEType}
	e.AppendData(string(payload))
	if err := m.sseSrv.Publish(&e, messageIDTopic(messageID)); err != nil {
		m.logger.Error("Failed to publish message",
			slog.String("messageID", messageID),
			slog.String(errLoggerKey, err.Error()))
	}
}

func messageViews(messages []models.Message) ([]messageView, error) {
	views := make([]messageView, len(messages))
	for i, msg := range messages {
		view, err := messageViewOf(msg)
		if err != nil {
			return nil, err
		}
		views[i] = view
	}
	return views, nil
}

func messageViewOf(msg models.Message) (messageView, error) {
	view := messageView{
		ID:             msg.ID,
		Role:           string(msg.Role),
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
		StreamingState: msg.StreamingState(),
		Metadata:       msg.Metadata,
	}

	if msg.Role == models.RoleAssistant && msg.Content != "" {
		html, err := models.RenderMarkdown(msg.Content)
		if err != nil {
			return messageView{}, fmt.Errorf("failed to render markdown: %w", err)
		}
		view.HTML = html
	}
	return view, nil
}

func conversationTitle(message string) string {
	title := strings.Join(strings.Fields(message), " ")
	if runes := []rune(title); len(runes) > titleMaxLen {
		title = string(runes[:titleMaxLen])
	}
	return title
}
