package services

import (
	"sync"

	"github.com/vantageintel/vantage-web-ui/internal/models"
)

// ConversationStore keeps the live conversations in memory. Conversations
// exist only for the lifetime of the process; a restart starts the dashboard
// from a clean slate, so nothing here touches disk.
type ConversationStore struct {
	mu    sync.RWMutex
	convs map[string]*models.Conversation
}

// NewConversationStore creates an empty conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		convs: make(map[string]*models.Conversation),
	}
}

// Add registers conv under its ID, replacing any previous conversation with
// the same ID.
func (s *ConversationStore) Add(conv *models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ID()] = conv
}

// Conversation returns the conversation with the given ID, and whether it
// exists.
func (s *ConversationStore) Conversation(id string) (*models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[id]
	return conv, ok
}

// Remove drops the conversation with the given ID. Goroutines still holding
// the conversation keep a valid handle; their writes simply land on a
// conversation nobody can look up anymore.
func (s *ConversationStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, id)
}
