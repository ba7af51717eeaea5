package models

import (
	"slices"
	"sync"
)

// Conversation is an ordered sequence of messages; insertion order is display
// order. New messages are appended at the end, and an in-flight assistant
// message is looked up by ID and mutated in place, never re-inserted.
//
// All methods are safe for concurrent use. UpdateByID runs its mutator under
// the lock, so every update derives from the message value current at that
// moment; concurrent writers cannot overwrite each other with stale copies.
type Conversation struct {
	mu       sync.RWMutex
	id       string
	title    string
	messages []Message
}

// NewConversation returns an empty conversation with the given ID.
func NewConversation(id string) *Conversation {
	return &Conversation{id: id}
}

// ID returns the conversation's unique identifier.
func (c *Conversation) ID() string {
	return c.id
}

// Title returns the conversation's display title.
func (c *Conversation) Title() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.title
}

// SetTitle sets the conversation's display title.
func (c *Conversation) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.title = title
}

// Append adds msg at the end of the conversation.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// UpdateByID applies fn to the message with the given ID and reports whether
// the message was found. The mutator receives a pointer to the stored message
// and runs under the conversation lock.
func (c *Conversation) UpdateByID(id string, fn func(*Message)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages {
		if c.messages[i].ID == id {
			fn(&c.messages[i])
			return true
		}
	}
	return false
}

// Message returns a copy of the message with the given ID.
func (c *Conversation) Message(id string) (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.messages {
		if c.messages[i].ID == id {
			return c.messages[i], true
		}
	}
	return Message{}, false
}

// Messages returns a snapshot of all messages in display order.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.messages)
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Clear removes all messages so the conversation starts over.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}
