package services_test

import (
	"testing"

	"github.com/vantageintel/vantage-web-ui/internal/models"
	"github.com/vantageintel/vantage-web-ui/internal/services"
)

func TestConversationStore(t *testing.T) {
	store := services.NewConversationStore()

	conv := models.NewConversation("c1")
	store.Add(conv)

	got, ok := store.Conversation("c1")
	if !ok {
		t.Fatal("Conversation() should find c1")
	}
	if got != conv {
		t.Error("Conversation() should return the stored handle, not a copy")
	}

	if _, ok := store.Conversation("missing"); ok {
		t.Error("Conversation() = true for an unknown ID, want false")
	}

	store.Remove("c1")
	if _, ok := store.Conversation("c1"); ok {
		t.Error("Conversation() = true after Remove(), want false")
	}
}
