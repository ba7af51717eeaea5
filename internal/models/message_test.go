package models_test

import (
	"testing"

	"github.com/vantageintel/vantage-web-ui/internal/models"
)

func TestMessageStreamingState(t *testing.T) {
	tests := []struct {
		name string
		msg  models.Message
		want string
	}{
		{
			name: "no content yet",
			msg:  models.Message{Role: models.RoleAssistant},
			want: models.StreamingStateLoading,
		},
		{
			name: "tokens arriving",
			msg:  models.Message{Role: models.RoleAssistant, Content: "Rates "},
			want: models.StreamingStateStreaming,
		},
		{
			name: "finished",
			msg: models.Message{
				Role:     models.RoleAssistant,
				Content:  "Rates held steady.",
				Metadata: models.Metadata{Complete: true},
			},
			want: models.StreamingStateEnded,
		},
		{
			name: "finished with empty content",
			msg: models.Message{
				Role:     models.RoleAssistant,
				Metadata: models.Metadata{Complete: true, Error: "model unavailable"},
			},
			want: models.StreamingStateEnded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.StreamingState(); got != tt.want {
				t.Errorf("StreamingState() = %q, want %q", got, tt.want)
			}
		})
	}
}
