package stream_test

import (
	"slices"
	"testing"

	"github.com/vantageintel/vantage-web-ui/internal/stream"
)

func TestLineFramerFeed(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []string
	}{
		{
			name:   "single terminated line",
			chunks: []string{"data: {\"type\":\"token\"}\n"},
			want:   []string{"data: {\"type\":\"token\"}"},
		},
		{
			name:   "multiple lines in one chunk",
			chunks: []string{"first\nsecond\nthird\n"},
			want:   []string{"first", "second", "third"},
		},
		{
			name:   "tail carried across chunks",
			chunks: []string{"data: {\"ty", "pe\":\"token\"}\nnext"},
			want:   []string{"data: {\"type\":\"token\"}"},
		},
		{
			name:   "carried tail completed by later chunk",
			chunks: []string{"partial", " line", " done\n"},
			want:   []string{"partial line done"},
		},
		{
			name:   "unterminated tail is never emitted",
			chunks: []string{"no newline here"},
			want:   nil,
		},
		{
			name:   "empty chunk",
			chunks: []string{""},
			want:   nil,
		},
		{
			name:   "blank line",
			chunks: []string{"\n"},
			want:   []string{""},
		},
		{
			name:   "multi-byte rune split across chunks",
			chunks: []string{"caf", "\xc3", "\xa9\n"},
			want:   []string{"café"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			framer := &stream.LineFramer{}
			var got []string
			for _, chunk := range tt.chunks {
				got = append(got, framer.Feed([]byte(chunk))...)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Feed() lines = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLineFramerSplitInvariance(t *testing.T) {
	const line = "data: {\"type\":\"token\",\"content\":\"naïve 日本語 🗞\"}\n"

	whole := &stream.LineFramer{}
	want := whole.Feed([]byte(line))

	for i := 1; i < len(line); i++ {
		framer := &stream.LineFramer{}
		got := framer.Feed([]byte(line[:i]))
		got = append(got, framer.Feed([]byte(line[i:]))...)
		if !slices.Equal(got, want) {
			t.Errorf("split at byte %d: lines = %q, want %q", i, got, want)
		}
	}
}
