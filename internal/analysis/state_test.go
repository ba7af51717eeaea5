package analysis_test

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/vantageintel/vantage-web-ui/internal/analysis"
	"github.com/vantageintel/vantage-web-ui/internal/stream"
)

func TestStateMergePerspectives(t *testing.T) {
	tests := []struct {
		name   string
		deltas []map[string][]string
		want   map[string][]string
	}{
		{
			name:   "single delta",
			deltas: []map[string][]string{{"democrat": {"Point A"}}},
			want:   map[string][]string{"democrat": {"Point A"}},
		},
		{
			name: "deltas for different targets union",
			deltas: []map[string][]string{
				{"democrat": {"Point A"}},
				{"republican": {"Point B", "Point C"}},
			},
			want: map[string][]string{
				"democrat":   {"Point A"},
				"republican": {"Point B", "Point C"},
			},
		},
		{
			name: "same target overwrites its own key only",
			deltas: []map[string][]string{
				{"democrat": {"Old"}, "independent": {"Kept"}},
				{"democrat": {"New"}},
			},
			want: map[string][]string{
				"democrat":    {"New"},
				"independent": {"Kept"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := analysis.NewState()
			for _, delta := range tt.deltas {
				state.MergePerspectives(delta)
			}
			if got := state.Snapshot().Perspectives; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Perspectives = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStateMergeOrderIndependence(t *testing.T) {
	points := map[string][]string{
		"democrat":    {"Point A", "Point B"},
		"republican":  {"Point C"},
		"independent": {"Point D", "Point E"},
	}

	orders := [][]string{
		{"democrat", "republican", "independent"},
		{"democrat", "independent", "republican"},
		{"republican", "democrat", "independent"},
		{"republican", "independent", "democrat"},
		{"independent", "democrat", "republican"},
		{"independent", "republican", "democrat"},
	}

	for _, order := range orders {
		t.Run(strings.Join(order, "-"), func(t *testing.T) {
			state := analysis.NewState()
			for _, target := range order {
				state.MergePerspectives(map[string][]string{target: points[target]})
			}
			if got := state.Snapshot().Perspectives; !reflect.DeepEqual(got, points) {
				t.Errorf("Perspectives = %v, want %v", got, points)
			}
		})
	}
}

func TestStateApply(t *testing.T) {
	existing := map[string][]string{"democrat": {"Existing"}}

	tests := []struct {
		name             string
		ev               stream.Event
		wantPerspectives map[string][]string
		wantErr          string
	}{
		{
			name: "complete event merges its payload",
			ev: stream.Event{
				Type:         stream.EventComplete,
				Perspectives: map[string][]string{"republican": {"Point C"}},
			},
			wantPerspectives: map[string][]string{
				"democrat":   {"Existing"},
				"republican": {"Point C"},
			},
		},
		{
			name:             "complete event without perspectives changes nothing",
			ev:               stream.Event{Type: stream.EventComplete, Complete: true},
			wantPerspectives: existing,
		},
		{
			name:             "error event fills the error slot only",
			ev:               stream.Event{Type: stream.EventError, Message: "model unavailable"},
			wantPerspectives: existing,
			wantErr:          "model unavailable",
		},
		{
			name:             "error event without message gets a fallback",
			ev:               stream.Event{Type: stream.EventError},
			wantPerspectives: existing,
			wantErr:          "stream error",
		},
		{
			name:             "token event is a no-op",
			ev:               stream.Event{Type: stream.EventToken, Content: "x"},
			wantPerspectives: existing,
		},
		{
			name:             "unknown event type is a no-op",
			ev:               stream.Event{Type: "heartbeat"},
			wantPerspectives: existing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := analysis.NewState()
			state.MergePerspectives(map[string][]string{"democrat": {"Existing"}})

			state.Apply(tt.ev)

			if got := state.Snapshot().Perspectives; !reflect.DeepEqual(got, tt.wantPerspectives) {
				t.Errorf("Perspectives = %v, want %v", got, tt.wantPerspectives)
			}
			if got := state.Error(); got != tt.wantErr {
				t.Errorf("Error() = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestStateSectionsSurviveMerges(t *testing.T) {
	state := analysis.NewState()
	state.MergeSections(analysis.Sections{
		Insights:   []string{"Turnout will decide the margin"},
		Signals:    []string{"politics", "Reuters"},
		Commentary: "Early and contested.",
		Timeframes: map[string]string{"short": "volatile"},
	})

	state.MergePerspectives(map[string][]string{"democrat": {"Point A"}})
	state.MergePerspectives(map[string][]string{"republican": {"Point B"}})
	state.SetError("republican stream flaked")

	got := state.Snapshot()
	if want := []string{"Turnout will decide the margin"}; !reflect.DeepEqual(got.Insights, want) {
		t.Errorf("Insights = %v, want %v", got.Insights, want)
	}
	if want := []string{"politics", "Reuters"}; !reflect.DeepEqual(got.Signals, want) {
		t.Errorf("Signals = %v, want %v", got.Signals, want)
	}
	if got.Commentary != "Early and contested." {
		t.Errorf("Commentary = %q", got.Commentary)
	}
	if want := map[string]string{"short": "volatile"}; !reflect.DeepEqual(got.Timeframes, want) {
		t.Errorf("Timeframes = %v, want %v", got.Timeframes, want)
	}
	if len(got.Perspectives) != 2 {
		t.Errorf("Perspectives has %d targets, want 2", len(got.Perspectives))
	}
}

func TestStateConcurrentMerges(t *testing.T) {
	state := analysis.NewState()

	const writers = 16
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			target := fmt.Sprintf("target-%d", i)
			state.MergePerspectives(map[string][]string{target: {"point"}})
		}()
	}
	wg.Wait()

	if got := len(state.Snapshot().Perspectives); got != writers {
		t.Errorf("Perspectives has %d targets after concurrent merges, want %d", got, writers)
	}
}

func TestStateSnapshotIsolation(t *testing.T) {
	state := analysis.NewState()
	state.MergePerspectives(map[string][]string{"democrat": {"Point A"}})

	snap := state.Snapshot()
	state.MergePerspectives(map[string][]string{"democrat": {"Overwritten"}})

	if want := []string{"Point A"}; !reflect.DeepEqual(snap.Perspectives["democrat"], want) {
		t.Errorf("snapshot mutated by later merge: %v, want %v", snap.Perspectives["democrat"], want)
	}
}
