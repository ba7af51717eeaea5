package analysis

import (
	"maps"
	"sync"

	"github.com/vantageintel/vantage-web-ui/internal/stream"
)

// State holds the merged analysis for one article, with an error slot kept
// beside it. Every mutation derives from the value current while the lock is
// held, so consumers that finish in overlapping turns cannot drop each other's
// contributions; a merge computed from a stale read is impossible by
// construction.
type State struct {
	mu       sync.RWMutex
	analysis StructuredAnalysis
	errMsg   string
}

// NewState returns an empty analysis state.
func NewState() *State {
	return &State{}
}

// Apply folds one decoded stream event into the state. Complete events merge
// their perspective payload, error events fill the error slot, and events of
// any other type change nothing.
func (s *State) Apply(ev stream.Event) {
	switch ev.Type {
	case stream.EventComplete:
		if len(ev.Perspectives) > 0 {
			s.MergePerspectives(ev.Perspectives)
		}
	case stream.EventError:
		message := ev.Message
		if message == "" {
			message = "stream error"
		}
		s.SetError(message)
	}
}

// MergePerspectives folds one stream's delta into the shared analysis. The
// merge is a union at the target-key level: targets absent from the delta and
// all non-perspective sections pass through untouched, so the final map is the
// same no matter which order the streams complete in.
func (s *State) MergePerspectives(delta map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.analysis.Perspectives)
	if next == nil {
		next = make(map[string][]string, len(delta))
	}
	maps.Copy(next, delta)
	s.analysis.Perspectives = next
}

// MergeSections fills the non-perspective sections of the analysis. Zero
// fields of sections leave the corresponding state untouched.
func (s *State) MergeSections(sections Sections) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sections.Insights) > 0 {
		s.analysis.Insights = sections.Insights
	}
	if len(sections.Geopolitics) > 0 {
		s.analysis.Geopolitics = sections.Geopolitics
	}
	if len(sections.Market) > 0 {
		s.analysis.Market = sections.Market
	}
	if len(sections.Risks) > 0 {
		s.analysis.Risks = sections.Risks
	}
	if len(sections.Signals) > 0 {
		s.analysis.Signals = sections.Signals
	}
	if sections.Commentary != "" {
		s.analysis.Commentary = sections.Commentary
	}
	if len(sections.Timeframes) > 0 {
		s.analysis.Timeframes = sections.Timeframes
	}
}

// SetError records a stream failure. The error slot is a side channel: it
// never touches perspectives, so a failed target cannot clobber completed
// ones.
func (s *State) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = message
}

// Error returns the last recorded stream failure, if any.
func (s *State) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Snapshot returns a copy of the merged analysis safe to serialize while
// streams are still writing.
func (s *State) Snapshot() StructuredAnalysis {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.analysis
	out.Perspectives = maps.Clone(s.analysis.Perspectives)
	out.Timeframes = maps.Clone(s.analysis.Timeframes)
	return out
}
