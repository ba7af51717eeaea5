// Package analysis assembles concurrently streamed perspective generations
// into one shared structured analysis per article.
package analysis

// DefaultTargets are the perspective lenses the dashboard requests when the
// configuration names none.
var DefaultTargets = []string{"democrat", "republican", "independent"}

// StructuredAnalysis is the merged result of all generation streams for one
// article. Perspectives fills in one target key at a time as streams complete;
// the remaining sections are populated independently and must survive
// perspective merges untouched.
type StructuredAnalysis struct {
	Perspectives map[string][]string `json:"perspectives"`
	Insights     []string            `json:"insights,omitempty"`
	Geopolitics  []string            `json:"geopolitics,omitempty"`
	Market       []string            `json:"market,omitempty"`
	Risks        []string            `json:"risks,omitempty"`
	Signals      []string            `json:"signals,omitempty"`
	Commentary   string              `json:"commentary,omitempty"`
	Timeframes   map[string]string   `json:"timeframes,omitempty"`
}

// Sections carries the non-perspective parts of a structured analysis.
type Sections struct {
	Insights    []string
	Geopolitics []string
	Market      []string
	Risks       []string
	Signals     []string
	Commentary  string
	Timeframes  map[string]string
}
