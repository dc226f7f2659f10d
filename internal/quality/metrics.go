package quality

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/summarize"
)

// ExcerptIDsKey is the summary entry field listing the excerpts an insight cites.
const ExcerptIDsKey = "excerpts id"

// SummaryEvaluation contains the quality metrics of one generated summary
type SummaryEvaluation struct {
	Date     time.Time      `json:"date"`     // When the summary was generated
	Filters  string         `json:"filters"`  // Filter clauses of the prompt instructions
	Document string         `json:"document"` // Data section the summary was generated from
	Summary  map[string]any `json:"summary"`
	Type     core.Mode      `json:"type"`

	// Excerpt counts
	NbRetrieved   int `json:"nb_retrieved"`
	NbPrioritized int `json:"nb_prioritized"` // Excerpts that reached the prompt
	NbDisplayed   int `json:"nb_displayed"`   // Distinct excerpt ids cited by the summary

	// Cost
	ExecutionTime float64 `json:"execution_time,omitempty"` // Seconds spent generating the summary
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`

	// G-Eval scores
	Relevance   int `json:"relevance"`   // 1-5
	Coherence   int `json:"coherence"`   // 1-5
	Consistency int `json:"consistency"` // 1-5
	Fluency     int `json:"fluency"`     // 1-3

	// Quality assessment
	Warnings []string `json:"warnings,omitempty"`
	Passed   bool     `json:"passed"`
}

// Thresholds defines minimum acceptable scores
type Thresholds struct {
	MinRelevance   int
	MinCoherence   int
	MinConsistency int
	MinFluency     int
}

// DefaultThresholds returns the default score thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinRelevance:   3,
		MinCoherence:   3,
		MinConsistency: 3,
		MinFluency:     2,
	}
}

// DisplayedExcerptIDs returns the distinct excerpt ids cited by a summary,
// sorted. The contradictory reports entry of a primary summary is ignored.
func DisplayedExcerptIDs(mode core.Mode, content map[string]any) []string {
	seen := make(map[string]bool)
	var ids []string
	for key, value := range content {
		if mode == core.ModePrimary && key == summarize.ContradictoryReportsKey {
			continue
		}
		entry, ok := value.(map[string]any)
		if !ok {
			continue
		}
		for _, id := range splitIDs(entry[ExcerptIDsKey]) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// splitIDs reads a comma separated string, a number or a list of either
func splitIDs(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			if id := strings.TrimSpace(part); id != "" {
				out = append(out, id)
			}
		}
	case float64:
		out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
	case []any:
		for _, item := range t {
			out = append(out, splitIDs(item)...)
		}
	}
	return out
}

// check fills warnings and the pass/fail verdict
func (t Thresholds) check(ev *SummaryEvaluation) {
	scores := []struct {
		name  string
		score int
		min   int
	}{
		{"relevance", ev.Relevance, t.MinRelevance},
		{"coherence", ev.Coherence, t.MinCoherence},
		{"consistency", ev.Consistency, t.MinConsistency},
		{"fluency", ev.Fluency, t.MinFluency},
	}

	ev.Passed = true
	for _, s := range scores {
		if s.score < s.min {
			ev.Passed = false
			ev.Warnings = append(ev.Warnings, fmt.Sprintf("Low %s: %d (min: %d)", s.name, s.score, s.min))
		}
	}

	if ev.NbDisplayed == 0 {
		ev.Warnings = append(ev.Warnings, "Summary cites no excerpt ids")
	} else if ev.NbDisplayed > ev.NbPrioritized {
		ev.Warnings = append(ev.Warnings,
			fmt.Sprintf("Summary cites %d excerpts but only %d were in the prompt", ev.NbDisplayed, ev.NbPrioritized))
	}
}
