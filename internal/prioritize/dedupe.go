package prioritize

import (
	"fmt"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
)

type dedupeKey struct {
	learning  string
	component string
}

// Deduplicate removes duplicate excerpts, keeping the first occurrence.
// Primary summaries treat equal learning text as a duplicate; secondary
// summaries only when both the learning text and the component match.
func Deduplicate(excerpts []core.Excerpt, mode core.Mode) ([]core.Excerpt, error) {
	if err := mode.Validate(); err != nil {
		return nil, fmt.Errorf("deduplicate: %w", err)
	}

	seen := make(map[dedupeKey]bool, len(excerpts))
	out := make([]core.Excerpt, 0, len(excerpts))
	for _, e := range excerpts {
		key := dedupeKey{learning: e.Learning}
		if mode == core.ModeSecondary {
			key.component = e.Component
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out, nil
}
