package summarize

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
)

// TracedSummarizer wraps a Summarizer and logs entry-level metrics of every
// validated summary
type TracedSummarizer struct {
	summarizer *Summarizer
	runID      string
}

// NewTracedSummarizer creates a summarizer with metric logging
func NewTracedSummarizer(summarizer *Summarizer, runID string) *TracedSummarizer {
	return &TracedSummarizer{
		summarizer: summarizer,
		runID:      runID,
	}
}

// Summarize wraps the summarizer with tracking
func (t *TracedSummarizer) Summarize(ctx context.Context, mode core.Mode, prompt string) (*core.Summary, error) {
	startTime := time.Now()
	summary, err := t.summarizer.Summarize(ctx, mode, prompt)
	latency := time.Since(startTime).Milliseconds()

	if err != nil {
		logger.Warn("Summary failed", "run_id", t.runID, "mode", mode, "latency_ms", latency, "error", err.Error())
		return nil, err
	}

	metrics := Measure(mode, summary.Content)
	logger.Info("Summary generated",
		"run_id", t.runID,
		"mode", mode,
		"model", summary.ModelUsed,
		"attempts", summary.Attempts,
		"repaired", summary.Repaired,
		"latency_ms", latency,
		"entries", metrics.Entries,
		"contradictory_reports", metrics.HasContradictions,
		"avg_confidence", metrics.AverageConfidence,
		"content_words", metrics.Words,
	)

	return summary, nil
}

// Metrics describes the content of a validated summary
type Metrics struct {
	Entries           int     // Insights (primary) or sector/component entries (secondary)
	HasContradictions bool    // Primary only
	AverageConfidence float64 // Mean of the N in "N/5", 0 when none parse
	Words             int     // Words across all content fields
}

// Measure computes Metrics for summary content
func Measure(mode core.Mode, content map[string]any) Metrics {
	var m Metrics
	var confidences []float64

	for key, value := range content {
		if mode == core.ModePrimary && key == ContradictoryReportsKey {
			m.HasContradictions = !isBlank(value)
			continue
		}
		entry, ok := value.(map[string]any)
		if !ok {
			continue
		}
		m.Entries++
		if text, ok := entry["content"].(string); ok {
			m.Words += wordCount(text)
		}
		if level, ok := entry["confidence level"].(string); ok {
			if c, ok := parseConfidence(level); ok {
				confidences = append(confidences, c)
			}
		}
	}

	if len(confidences) > 0 {
		total := 0.0
		for _, c := range confidences {
			total += c
		}
		m.AverageConfidence = total / float64(len(confidences))
	}
	return m
}

// parseConfidence reads the N of an "N/5" confidence level
func parseConfidence(level string) (float64, bool) {
	n, _, found := strings.Cut(strings.TrimSpace(level), "/")
	if !found {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
