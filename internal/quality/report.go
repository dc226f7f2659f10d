package quality

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const reportRule = "============================================================"

// FormatReport renders a plain-text quality report of evaluated summaries
func FormatReport(evals []*SummaryEvaluation) string {
	var b strings.Builder
	for _, ev := range evals {
		b.WriteString(reportRule + "\n")
		fmt.Fprintf(&b, "SUMMARY QUALITY REPORT: %s\n", ev.Type)
		b.WriteString(reportRule + "\n")
		fmt.Fprintf(&b, "Excerpts: %d retrieved, %d prioritized, %d cited\n", ev.NbRetrieved, ev.NbPrioritized, ev.NbDisplayed)
		fmt.Fprintf(&b, "Tokens: %d input, %d output\n", ev.InputTokens, ev.OutputTokens)
		if ev.ExecutionTime > 0 {
			fmt.Fprintf(&b, "Execution time: %.1fs\n", ev.ExecutionTime)
		}
		fmt.Fprintf(&b, "Relevance: %d/5\n", ev.Relevance)
		fmt.Fprintf(&b, "Coherence: %d/5\n", ev.Coherence)
		fmt.Fprintf(&b, "Consistency: %d/5\n", ev.Consistency)
		fmt.Fprintf(&b, "Fluency: %d/3\n", ev.Fluency)

		if len(ev.Warnings) > 0 {
			b.WriteString("\nWARNINGS:\n")
			for _, w := range ev.Warnings {
				fmt.Fprintf(&b, "  - %s\n", w)
			}
		} else {
			b.WriteString("\nNo issues detected\n")
		}
		b.WriteString(reportRule + "\n\n")
	}
	return b.String()
}

// Write saves evaluations as indented JSON keyed by summary type
func Write(path string, evals []*SummaryEvaluation) error {
	byType := make(map[string]*SummaryEvaluation, len(evals))
	for _, ev := range evals {
		byType[string(ev.Type)] = ev
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(byType); err != nil {
		return fmt.Errorf("failed to encode evaluation: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write evaluation to %s: %w", path, err)
	}
	return nil
}
