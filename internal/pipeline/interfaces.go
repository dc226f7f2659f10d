package pipeline

import (
	"context"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/quality"
)

// ExcerptSource retrieves the operational learnings matching a request filter
type ExcerptSource interface {
	// FetchOpsLearnings pages through the filtered ops-learning table
	FetchOpsLearnings(ctx context.Context, filter core.RequestFilter) ([]core.Excerpt, error)
}

// Contextualizer prefixes excerpts with their provenance
type Contextualizer interface {
	// Contextualize returns a copy of excerpts with rewritten learnings
	Contextualize(ctx context.Context, excerpts []core.Excerpt) ([]core.Excerpt, error)
}

// SummaryGenerator turns a prompt into a validated summary
type SummaryGenerator interface {
	// Summarize generates, validates and if needed regenerates a summary
	Summarize(ctx context.Context, mode core.Mode, prompt string) (*core.Summary, error)
}

// SummaryStore keeps validated summaries (optional)
type SummaryStore interface {
	// SaveSummary persists a summary and returns its content digest
	SaveSummary(summary core.Summary) (string, error)
}

// SummaryEvaluator scores a generated summary (optional)
type SummaryEvaluator interface {
	// Evaluate counts excerpts and tokens and asks the evaluator model for scores
	Evaluate(ctx context.Context, in quality.Input) (*quality.SummaryEvaluation, error)
}
