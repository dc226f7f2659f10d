package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/IFRCGo/extractor-operational-learnings/internal/prompt"
	"github.com/IFRCGo/extractor-operational-learnings/internal/quality"
)

// Evaluate scores the summaries of a run against the data sections of their
// prompts. date is when the summaries were generated. Modes without a summary
// in summaries are skipped. Execution time is only reported for summaries
// generated by this run.
func (p *Pipeline) Evaluate(ctx context.Context, result *Result, summaries map[core.Mode]map[string]any, date time.Time) ([]*quality.SummaryEvaluation, error) {
	if p.evaluator == nil {
		return nil, fmt.Errorf("%w: pipeline was built without an evaluator", core.ErrConfig)
	}

	var evals []*quality.SummaryEvaluation
	for _, mr := range result.Modes {
		content, ok := summaries[mr.Mode]
		if !ok {
			logger.Warn("No summary to evaluate", "mode", mr.Mode)
			continue
		}

		in := quality.Input{
			Mode:        mr.Mode,
			Date:        date,
			Filters:     prompt.FilterClauses(mr.Prompt),
			Document:    prompt.DataSection(mr.Prompt),
			Summary:     content,
			Retrieved:   result.Retrieved,
			Prioritized: mr.Prioritized,
		}
		if mr.Summary != nil {
			in.ExecutionTime = mr.Duration
		}

		ev, err := p.evaluator.Evaluate(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate %s summary: %w", mr.Mode, err)
		}
		evals = append(evals, ev)
	}
	return evals, nil
}

// SummaryContents collects the content of the summaries generated by a run
func SummaryContents(result *Result) map[core.Mode]map[string]any {
	contents := make(map[core.Mode]map[string]any)
	for _, mr := range result.Modes {
		if mr.Summary != nil {
			contents[mr.Mode] = mr.Summary.Content
		}
	}
	return contents
}
