package quality

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/llm"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/IFRCGo/extractor-operational-learnings/internal/tokenizer"
)

// SummaryEvaluator scores generated summaries with G-Eval prompts
type SummaryEvaluator struct {
	generator  llm.Generator
	counter    tokenizer.Counter
	thresholds Thresholds
}

// NewSummaryEvaluator creates a new evaluator with default thresholds
func NewSummaryEvaluator(generator llm.Generator, counter tokenizer.Counter) *SummaryEvaluator {
	return NewSummaryEvaluatorWithThresholds(generator, counter, DefaultThresholds())
}

// NewSummaryEvaluatorWithThresholds creates an evaluator with custom thresholds
func NewSummaryEvaluatorWithThresholds(generator llm.Generator, counter tokenizer.Counter, thresholds Thresholds) *SummaryEvaluator {
	return &SummaryEvaluator{
		generator:  generator,
		counter:    counter,
		thresholds: thresholds,
	}
}

// Input is one summary together with the prompt data it was generated from
type Input struct {
	Mode          core.Mode
	Date          time.Time
	Filters       string
	Document      string
	Summary       map[string]any
	Retrieved     int
	Prioritized   int
	ExecutionTime time.Duration // Zero when unknown
}

// Evaluate counts excerpts and tokens and scores the summary on every metric.
// An empty summary is not sent to the model; it fails with a warning.
func (e *SummaryEvaluator) Evaluate(ctx context.Context, in Input) (*SummaryEvaluation, error) {
	content := in.Summary
	if content == nil {
		content = map[string]any{}
	}

	summaryText, err := encodeSummary(content)
	if err != nil {
		return nil, err
	}

	ev := &SummaryEvaluation{
		Date:          in.Date,
		Filters:       in.Filters,
		Document:      in.Document,
		Summary:       content,
		Type:          in.Mode,
		NbRetrieved:   in.Retrieved,
		NbPrioritized: in.Prioritized,
		NbDisplayed:   len(DisplayedExcerptIDs(in.Mode, content)),
		ExecutionTime: in.ExecutionTime.Seconds(),
		InputTokens:   e.counter.Count(in.Document),
		OutputTokens:  e.counter.Count(summaryText),
	}

	if len(content) == 0 {
		ev.Warnings = append(ev.Warnings, "Empty summary, scoring skipped")
		return ev, nil
	}

	for _, m := range Metrics {
		score, err := e.Score(ctx, m, in.Document, summaryText)
		if err != nil {
			return nil, fmt.Errorf("failed to score %s of %s summary: %w", m.Name, in.Mode, err)
		}
		switch m.Name {
		case MetricRelevance:
			ev.Relevance = score
		case MetricCoherence:
			ev.Coherence = score
		case MetricConsistency:
			ev.Consistency = score
		case MetricFluency:
			ev.Fluency = score
		}
	}

	e.thresholds.check(ev)
	logger.Info("Evaluated summary",
		"mode", in.Mode,
		"relevance", ev.Relevance,
		"coherence", ev.Coherence,
		"consistency", ev.Consistency,
		"fluency", ev.Fluency,
		"displayed", ev.NbDisplayed,
		"passed", ev.Passed)
	return ev, nil
}

// Score asks the evaluator model for one metric
func (e *SummaryEvaluator) Score(ctx context.Context, m Metric, document, summary string) (int, error) {
	response, err := e.generator.Generate(ctx, []llm.Message{
		{Role: llm.RoleUser, Text: EvaluationPrompt(m, document, summary)},
	})
	if err != nil {
		return 0, err
	}
	return ParseScore(response, m.MaxScore)
}

func encodeSummary(content map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(content); err != nil {
		return "", fmt.Errorf("%w: failed to encode summary: %v", core.ErrParse, err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
