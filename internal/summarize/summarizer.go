package summarize

import (
	"context"
	"fmt"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/llm"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/google/uuid"
)

// Summarizer generates and validates summaries.
type Summarizer struct {
	generator llm.Generator
	validator *Validator
	options   SummarizerOptions
}

// SummarizerOptions configures the summarizer behavior
type SummarizerOptions struct {
	SystemMessage string

	// Retry settings
	MaxAttempts int
	RetryDelay  time.Duration
}

// DefaultSummarizerOptions returns the defaults used by the summarize command
func DefaultSummarizerOptions() SummarizerOptions {
	return SummarizerOptions{
		MaxAttempts: 3,
		RetryDelay:  time.Second,
	}
}

// NewSummarizer creates a new summarizer with the given generator
func NewSummarizer(generator llm.Generator, options SummarizerOptions) (*Summarizer, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, err
	}
	if options.MaxAttempts <= 0 {
		options.MaxAttempts = DefaultSummarizerOptions().MaxAttempts
	}
	return &Summarizer{
		generator: generator,
		validator: validator,
		options:   options,
	}, nil
}

// Summarize sends the prompt and validates the response, regenerating with the
// same prompt until a response validates or MaxAttempts is reached. Exhaustion
// returns an error wrapping core.ErrValidation; the last generation error is
// returned instead when the final attempt could not reach the model.
func (s *Summarizer) Summarize(ctx context.Context, mode core.Mode, prompt string) (*core.Summary, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}

	messages := llm.SummaryConversation(s.options.SystemMessage, prompt)

	var lastErr error
	for attempt := 1; attempt <= s.options.MaxAttempts; attempt++ {
		raw, err := s.generator.Generate(ctx, messages)
		if err != nil {
			lastErr = err
			logger.Warn("Summary generation failed", "mode", mode, "attempt", attempt, "error", err.Error())
		} else {
			outcome := s.validator.Check(mode, raw)
			if outcome.State == StateValid {
				logger.Info("Validation of summary successful", "mode", mode, "attempt", attempt, "repaired", outcome.Repaired)
				return &core.Summary{
					ID:            uuid.NewString(),
					Mode:          mode,
					Content:       outcome.Content,
					ModelUsed:     s.generator.Model(),
					Attempts:      attempt,
					Repaired:      outcome.Repaired,
					DateGenerated: time.Now(),
				}, nil
			}
			lastErr = fmt.Errorf("%w: %s", core.ErrValidation, outcome.Reason)
			logger.Warn("Summary failed validation", "mode", mode, "attempt", attempt, "max_attempts", s.options.MaxAttempts, "reason", outcome.Reason)
		}

		if attempt < s.options.MaxAttempts {
			if err := sleep(ctx, s.options.RetryDelay); err != nil {
				return nil, err
			}
		}
	}

	logger.Error("Failed to get valid output from LLM after maximum retries", lastErr, "mode", mode, "attempts", s.options.MaxAttempts)
	return nil, fmt.Errorf("%s summary after %d attempts: %w", mode, s.options.MaxAttempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
