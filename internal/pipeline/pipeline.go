package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/cost"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/IFRCGo/extractor-operational-learnings/internal/preferences"
	"github.com/IFRCGo/extractor-operational-learnings/internal/prioritize"
	"github.com/IFRCGo/extractor-operational-learnings/internal/prompt"
	"github.com/IFRCGo/extractor-operational-learnings/internal/tabular"
	"github.com/IFRCGo/extractor-operational-learnings/internal/tokenizer"
	"github.com/google/uuid"
)

// Pipeline orchestrates the summarization workflow: fetch, deduplicate,
// contextualize, prioritize, budget, prompt, generate and persist.
type Pipeline struct {
	// Core components
	source         ExcerptSource
	contextualizer Contextualizer
	summarizer     SummaryGenerator
	counter        tokenizer.Counter
	store          SummaryStore     // Optional
	evaluator      SummaryEvaluator // Optional, scores summaries on request

	// Configuration
	config  *Config
	closers []func() error
}

// Config holds pipeline configuration
type Config struct {
	RunID           string // Generated per run when empty
	PromptDataLimit int
	Templates       prompt.Templates
	Preferences     preferences.Lists
}

// DefaultConfig returns the default configuration with empty templates and lists
func DefaultConfig() *Config {
	return &Config{
		PromptDataLimit: 5000,
	}
}

// NewPipeline creates a new pipeline with all dependencies
func NewPipeline(
	source ExcerptSource,
	contextualizer Contextualizer,
	summarizer SummaryGenerator,
	counter tokenizer.Counter,
	store SummaryStore,
	config *Config,
) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}

	return &Pipeline{
		source:         source,
		contextualizer: contextualizer,
		summarizer:     summarizer,
		counter:        counter,
		store:          store,
		config:         config,
	}
}

// Options configures one summarization run
type Options struct {
	Filter        core.RequestFilter
	InputPath     string // Offline excerpt table used instead of the GO API
	PrimaryPath   string
	SecondaryPath string
	ExportDir     string // Intermediate tables are written here when set
	DryRun        bool   // Stop after prompt assembly
}

// ModeResult is the outcome of one summary mode
type ModeResult struct {
	Mode        core.Mode
	Prioritized int
	Prompt      string
	Summary     *core.Summary
	Digest      string
	Path        string
	Duration    time.Duration // Generation and validation time
	Err         error         // Validation failure, the run itself continues
}

// Result contains the output of a run
type Result struct {
	RunID     string
	Retrieved int
	Modes     []ModeResult
	Stats     ProcessingStats
}

// ProcessingStats tracks pipeline execution metrics
type ProcessingStats struct {
	StartTime      time.Time
	EndTime        time.Time
	ProcessingTime time.Duration
}

// Mode returns the result of one mode, nil if it did not run
func (r *Result) Mode(mode core.Mode) *ModeResult {
	for i := range r.Modes {
		if r.Modes[i].Mode == mode {
			return &r.Modes[i]
		}
	}
	return nil
}

// Run executes the full summarization pipeline. Transport, parse and config
// errors abort the run; a summary that never validates is reported in its
// ModeResult and the other summary still runs.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	runID := p.config.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	result := &Result{
		RunID: runID,
		Stats: ProcessingStats{StartTime: start},
	}
	logger.Info("Starting the summarization process", "run_id", result.RunID)

	// Step 1: Retrieve excerpts
	raw, err := p.retrieve(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Retrieved = len(raw)
	logger.Info("Queried and filtered learnings", "count", len(raw))
	if err := p.export(opts.ExportDir, "filtered_learnings.csv", raw); err != nil {
		return nil, err
	}

	// Step 2: Contextualize once, reused by both modes
	contextualized, err := p.contextualizer.Contextualize(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to contextualize learnings: %w", err)
	}
	logger.Info("Contextualized the learnings")
	if err := p.export(opts.ExportDir, "contextualized_learnings.csv", contextualized); err != nil {
		return nil, err
	}

	// Step 3: One summary per mode
	outputs := map[core.Mode]string{
		core.ModePrimary:   opts.PrimaryPath,
		core.ModeSecondary: opts.SecondaryPath,
	}
	for _, mode := range []core.Mode{core.ModePrimary, core.ModeSecondary} {
		mr, err := p.runMode(ctx, result.RunID, mode, opts, raw, contextualized, outputs[mode])
		if err != nil {
			return nil, err
		}
		result.Modes = append(result.Modes, *mr)
	}

	result.Stats.EndTime = time.Now()
	result.Stats.ProcessingTime = result.Stats.EndTime.Sub(start)
	logger.Info("Complete summarization process done", "run_id", result.RunID, "duration", result.Stats.ProcessingTime)
	return result, nil
}

// Close releases the store
func (p *Pipeline) Close() error {
	var firstErr error
	for _, closeFn := range p.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Pipeline) retrieve(ctx context.Context, opts Options) ([]core.Excerpt, error) {
	if opts.InputPath != "" {
		excerpts, err := tabular.ReadExcerptsFile(opts.InputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read learnings: %w", err)
		}
		return excerpts, nil
	}
	excerpts, err := p.source.FetchOpsLearnings(ctx, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query learnings: %w", err)
	}
	return excerpts, nil
}

func (p *Pipeline) runMode(ctx context.Context, runID string, mode core.Mode, opts Options, raw, contextualized []core.Excerpt, path string) (*ModeResult, error) {
	mr := &ModeResult{Mode: mode, Path: path}

	sel, err := p.Prepare(mode, raw, contextualized)
	if err != nil {
		return nil, err
	}
	mr.Prioritized = len(sel.IDs())
	logger.Info("Prioritized excerpts", "mode", mode, "retrieved", len(raw), "prioritized", mr.Prioritized)

	if err := p.export(opts.ExportDir, string(mode)+"_prioritized_learnings.csv", sel.Unique()); err != nil {
		return nil, err
	}

	mr.Prompt = prompt.Build(opts.Filter, sel, p.config.Templates.Format(mode))
	logger.Debug("Formatted the prompt", "mode", mode, "prompt", mr.Prompt)
	if opts.DryRun {
		return mr, nil
	}

	genStart := time.Now()
	summary, err := p.summarizer.Summarize(ctx, mode, mr.Prompt)
	mr.Duration = time.Since(genStart)
	if err != nil {
		if errors.Is(err, core.ErrValidation) {
			mr.Err = err
			return mr, nil
		}
		return nil, fmt.Errorf("failed to generate %s summary: %w", mode, err)
	}

	summary.RunID = runID
	summary.ExcerptIDs = sel.IDs()
	mr.Summary = summary

	if path != "" {
		if err := WriteSummary(path, summary.Content); err != nil {
			return nil, err
		}
		logger.Info("Saved summary", "mode", mode, "path", path)
	}

	if p.store != nil {
		digest, err := p.store.SaveSummary(*summary)
		if err != nil {
			logger.Warn("Failed to store summary", "mode", mode, "error", err)
		} else {
			mr.Digest = digest
		}
	}

	return mr, nil
}

// Prepare deduplicates raw excerpts for a mode, swaps in their contextualized
// text, applies component prioritization for the primary summary and
// budgets the result.
func (p *Pipeline) Prepare(mode core.Mode, raw, contextualized []core.Excerpt) (prioritize.Selection, error) {
	deduped, err := prioritize.Deduplicate(raw, mode)
	if err != nil {
		return prioritize.Selection{}, err
	}

	byID := make(map[int64]core.Excerpt, len(contextualized))
	for _, e := range contextualized {
		byID[e.ID] = e
	}
	excerpts := make([]core.Excerpt, 0, len(deduped))
	for _, e := range deduped {
		if c, ok := byID[e.ID]; ok {
			e = c
		}
		excerpts = append(excerpts, e)
	}

	if mode == core.ModePrimary {
		excerpts = prioritize.PrioritizeComponents(excerpts, p.config.Preferences)
	}

	return prioritize.Select(excerpts, mode, p.config.PromptDataLimit, p.counter)
}

// EstimateCost prices the prompts of a run with the pipeline's tokenizer
func (p *Pipeline) EstimateCost(result *Result, model string, maxAttempts, promptTokenLimit int) *cost.RunEstimate {
	prompts := make([]cost.Prompt, 0, len(result.Modes))
	for _, mr := range result.Modes {
		prompts = append(prompts, cost.Prompt{Mode: mr.Mode, Text: mr.Prompt})
	}
	return cost.NewEstimator(p.counter, p.config.Templates.SystemMessage, model, maxAttempts, promptTokenLimit).Estimate(prompts)
}

func (p *Pipeline) export(dir, name string, excerpts []core.Excerpt) error {
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, name)
	if err := tabular.WriteExcerptsFile(path, excerpts); err != nil {
		return fmt.Errorf("failed to export %s: %w", name, err)
	}
	logger.Debug("Exported table", "path", path, "rows", len(excerpts))
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
