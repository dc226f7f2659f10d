package pipeline

import (
	"context"
	"fmt"

	"github.com/IFRCGo/extractor-operational-learnings/internal/config"
	"github.com/IFRCGo/extractor-operational-learnings/internal/contextualize"
	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/goapi"
	"github.com/IFRCGo/extractor-operational-learnings/internal/llm"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/IFRCGo/extractor-operational-learnings/internal/preferences"
	"github.com/IFRCGo/extractor-operational-learnings/internal/prompt"
	"github.com/IFRCGo/extractor-operational-learnings/internal/quality"
	"github.com/IFRCGo/extractor-operational-learnings/internal/store"
	"github.com/IFRCGo/extractor-operational-learnings/internal/summarize"
	"github.com/IFRCGo/extractor-operational-learnings/internal/tokenizer"
	"github.com/google/uuid"
)

// Builder helps construct a fully configured Pipeline
type Builder struct {
	cfg       *config.Config
	api       *goapi.Client
	generator llm.Generator
	evaluator llm.Generator
	evaluate  bool
	skipStore bool
	dryRun    bool
}

// NewBuilder creates a new pipeline builder from the loaded configuration
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{
		cfg:       cfg,
		skipStore: cfg.Store.Disable,
	}
}

// WithAPI sets the GO API client
func (b *Builder) WithAPI(api *goapi.Client) *Builder {
	b.api = api
	return b
}

// WithGenerator sets the LLM used for summaries instead of the Gemini client
func (b *Builder) WithGenerator(generator llm.Generator) *Builder {
	b.generator = generator
	return b
}

// WithEvaluation adds a G-Eval summary evaluator backed by Gemini
func (b *Builder) WithEvaluation() *Builder {
	b.evaluate = true
	return b
}

// WithEvaluator adds a summary evaluator backed by the given LLM
func (b *Builder) WithEvaluator(generator llm.Generator) *Builder {
	b.evaluator = generator
	b.evaluate = true
	return b
}

// WithoutStore disables the SQLite store
func (b *Builder) WithoutStore() *Builder {
	b.skipStore = true
	return b
}

// ForDryRun builds a pipeline that stops before generating summaries, so no
// API key is needed unless an evaluator is added
func (b *Builder) ForDryRun() *Builder {
	b.dryRun = true
	return b
}

// Build constructs a fully configured Pipeline. Close it when done.
func (b *Builder) Build(ctx context.Context) (*Pipeline, error) {
	cfg := b.cfg
	runID := uuid.NewString()

	counter, err := tokenizer.New(cfg.Budget.Encoding, cfg.Budget.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfig, err)
	}

	templates, err := prompt.LoadTemplates(cfg.Prompts)
	if err != nil {
		return nil, err
	}

	lists, err := preferences.Load(preferences.Paths{
		Countries: cfg.Preferences.Countries,
		Regions:   cfg.Preferences.Regions,
		Global:    cfg.Preferences.Global,
	})
	if err != nil {
		return nil, err
	}

	api := b.api
	if api == nil {
		api = goapi.NewClientFromConfig(cfg.GoAPI)
	}

	// Initialize store (optional)
	var st *store.Store
	if !b.skipStore {
		st, err = store.NewStore(cfg.Store.DataDir)
		if err != nil {
			// Non-fatal: log warning and continue without store
			logger.Warn("Failed to initialize store, continuing without it", "error", err)
			st = nil
		}
	}

	var summarizer SummaryGenerator
	if !b.dryRun {
		generator := b.generator
		if generator == nil {
			client, err := llm.NewClient(ctx, cfg.AI.Gemini, counter)
			if err != nil {
				closeStore(st)
				return nil, err
			}
			generator = client
		}

		s, err := summarize.NewSummarizer(llm.NewTracedClient(generator, runID), summarize.SummarizerOptions{
			SystemMessage: templates.SystemMessage,
			MaxAttempts:   cfg.Summary.MaxAttempts,
			RetryDelay:    config.Duration(cfg.Summary.RetryDelay, summarize.DefaultSummarizerOptions().RetryDelay),
		})
		if err != nil {
			closeStore(st)
			return nil, err
		}
		summarizer = summarize.NewTracedSummarizer(s, runID)
	}

	var cache contextualize.AppealCache
	var summaryStore SummaryStore
	if st != nil {
		cache = st
		summaryStore = st
	}

	p := NewPipeline(
		api,
		contextualize.New(api, cache, contextualize.DefaultMaxAge),
		summarizer,
		counter,
		summaryStore,
		&Config{
			RunID:           runID,
			PromptDataLimit: cfg.Budget.PromptDataLimit,
			Templates:       templates,
			Preferences:     lists,
		},
	)
	if st != nil {
		p.closers = append(p.closers, st.Close)
	}

	if b.evaluate {
		generator := b.evaluator
		if generator == nil {
			client, err := llm.NewClient(ctx, cfg.EvaluatorGemini(), counter)
			if err != nil {
				closeStore(st)
				return nil, err
			}
			generator = client
		}
		p.evaluator = quality.NewSummaryEvaluatorWithThresholds(llm.NewTracedClient(generator, runID), counter, quality.Thresholds{
			MinRelevance:   cfg.Quality.MinRelevance,
			MinCoherence:   cfg.Quality.MinCoherence,
			MinConsistency: cfg.Quality.MinConsistency,
			MinFluency:     cfg.Quality.MinFluency,
		})
	}

	return p, nil
}

func closeStore(st *store.Store) {
	if st != nil {
		_ = st.Close()
	}
}
