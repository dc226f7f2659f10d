package cost

import (
	"fmt"
	"strings"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/llm"
	"github.com/IFRCGo/extractor-operational-learnings/internal/tokenizer"
)

// GeminiPricing represents the pricing of a Gemini model
type GeminiPricing struct {
	Model                 string
	InputCostPer1MTokens  float64 // Cost per 1M input tokens in USD
	OutputCostPer1MTokens float64 // Cost per 1M output tokens in USD
}

// DefaultModel is priced when the configured model is not in the table
const DefaultModel = "gemini-2.5-flash"

// PricingTable contains Gemini list prices for text prompts
var PricingTable = map[string]GeminiPricing{
	"gemini-2.5-flash": {
		Model:                 "gemini-2.5-flash",
		InputCostPer1MTokens:  0.30,
		OutputCostPer1MTokens: 2.50,
	},
	"gemini-2.5-flash-lite": {
		Model:                 "gemini-2.5-flash-lite",
		InputCostPer1MTokens:  0.10,
		OutputCostPer1MTokens: 0.40,
	},
	"gemini-2.5-pro": {
		Model:                 "gemini-2.5-pro",
		InputCostPer1MTokens:  1.25,
		OutputCostPer1MTokens: 10.00,
	},
	"gemini-2.0-flash": {
		Model:                 "gemini-2.0-flash",
		InputCostPer1MTokens:  0.10,
		OutputCostPer1MTokens: 0.40,
	},
	"gemini-1.5-flash": {
		Model:                 "gemini-1.5-flash",
		InputCostPer1MTokens:  0.075,
		OutputCostPer1MTokens: 0.30,
	},
}

// EstimatedOutputTokens is the typical length of a generated summary.
// Secondary summaries have one entry per sector and component group.
var EstimatedOutputTokens = map[core.Mode]int{
	core.ModePrimary:   700,
	core.ModeSecondary: 1500,
}

// Pricing returns the pricing of model and whether it was found
func Pricing(model string) (GeminiPricing, bool) {
	if p, ok := PricingTable[model]; ok {
		return p, true
	}
	return PricingTable[DefaultModel], false
}

// Prompt is one assembled summary prompt
type Prompt struct {
	Mode core.Mode
	Text string
}

// ModeEstimate is the cost estimation of one summary
type ModeEstimate struct {
	Mode         core.Mode
	InputTokens  int
	OutputTokens int
	Cost         float64 // One successful attempt
	MaxCost      float64 // Every attempt used
	OverLimit    bool    // The model would not be called
}

// RunEstimate is the cost estimation of a summarization run
type RunEstimate struct {
	Model             string
	PricingKnown      bool
	MaxAttempts       int
	PromptTokenLimit  int
	Modes             []ModeEstimate
	TotalInputTokens  int
	TotalOutputTokens int
	TotalCost         float64
	MaxCost           float64
}

// Estimator prices summary prompts
type Estimator struct {
	counter          tokenizer.Counter
	systemMessage    string
	model            string
	maxAttempts      int
	promptTokenLimit int
}

// NewEstimator creates an Estimator counting tokens the way the Gemini
// client does before each call
func NewEstimator(counter tokenizer.Counter, systemMessage, model string, maxAttempts, promptTokenLimit int) *Estimator {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Estimator{
		counter:          counter,
		systemMessage:    systemMessage,
		model:            model,
		maxAttempts:      maxAttempts,
		promptTokenLimit: promptTokenLimit,
	}
}

// Estimate prices every prompt of a run
func (e *Estimator) Estimate(prompts []Prompt) *RunEstimate {
	pricing, known := Pricing(e.model)
	estimate := &RunEstimate{
		Model:            e.model,
		PricingKnown:     known,
		MaxAttempts:      e.maxAttempts,
		PromptTokenLimit: e.promptTokenLimit,
	}

	for _, p := range prompts {
		me := e.estimateMode(p, pricing)
		estimate.Modes = append(estimate.Modes, me)
		estimate.TotalInputTokens += me.InputTokens
		estimate.TotalOutputTokens += me.OutputTokens
		estimate.TotalCost += me.Cost
		estimate.MaxCost += me.MaxCost
	}
	return estimate
}

func (e *Estimator) estimateMode(p Prompt, pricing GeminiPricing) ModeEstimate {
	messages := llm.SummaryConversation(e.systemMessage, p.Text)
	texts := make([]string, 0, len(messages))
	for _, m := range messages {
		texts = append(texts, m.Text)
	}

	me := ModeEstimate{
		Mode:        p.Mode,
		InputTokens: tokenizer.CountAll(e.counter, texts, " "),
	}
	if e.promptTokenLimit > 0 && me.InputTokens > e.promptTokenLimit {
		me.OverLimit = true
		return me
	}

	me.OutputTokens = EstimatedOutputTokens[p.Mode]
	me.Cost = price(me.InputTokens, pricing.InputCostPer1MTokens) + price(me.OutputTokens, pricing.OutputCostPer1MTokens)
	me.MaxCost = me.Cost * float64(e.maxAttempts)
	return me
}

func price(tokens int, perMillion float64) float64 {
	return float64(tokens) * perMillion / 1000000
}

// FormatEstimate formats the cost estimate for display
func (e *RunEstimate) FormatEstimate() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Cost Estimation for %s\n", e.Model))
	sb.WriteString(strings.Repeat("=", 50) + "\n")
	if !e.PricingKnown {
		sb.WriteString(fmt.Sprintf("Unknown model, priced as %s\n", DefaultModel))
	}

	for _, m := range e.Modes {
		if m.OverLimit {
			sb.WriteString(fmt.Sprintf("%-10s %6d input tokens, over the %d token limit, the model will not be called\n",
				m.Mode, m.InputTokens, e.PromptTokenLimit))
			continue
		}
		sb.WriteString(fmt.Sprintf("%-10s %6d input + ~%d output tokens  $%.6f\n",
			m.Mode, m.InputTokens, m.OutputTokens, m.Cost))
	}

	sb.WriteString(fmt.Sprintf("Total: $%.6f (up to $%.6f with %d attempts per summary)\n",
		e.TotalCost, e.MaxCost, e.MaxAttempts))
	return sb.String()
}
