package llm

import (
	"context"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/IFRCGo/extractor-operational-learnings/internal/tokenizer"
)

// TracedClient wraps a Generator and logs every generation with its latency
// and an estimate of the tokens exchanged.
type TracedClient struct {
	client Generator
	runID  string
}

// NewTracedClient wraps client. runID tags every log line.
func NewTracedClient(client Generator, runID string) *TracedClient {
	return &TracedClient{client: client, runID: runID}
}

// Model returns the wrapped client's model.
func (tc *TracedClient) Model() string {
	return tc.client.Model()
}

// Generate calls the wrapped client and logs the outcome.
func (tc *TracedClient) Generate(ctx context.Context, messages []Message) (string, error) {
	startTime := time.Now()
	result, err := tc.client.Generate(ctx, messages)
	latencyMs := time.Since(startTime).Milliseconds()

	if err != nil {
		logger.Error("Text generation failed", err,
			"run_id", tc.runID,
			"model", tc.client.Model(),
			"latency_ms", latencyMs)
		return result, err
	}

	logger.Info("Text generation completed",
		"run_id", tc.runID,
		"model", tc.client.Model(),
		"latency_ms", latencyMs,
		"estimated_tokens", estimateTokens(messages, result))
	return result, nil
}

// estimateTokens estimates total tokens using the character ratio.
func estimateTokens(messages []Message, completion string) int {
	total := tokenizer.EstimateTokenCount(completion)
	for _, m := range messages {
		total += tokenizer.EstimateTokenCount(m.Text)
	}
	return total
}
