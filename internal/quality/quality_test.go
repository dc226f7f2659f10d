package quality

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/llm"
)

// mockGenerator answers each scoring prompt with the response of its metric
type mockGenerator struct {
	responses map[string]string
	err       error
	prompts   []string
}

func (m *mockGenerator) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	text := messages[len(messages)-1].Text
	m.prompts = append(m.prompts, text)
	for name, response := range m.responses {
		if strings.HasSuffix(strings.TrimSpace(text), "- "+name) {
			return response, nil
		}
	}
	return "", errors.New("unexpected prompt")
}

func (m *mockGenerator) Model() string { return "mock-evaluator" }

type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func goodScores() map[string]string {
	return map[string]string{
		MetricRelevance:   "- Relevance: 4",
		MetricCoherence:   "Coherence(1-5): 5",
		MetricConsistency: "5",
		MetricFluency:     "Fluency: 3/3",
	}
}

func primaryContent() map[string]any {
	return map[string]any{
		"0": map[string]any{"title": "Stock", "content": "Stock arrived late", "excerpts id": "3, 1", "confidence level": "4/5"},
		"1": map[string]any{"title": "Volunteers", "content": "Training was short", "excerpts id": "1,7", "confidence level": "3/5"},
		"contradictory reports": map[string]any{"excerpts id": "9"},
	}
}

func TestDisplayedExcerptIDs(t *testing.T) {
	tests := []struct {
		name    string
		mode    core.Mode
		content map[string]any
		want    []string
	}{
		{"primary skips contradictions", core.ModePrimary, primaryContent(), []string{"1", "3", "7"}},
		{"secondary counts every entry", core.ModeSecondary, map[string]any{
			"0": map[string]any{"type": "sector", "subtype": "Health", "excerpts id": "2, 4"},
			"1": map[string]any{"type": "component", "subtype": "Logistics", "excerpts id": []any{float64(4), "5"}},
			"2": map[string]any{"type": "component", "subtype": "Coordination"},
		}, []string{"2", "4", "5"}},
		{"empty", core.ModePrimary, map[string]any{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayedExcerptIDs(tt.mode, tt.content); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		response string
		max      int
		want     int
		wantErr  bool
	}{
		{"4", 5, 4, false},
		{"- Relevance: 3", 5, 3, false},
		{"Relevance(1-5): 2", 5, 2, false},
		{"Fluency (1 - 3): 3", 3, 3, false},
		{"no score", 5, 0, true},
		{"7", 5, 0, true},
		{"0", 3, 0, true},
	}

	for _, tt := range tests {
		got, err := ParseScore(tt.response, tt.max)
		if tt.wantErr {
			if !errors.Is(err, core.ErrParse) {
				t.Errorf("ParseScore(%q): expected ErrParse, got %v", tt.response, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseScore(%q) = %d, %v; want %d", tt.response, got, err, tt.want)
		}
	}
}

func TestEvaluationPrompt(t *testing.T) {
	out := EvaluationPrompt(Metrics[0], "DOC 100%", "SUMMARY")

	for _, want := range []string{Metrics[0].Criteria, Metrics[0].Steps, "Source Text:\n\nDOC 100%", "Summary:\n\nSUMMARY"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
	if !strings.HasSuffix(out, "- Relevance\n") {
		t.Errorf("Expected prompt to end with the metric name, got %q", out[len(out)-20:])
	}
}

func TestEvaluate(t *testing.T) {
	gen := &mockGenerator{responses: goodScores()}
	evaluator := NewSummaryEvaluator(gen, wordCounter{})
	date := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	ev, err := evaluator.Evaluate(context.Background(), Input{
		Mode:          core.ModePrimary,
		Date:          date,
		Filters:       `in "Kenya"`,
		Document:      "Stock arrived late\n----------------\nTraining was short",
		Summary:       primaryContent(),
		Retrieved:     12,
		Prioritized:   4,
		ExecutionTime: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if len(gen.prompts) != len(Metrics) {
		t.Errorf("Expected one call per metric, got %d", len(gen.prompts))
	}
	if ev.Relevance != 4 || ev.Coherence != 5 || ev.Consistency != 5 || ev.Fluency != 3 {
		t.Errorf("Unexpected scores %+v", ev)
	}
	if ev.NbRetrieved != 12 || ev.NbPrioritized != 4 || ev.NbDisplayed != 3 {
		t.Errorf("Unexpected counts: retrieved=%d prioritized=%d displayed=%d", ev.NbRetrieved, ev.NbPrioritized, ev.NbDisplayed)
	}
	if ev.InputTokens != 7 {
		t.Errorf("Expected 7 input tokens, got %d", ev.InputTokens)
	}
	if ev.OutputTokens == 0 || ev.ExecutionTime != 3 {
		t.Errorf("Expected output tokens and 3s execution time, got %d, %v", ev.OutputTokens, ev.ExecutionTime)
	}
	if !ev.Passed || len(ev.Warnings) != 0 {
		t.Errorf("Expected a passing evaluation, got %v", ev.Warnings)
	}
	if !ev.Date.Equal(date) || ev.Type != core.ModePrimary {
		t.Errorf("Unexpected header %v %s", ev.Date, ev.Type)
	}
}

func TestEvaluateLowScores(t *testing.T) {
	scores := goodScores()
	scores[MetricConsistency] = "2"
	evaluator := NewSummaryEvaluator(&mockGenerator{responses: scores}, wordCounter{})

	ev, err := evaluator.Evaluate(context.Background(), Input{
		Mode:        core.ModePrimary,
		Document:    "doc",
		Summary:     primaryContent(),
		Prioritized: 2,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if ev.Passed {
		t.Error("Expected low consistency to fail the evaluation")
	}
	want := []string{"Low consistency: 2 (min: 3)", "Summary cites 3 excerpts but only 2 were in the prompt"}
	if !reflect.DeepEqual(ev.Warnings, want) {
		t.Errorf("Expected warnings %v, got %v", want, ev.Warnings)
	}
}

func TestEvaluateEmptySummary(t *testing.T) {
	gen := &mockGenerator{responses: goodScores()}
	ev, err := NewSummaryEvaluator(gen, wordCounter{}).Evaluate(context.Background(), Input{Mode: core.ModeSecondary, Document: "doc"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Error("Empty summary should not be sent to the model")
	}
	if ev.Passed || len(ev.Warnings) != 1 {
		t.Errorf("Expected a failing evaluation with one warning, got %+v", ev)
	}
}

func TestEvaluateErrors(t *testing.T) {
	scores := goodScores()
	scores[MetricFluency] = "excellent"
	_, err := NewSummaryEvaluator(&mockGenerator{responses: scores}, wordCounter{}).Evaluate(context.Background(), Input{
		Mode: core.ModePrimary, Summary: primaryContent(),
	})
	if !errors.Is(err, core.ErrParse) {
		t.Errorf("Expected ErrParse for unreadable score, got %v", err)
	}

	_, err = NewSummaryEvaluator(&mockGenerator{err: core.ErrTransport}, wordCounter{}).Evaluate(context.Background(), Input{
		Mode: core.ModePrimary, Summary: primaryContent(),
	})
	if !errors.Is(err, core.ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
}

func TestWriteAndFormatReport(t *testing.T) {
	evals := []*SummaryEvaluation{
		{Type: core.ModePrimary, Summary: map[string]any{}, Relevance: 4, Coherence: 4, Consistency: 5, Fluency: 3, NbRetrieved: 10, NbPrioritized: 5, NbDisplayed: 3, Passed: true},
		{Type: core.ModeSecondary, Summary: map[string]any{}, Warnings: []string{"Empty summary, scoring skipped"}},
	}

	path := filepath.Join(t.TempDir(), "out", "evaluation.json")
	if err := Write(path, evals); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read evaluation: %v", err)
	}
	var decoded map[string]map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if decoded["primary"]["relevance"] != float64(4) || decoded["secondary"]["type"] != "secondary" {
		t.Errorf("Unexpected evaluation file %s", data)
	}
	if !strings.Contains(string(data), "\n    \"primary\"") {
		t.Errorf("Expected 4-space indentation, got %s", data)
	}

	report := FormatReport(evals)
	for _, want := range []string{"SUMMARY QUALITY REPORT: primary", "10 retrieved, 5 prioritized, 3 cited", "No issues detected", "Empty summary, scoring skipped"} {
		if !strings.Contains(report, want) {
			t.Errorf("Expected report to contain %q, got %s", want, report)
		}
	}
}
