package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/prompt"
	"github.com/IFRCGo/extractor-operational-learnings/internal/tabular"
)

// Mock implementations for testing

type mockSource struct {
	excerpts []core.Excerpt
	err      error
	filter   core.RequestFilter
	calls    int
}

func (m *mockSource) FetchOpsLearnings(ctx context.Context, filter core.RequestFilter) ([]core.Excerpt, error) {
	m.calls++
	m.filter = filter
	return m.excerpts, m.err
}

type mockContextualizer struct {
	calls int
	err   error
}

func (m *mockContextualizer) Contextualize(ctx context.Context, excerpts []core.Excerpt) ([]core.Excerpt, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]core.Excerpt, len(excerpts))
	for i, e := range excerpts {
		e.Learning = "In 2023 in Flood appeal: " + e.Learning
		out[i] = e
	}
	return out, nil
}

type mockSummarizer struct {
	content map[core.Mode]map[string]any
	errs    map[core.Mode]error
	prompts map[core.Mode]string
}

func (m *mockSummarizer) Summarize(ctx context.Context, mode core.Mode, p string) (*core.Summary, error) {
	if m.prompts == nil {
		m.prompts = make(map[core.Mode]string)
	}
	m.prompts[mode] = p
	if err := m.errs[mode]; err != nil {
		return nil, err
	}
	return &core.Summary{ID: "summary-" + string(mode), Mode: mode, Content: m.content[mode], ModelUsed: "mock-model", Attempts: 1}, nil
}

type mockStore struct {
	saved []core.Summary
	err   error
}

func (m *mockStore) SaveSummary(summary core.Summary) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.saved = append(m.saved, summary)
	return "digest-" + string(summary.Mode), nil
}

type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func testExcerpts() []core.Excerpt {
	return []core.Excerpt{
		{ID: 1, Learning: "Stock arrived late", AppealCode: "MDRBD001", AppealYear: 2021, CountryName: "Bangladesh", Component: "Logistics", Sector: "Health"},
		{ID: 2, Learning: "Stock arrived late", AppealCode: "MDRBD001", AppealYear: 2021, CountryName: "Bangladesh", Component: "Coordination"},
		{ID: 3, Learning: "Volunteers needed training", AppealCode: "MDRBD002", AppealYear: 2023, CountryName: "Bangladesh", Component: "Logistics", Sector: "Shelter"},
	}
}

func testConfig() *Config {
	return &Config{
		RunID:           "run-1",
		PromptDataLimit: 5000,
		Templates:       prompt.Templates{PrimaryFormat: "PRIMARY FORMAT", SecondaryFormat: "SECONDARY FORMAT"},
	}
}

func summarizerWithContent() *mockSummarizer {
	return &mockSummarizer{content: map[core.Mode]map[string]any{
		core.ModePrimary: {
			"0":                     map[string]any{"title": "Stock <prepositioning>", "content": "Stock arrived late", "excerpts id": "3, 1", "confidence level": "4/5"},
			"contradictory reports": "None",
		},
		core.ModeSecondary: {
			"0": map[string]any{"type": "sector", "subtype": "Health", "content": "Stock arrived late"},
		},
	}}
}

func TestPipelineRun(t *testing.T) {
	dir := t.TempDir()
	source := &mockSource{excerpts: testExcerpts()}
	ctxer := &mockContextualizer{}
	summarizer := summarizerWithContent()
	store := &mockStore{}
	p := NewPipeline(source, ctxer, summarizer, wordCounter{}, store, testConfig())

	opts := Options{
		Filter:        core.RequestFilter{core.FilterCountry: "14"},
		PrimaryPath:   filepath.Join(dir, "out", "primary.json"),
		SecondaryPath: filepath.Join(dir, "out", "secondary.json"),
	}
	result, err := p.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.RunID != "run-1" || result.Retrieved != 3 {
		t.Errorf("Unexpected result header: run=%s retrieved=%d", result.RunID, result.Retrieved)
	}
	if ctxer.calls != 1 {
		t.Errorf("Expected one contextualization for both modes, got %d", ctxer.calls)
	}
	if source.filter[core.FilterCountry] != "14" {
		t.Errorf("Expected filter to reach the source, got %v", source.filter)
	}

	primary := result.Mode(core.ModePrimary)
	if primary == nil || primary.Err != nil {
		t.Fatalf("Expected successful primary result, got %+v", primary)
	}
	if primary.Prioritized != 2 {
		t.Errorf("Expected 2 primary excerpts after dedupe, got %d", primary.Prioritized)
	}
	ids := primary.Summary.ExcerptIDs
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 1 {
		t.Errorf("Expected most recent excerpt first [3 1], got %v", ids)
	}
	if primary.Summary.RunID != "run-1" || primary.Digest != "digest-primary" {
		t.Errorf("Unexpected primary metadata: run=%s digest=%s", primary.Summary.RunID, primary.Digest)
	}
	if !strings.Contains(summarizer.prompts[core.ModePrimary], "In 2023 in Flood appeal: Volunteers needed training") {
		t.Error("Expected contextualized learnings in the primary prompt")
	}
	if !strings.HasSuffix(summarizer.prompts[core.ModePrimary], "PRIMARY FORMAT") {
		t.Error("Expected primary format section at the end of the prompt")
	}

	secondary := result.Mode(core.ModeSecondary)
	if secondary == nil || secondary.Prioritized != 3 {
		t.Fatalf("Expected 3 secondary excerpts, got %+v", secondary)
	}
	if !strings.Contains(summarizer.prompts[core.ModeSecondary], "Type: component\nSubtype: Coordination") {
		t.Error("Expected grouped data in the secondary prompt")
	}

	if len(store.saved) != 2 {
		t.Errorf("Expected 2 stored summaries, got %d", len(store.saved))
	}

	data, err := os.ReadFile(opts.PrimaryPath)
	if err != nil {
		t.Fatalf("Primary summary not written: %v", err)
	}
	if !strings.Contains(string(data), "\n    \"0\": {") {
		t.Errorf("Expected 4-space indentation, got %s", data)
	}
	if !strings.Contains(string(data), "Stock <prepositioning>") {
		t.Errorf("Expected unescaped HTML characters, got %s", data)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Primary summary is not JSON: %v", err)
	}
	if _, err := os.Stat(opts.SecondaryPath); err != nil {
		t.Errorf("Secondary summary not written: %v", err)
	}
}

func TestPipelineRunValidationFailureContinues(t *testing.T) {
	dir := t.TempDir()
	summarizer := summarizerWithContent()
	summarizer.errs = map[core.Mode]error{core.ModePrimary: core.ErrValidation}
	store := &mockStore{}
	p := NewPipeline(&mockSource{excerpts: testExcerpts()}, &mockContextualizer{}, summarizer, wordCounter{}, store, testConfig())

	opts := Options{
		PrimaryPath:   filepath.Join(dir, "primary.json"),
		SecondaryPath: filepath.Join(dir, "secondary.json"),
	}
	result, err := p.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if primary := result.Mode(core.ModePrimary); !errors.Is(primary.Err, core.ErrValidation) || primary.Summary != nil {
		t.Errorf("Expected recorded validation failure, got %+v", primary)
	}
	if _, err := os.Stat(opts.PrimaryPath); !os.IsNotExist(err) {
		t.Error("Primary summary should not be written after a validation failure")
	}
	if _, err := os.Stat(opts.SecondaryPath); err != nil {
		t.Errorf("Secondary summary should still be written: %v", err)
	}
	if len(store.saved) != 1 {
		t.Errorf("Expected only the secondary summary stored, got %d", len(store.saved))
	}
}

func TestPipelineRunAbortsOnTransportError(t *testing.T) {
	summarizer := summarizerWithContent()
	summarizer.errs = map[core.Mode]error{core.ModePrimary: core.ErrTransport}
	p := NewPipeline(&mockSource{excerpts: testExcerpts()}, &mockContextualizer{}, summarizer, wordCounter{}, nil, testConfig())

	_, err := p.Run(context.Background(), Options{})
	if !errors.Is(err, core.ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
	if _, ok := summarizer.prompts[core.ModeSecondary]; ok {
		t.Error("Secondary summary should not run after a transport error")
	}
}

func TestPipelineRunSourceError(t *testing.T) {
	ctxer := &mockContextualizer{}
	p := NewPipeline(&mockSource{err: core.ErrTransport}, ctxer, &mockSummarizer{}, wordCounter{}, nil, testConfig())

	if _, err := p.Run(context.Background(), Options{}); !errors.Is(err, core.ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
	if ctxer.calls != 0 {
		t.Error("Contextualizer should not run after a failed query")
	}
}

func TestPipelineRunDryRunWithExports(t *testing.T) {
	dir := t.TempDir()
	summarizer := &mockSummarizer{}
	p := NewPipeline(&mockSource{excerpts: testExcerpts()}, &mockContextualizer{}, summarizer, wordCounter{}, nil, testConfig())

	opts := Options{
		PrimaryPath: filepath.Join(dir, "primary.json"),
		ExportDir:   filepath.Join(dir, "export"),
		DryRun:      true,
	}
	result, err := p.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(summarizer.prompts) != 0 {
		t.Error("Dry run should not call the summarizer")
	}
	for _, mr := range result.Modes {
		if mr.Prompt == "" || mr.Summary != nil {
			t.Errorf("Expected prompt without summary for %s, got %+v", mr.Mode, mr)
		}
	}
	if _, err := os.Stat(opts.PrimaryPath); !os.IsNotExist(err) {
		t.Error("Dry run should not write summaries")
	}

	for name, rows := range map[string]int{
		"filtered_learnings.csv":            3,
		"contextualized_learnings.csv":      3,
		"primary_prioritized_learnings.csv": 2,
	} {
		excerpts, err := tabular.ReadExcerptsFile(filepath.Join(opts.ExportDir, name))
		if err != nil {
			t.Errorf("Failed to read %s: %v", name, err)
			continue
		}
		if len(excerpts) != rows {
			t.Errorf("Expected %d rows in %s, got %d", rows, name, len(excerpts))
		}
	}

	contextualized, _ := tabular.ReadExcerptsFile(filepath.Join(opts.ExportDir, "contextualized_learnings.csv"))
	if len(contextualized) > 0 && !strings.HasPrefix(contextualized[0].Learning, "In 2023 in Flood appeal: ") {
		t.Errorf("Expected contextualized export, got %q", contextualized[0].Learning)
	}
}

func TestPipelineRunSecondaryExportReadsBack(t *testing.T) {
	dir := t.TempDir()
	excerpts := []core.Excerpt{
		{ID: 1, Learning: "Cold chain failed", AppealCode: "MDRKE010", AppealYear: 2022, Sector: "Health", Component: "Logistics"},
		{ID: 2, Learning: "Clinics lacked staff", AppealCode: "MDRKE010", AppealYear: 2022, Sector: "Health", Component: "Coordination"},
	}
	p := NewPipeline(&mockSource{excerpts: excerpts}, &mockContextualizer{}, &mockSummarizer{}, wordCounter{}, nil, testConfig())

	if _, err := p.Run(context.Background(), Options{ExportDir: dir, DryRun: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	path := filepath.Join(dir, "secondary_prioritized_learnings.csv")
	exported, err := tabular.ReadExcerptsFile(path)
	if err != nil {
		t.Fatalf("Secondary export should read back, got %v", err)
	}
	if len(exported) != 2 || exported[0].ID == exported[1].ID {
		t.Errorf("Expected one row per excerpt, got %+v", exported)
	}

	result, err := p.Run(context.Background(), Options{InputPath: path, DryRun: true})
	if err != nil {
		t.Fatalf("Run from exported table failed: %v", err)
	}
	if result.Retrieved != 2 {
		t.Errorf("Expected 2 excerpts from exported table, got %d", result.Retrieved)
	}
}

func TestPipelineRunFromInputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learnings.csv")
	if err := tabular.WriteExcerptsFile(path, testExcerpts()); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}
	source := &mockSource{}
	p := NewPipeline(source, &mockContextualizer{}, &mockSummarizer{}, wordCounter{}, nil, testConfig())

	result, err := p.Run(context.Background(), Options{InputPath: path, DryRun: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if source.calls != 0 {
		t.Error("Input file should replace the API query")
	}
	if result.Retrieved != 3 {
		t.Errorf("Expected 3 excerpts from file, got %d", result.Retrieved)
	}
}

func TestPrepareBudget(t *testing.T) {
	cfg := testConfig()
	cfg.PromptDataLimit = 3
	p := NewPipeline(nil, nil, nil, wordCounter{}, nil, cfg)

	excerpts := testExcerpts()
	sel, err := p.Prepare(core.ModePrimary, excerpts, excerpts)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if ids := sel.IDs(); len(ids) != 1 || ids[0] != 3 {
		t.Errorf("Expected only the most recent excerpt within budget, got %v", ids)
	}

	if _, err := p.Prepare(core.Mode("other"), excerpts, excerpts); !errors.Is(err, core.ErrInvalidMode) {
		t.Errorf("Expected ErrInvalidMode, got %v", err)
	}
}

func TestLoadRequestFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filter.json")
	content := `{"appeal_code__country__in": "14", "appeal_code__region": "", "sector_validated__in": null}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write filter: %v", err)
	}

	filter, err := LoadRequestFilter(path)
	if err != nil {
		t.Fatalf("LoadRequestFilter failed: %v", err)
	}
	if len(filter) != 1 || !filter.Has(core.FilterCountry) {
		t.Errorf("Expected only the country filter, got %v", filter)
	}

	if _, err := LoadRequestFilter(filepath.Join(dir, "missing.json")); !errors.Is(err, core.ErrConfig) {
		t.Errorf("Expected ErrConfig for missing file, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{"), 0644)
	if _, err := LoadRequestFilter(bad); !errors.Is(err, core.ErrParse) {
		t.Errorf("Expected ErrParse for invalid JSON, got %v", err)
	}
}

func TestWriteSummaryEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "summary.json")
	if err := WriteSummary(path, nil); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read summary: %v", err)
	}
	if strings.TrimSpace(string(data)) != "{}" {
		t.Errorf("Expected empty object, got %q", data)
	}
}

func TestEstimateCost(t *testing.T) {
	cfg := testConfig()
	cfg.Templates.SystemMessage = "system"
	p := NewPipeline(&mockSource{excerpts: testExcerpts()}, &mockContextualizer{}, &mockSummarizer{}, wordCounter{}, nil, cfg)

	result, err := p.Run(context.Background(), Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	estimate := p.EstimateCost(result, "gemini-2.5-flash", 3, 0)
	if len(estimate.Modes) != 2 {
		t.Fatalf("Expected an estimate per mode, got %d", len(estimate.Modes))
	}
	for _, m := range estimate.Modes {
		if m.InputTokens <= len(strings.Fields(result.Mode(m.Mode).Prompt)) {
			t.Errorf("Expected %s input to include the whole conversation, got %d tokens", m.Mode, m.InputTokens)
		}
	}
	if estimate.MaxCost <= estimate.TotalCost {
		t.Errorf("Expected retries to raise the maximum cost, got total=%v max=%v", estimate.TotalCost, estimate.MaxCost)
	}
}

func TestPipelineRunEmptyCollection(t *testing.T) {
	summarizer := &mockSummarizer{content: map[core.Mode]map[string]any{}}
	p := NewPipeline(&mockSource{}, &mockContextualizer{}, summarizer, wordCounter{}, nil, testConfig())

	result, err := p.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run failed on empty input: %v", err)
	}
	if result.Retrieved != 0 {
		t.Errorf("Expected nothing retrieved, got %d", result.Retrieved)
	}
	for _, mr := range result.Modes {
		if mr.Prioritized != 0 {
			t.Errorf("Expected no %s excerpts, got %d", mr.Mode, mr.Prioritized)
		}
		if !strings.Contains(mr.Prompt, "DATA\n"+prompt.Rule+"\n\n\n") {
			t.Errorf("Expected an empty %s data section, got %q", mr.Mode, mr.Prompt)
		}
	}
}
