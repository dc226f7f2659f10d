package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
)

// LoadRequestFilter reads a request filter file and drops empty values.
func LoadRequestFilter(path string) (core.RequestFilter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read request filter: %v", core.ErrConfig, err)
	}

	var filter core.RequestFilter
	if err := json.Unmarshal(data, &filter); err != nil {
		return nil, fmt.Errorf("%w: request filter %s: %v", core.ErrParse, path, err)
	}
	return filter.Active(), nil
}

// LoadSummary reads summary content written by WriteSummary.
func LoadSummary(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}

	var content map[string]any
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("%w: summary %s: %v", core.ErrParse, path, err)
	}
	if content == nil {
		content = map[string]any{}
	}
	return content, nil
}

// WriteSummary writes summary content as indented JSON.
func WriteSummary(path string, content map[string]any) error {
	if content == nil {
		content = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(content); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write summary to %s: %w", path, err)
	}
	return nil
}
