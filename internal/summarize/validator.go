package summarize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/kaptinlin/jsonschema"
)

// State is the validation state of one model response.
type State string

const (
	StateReceived   State = "received"
	StateValid      State = "valid"
	StateRepairable State = "repairable"
	StateInvalid    State = "invalid"
)

// Outcome is the result of checking one response.
type Outcome struct {
	State    State
	Content  map[string]any
	Repaired bool
	Reason   string
}

// Validator checks model responses against the summary schema of each mode.
type Validator struct {
	schemas map[core.Mode]*jsonschema.Schema
}

// NewValidator compiles the primary and secondary schemas.
func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[core.Mode]*jsonschema.Schema)}
	sources := map[core.Mode]string{
		core.ModePrimary:   primarySchema,
		core.ModeSecondary: secondarySchema,
	}
	for mode, src := range sources {
		compiler := jsonschema.NewCompiler()
		schema, err := compiler.Compile([]byte(src))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", mode, err)
		}
		v.schemas[mode] = schema
	}
	return v, nil
}

// Check runs a response through the state machine:
// received -> valid, or received -> repairable -> valid | invalid.
// The repair is a single mechanical pass.
func (v *Validator) Check(mode core.Mode, raw string) Outcome {
	state := StateReceived
	var out Outcome

	for {
		switch state {
		case StateReceived:
			content, err := v.parseAndValidate(mode, raw)
			if err == nil {
				return Outcome{State: StateValid, Content: content}
			}
			out.Reason = err.Error()
			state = StateRepairable

		case StateRepairable:
			content, err := v.repair(mode, raw)
			if err != nil {
				out.Reason = fmt.Sprintf("%s; after repair: %v", out.Reason, err)
				state = StateInvalid
				continue
			}
			return Outcome{State: StateValid, Content: content, Repaired: true}

		default:
			out.State = StateInvalid
			return out
		}
	}
}

func (v *Validator) parseAndValidate(mode core.Mode, raw string) (map[string]any, error) {
	content, err := parseObject(raw)
	if err != nil {
		return nil, err
	}
	if err := v.validate(mode, content); err != nil {
		return nil, err
	}
	return content, nil
}

func (v *Validator) repair(mode core.Mode, raw string) (map[string]any, error) {
	content, err := parseObject(TrimToObject(raw))
	if err != nil {
		return nil, err
	}
	if mode == core.ModePrimary {
		FillConfidenceLevel(content)
	}
	if err := v.validate(mode, content); err != nil {
		return nil, err
	}
	return content, nil
}

func (v *Validator) validate(mode core.Mode, content map[string]any) error {
	schema, ok := v.schemas[mode]
	if !ok {
		return fmt.Errorf("%w: %q", core.ErrInvalidMode, mode)
	}
	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}

func parseObject(raw string) (map[string]any, error) {
	var content map[string]any
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON object: %v", core.ErrParse, err)
	}
	if content == nil {
		return nil, fmt.Errorf("%w: response is null", core.ErrParse)
	}
	return content, nil
}

// TrimToObject cuts text down to the span between the first opening brace
// and the last closing brace. Text without such a span is returned unchanged.
func TrimToObject(raw string) string {
	end := strings.LastIndex(raw, "}")
	if end < 0 {
		return raw
	}
	start := strings.Index(raw, "{")
	if start < 0 || start > end {
		return raw[:end+1]
	}
	return raw[start : end+1]
}

// FillConfidenceLevel sets a missing "confidence level" of primary insights
// from a content value that ends with a score such as "4/5" or "4/5.".
func FillConfidenceLevel(content map[string]any) {
	for key, value := range content {
		if key == ContradictoryReportsKey {
			continue
		}
		entry, ok := value.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := entry["confidence level"]; ok {
			continue
		}
		text, ok := entry["content"].(string)
		if !ok {
			continue
		}
		switch {
		case strings.HasSuffix(text, "/5.") && len(text) >= 4:
			entry["confidence level"] = text[len(text)-4 : len(text)-1]
		case strings.HasSuffix(text, "/5") && len(text) >= 3:
			entry["confidence level"] = text[len(text)-3:]
		}
	}
}
