package core

import (
	"fmt"
	"sort"
	"time"
)

// Mode selects which of the two summaries a stage is working for.
type Mode string

const (
	// ModePrimary is the short top-insights synthesis across all excerpts.
	ModePrimary Mode = "primary"
	// ModeSecondary is the longer per-sector / per-component breakdown.
	ModeSecondary Mode = "secondary"
)

// ParseMode converts a user supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePrimary, ModeSecondary:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q (expected primary or secondary)", ErrInvalidMode, s)
	}
}

// Validate reports whether m is one of the known modes.
func (m Mode) Validate() error {
	_, err := ParseMode(string(m))
	return err
}

// Excerpt is a single "lessons learnt" or "challenges" fragment tied to one operation.
type Excerpt struct {
	ID          int64  `json:"id"`           // Ops-learning record id, unique within a collection
	Learning    string `json:"learning"`     // Excerpt text (contextualized in place later in the run)
	AppealCode  string `json:"appeal_code"`  // Appeal the report belongs to
	AppealYear  int    `json:"appeal_year"`  // Year the appeal started
	CountryID   int64  `json:"country_id"`   // GO country id, 0 when unknown
	CountryName string `json:"country_name"` // Country display name
	RegionID    int64  `json:"region_id"`    // GO region id, 0 when unknown
	RegionName  string `json:"region_name"`  // Region display name
	DTypeName   string `json:"dtype_name"`   // Disaster type display name
	Component   string `json:"component"`    // PER component label
	Sector      string `json:"sector"`       // Sector label, may be empty
	Finding     string `json:"finding"`      // "Lessons Learnt" or "Challenges", may be empty
}

// ExcerptGroup is a labeled slice of excerpts used by the secondary summary.
type ExcerptGroup struct {
	Type     string    `json:"type"`    // "sector" or "component"
	Subtype  string    `json:"subtype"` // Sector or component label
	Excerpts []Excerpt `json:"excerpts"`
}

// Group types used in ExcerptGroup.Type.
const (
	GroupSector    = "sector"
	GroupComponent = "component"
)

// RequestFilter is the set of GO API filters a summary was requested for.
// Keys mirror the ops-learning query parameters; values are scalars.
type RequestFilter map[string]any

// Request filter keys that contribute a clause to the prompt instructions.
const (
	FilterDisasterType = "appeal_code__dtype__in"
	FilterCountry      = "appeal_code__country__in"
	FilterRegion       = "appeal_code__region"
	FilterSector       = "sector_validated__in"
	FilterComponent    = "per_component_validated__in"
)

// Active returns a copy of the filter without empty values.
func (f RequestFilter) Active() RequestFilter {
	out := RequestFilter{}
	for k, v := range f {
		if isEmptyValue(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// Has reports whether key is present with a non-empty value.
func (f RequestFilter) Has(key string) bool {
	v, ok := f[key]
	return ok && !isEmptyValue(v)
}

// Keys returns the filter keys in sorted order.
func (f RequestFilter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// Summary is a validated LLM summary ready to be persisted.
type Summary struct {
	ID            string         `json:"id"`             // Unique identifier for the summary
	RunID         string         `json:"run_id"`         // Run that produced it
	Mode          Mode           `json:"mode"`           // primary or secondary
	Content       map[string]any `json:"content"`        // Parsed JSON object returned by the model
	ModelUsed     string         `json:"model_used"`     // LLM model used
	Attempts      int            `json:"attempts"`       // Generation attempts needed
	Repaired      bool           `json:"repaired"`       // Whether the mechanical repair was applied
	ExcerptIDs    []int64        `json:"excerpt_ids"`    // Excerpts that reached the prompt
	DateGenerated time.Time      `json:"date_generated"` // Timestamp when the summary was generated
}

// Appeal is the subset of a GO appeal used for contextualization and filtering.
type Appeal struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
