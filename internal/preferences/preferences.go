// Package preferences loads, saves and generates the per-country, per-region
// and global component preference lists used by component prioritization.
package preferences

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"gopkg.in/yaml.v3"
)

// GlobalKey is the key of the global list in its file.
const GlobalKey = "global"

// Lists holds preferred component labels keyed by GO country or region id.
// The lists are a fallback signal for prioritization, never a hard filter.
type Lists struct {
	Countries map[string][]string `json:"countries" yaml:"countries"`
	Regions   map[string][]string `json:"regions" yaml:"regions"`
	Global    []string            `json:"global" yaml:"global"`
}

// Paths locates the three preference files.
type Paths struct {
	Countries string
	Regions   string
	Global    string
}

// Load reads the three preference files. Country and region files may hold
// either an object keyed by id or a list of {"country"|"region": id,
// "components": [...]} records. The global file holds {"global": [...]} or a
// bare list. Files ending in .yaml or .yml are parsed as YAML.
func Load(paths Paths) (Lists, error) {
	lists := Lists{}

	countries, err := readFile(paths.Countries)
	if err != nil {
		return Lists{}, err
	}
	if lists.Countries, err = keyedLists(countries, "country"); err != nil {
		return Lists{}, fmt.Errorf("%w: %s: %v", core.ErrConfig, paths.Countries, err)
	}

	regions, err := readFile(paths.Regions)
	if err != nil {
		return Lists{}, err
	}
	if lists.Regions, err = keyedLists(regions, "region"); err != nil {
		return Lists{}, fmt.Errorf("%w: %s: %v", core.ErrConfig, paths.Regions, err)
	}

	global, err := readFile(paths.Global)
	if err != nil {
		return Lists{}, err
	}
	if m, ok := global.(map[string]any); ok {
		global = m[GlobalKey]
	}
	if lists.Global, err = stringList(global); err != nil {
		return Lists{}, fmt.Errorf("%w: %s: %v", core.ErrConfig, paths.Global, err)
	}

	return lists, nil
}

// Save writes the lists as JSON objects keyed by id, the same layout Load reads.
func Save(paths Paths, lists Lists) error {
	files := []struct {
		path  string
		value any
	}{
		{paths.Countries, nonNil(lists.Countries)},
		{paths.Regions, nonNil(lists.Regions)},
		{paths.Global, map[string][]string{GlobalKey: append([]string{}, lists.Global...)}},
	}

	for _, f := range files {
		if f.path == "" {
			continue
		}
		if dir := filepath.Dir(f.path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
		data, err := json.MarshalIndent(f.value, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.path, err)
		}
		if err := os.WriteFile(f.path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
	}
	return nil
}

func nonNil(m map[string][]string) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return m
}

func readFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read preference file: %v", core.ErrConfig, err)
	}

	var v any
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		err = yaml.Unmarshal(data, &v)
	} else {
		err = json.Unmarshal(data, &v)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse preference file %s: %v", core.ErrParse, path, err)
	}
	return normalize(v), nil
}

// normalize turns YAML maps with non-string keys into string keyed maps.
func normalize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[idString(k)] = normalize(val)
		}
		return out
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}

func keyedLists(v any, idField string) (map[string][]string, error) {
	out := make(map[string][]string)
	switch t := v.(type) {
	case nil:
		return out, nil
	case map[string]any:
		for k, raw := range t {
			list, err := stringList(raw)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", idField, k, err)
			}
			out[k] = list
		}
	case []any:
		for i, item := range t {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("record %d is not an object", i)
			}
			id, ok := rec[idField]
			if !ok || id == nil {
				return nil, fmt.Errorf("record %d has no %s", i, idField)
			}
			list, err := stringList(rec["components"])
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			out[idString(id)] = list
		}
	default:
		return nil, fmt.Errorf("unexpected %T", v)
	}
	return out, nil
}

func stringList(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("components must be a list, got %T", v)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, idString(item))
	}
	return out, nil
}

// idString renders JSON and YAML scalars the way they appear as object keys.
func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// Keys returns the ids of a keyed list in sorted order.
func Keys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
