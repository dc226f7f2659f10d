// Package prompt renders the summary prompt from the selected excerpts.
//
// A prompt is four sections concatenated in a fixed order: an introduction,
// the instructions derived from the request filter, the excerpt data and the
// format section loaded verbatim from a file.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/IFRCGo/extractor-operational-learnings/internal/config"
	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/prioritize"
)

const (
	// Separator joins excerpts inside the data section.
	Separator = "\n----------------\n"
	// Rule underlines section titles.
	Rule = "========================"

	intro = "I will provide you with a set of instructions, data, and formatting requests in three sections. I will pass you the INSTRUCTIONS section, are you ready?\n\n"

	closingInstruction = "in Emergency Response. You should prioritize the insights based on their recurrence and potential impact on humanitarian operations, and provide the top 3 insights. Describe step by step your thought process.\n\nI will pass you the DATA section, are you ready?\n\n"

	dataOutro = "\n\nI will pass you the FORMAT section, are you ready?\n\n"
)

// Templates holds the externally supplied prompt texts.
type Templates struct {
	SystemMessage   string
	PrimaryFormat   string
	SecondaryFormat string
}

// LoadTemplates reads the system message and both format sections.
func LoadTemplates(paths config.Prompts) (Templates, error) {
	var t Templates
	files := []struct {
		path string
		dst  *string
	}{
		{paths.SystemMessage, &t.SystemMessage},
		{paths.PrimaryFormat, &t.PrimaryFormat},
		{paths.SecondaryFormat, &t.SecondaryFormat},
	}
	for _, f := range files {
		data, err := os.ReadFile(f.path)
		if err != nil {
			return Templates{}, fmt.Errorf("%w: failed to read prompt file: %v", core.ErrConfig, err)
		}
		*f.dst = string(data)
	}
	return t, nil
}

// Format returns the format section for a mode.
func (t Templates) Format(mode core.Mode) string {
	if mode == core.ModeSecondary {
		return t.SecondaryFormat
	}
	return t.PrimaryFormat
}

// Build assembles the full prompt for a selection.
func Build(filter core.RequestFilter, sel prioritize.Selection, format string) string {
	excerpts := append([]core.Excerpt{}, sel.Excerpts...)
	for _, g := range sel.Groups {
		excerpts = append(excerpts, g.Excerpts...)
	}

	var b strings.Builder
	b.WriteString(intro)
	b.WriteString(Instructions(filter, excerpts))
	if sel.Mode == core.ModeSecondary {
		b.WriteString(GroupedData(sel.Groups))
	} else {
		b.WriteString(Data(sel.Excerpts))
	}
	b.WriteString(format)
	return b.String()
}

type clause struct {
	key    string
	layout string
	column func(core.Excerpt) string
}

var clauses = []clause{
	{core.FilterDisasterType, `concerning "%s" occurrences`, func(e core.Excerpt) string { return e.DTypeName }},
	{core.FilterCountry, `in "%s"`, func(e core.Excerpt) string { return e.CountryName }},
	{core.FilterRegion, `in "%s"`, func(e core.Excerpt) string { return e.RegionName }},
	{core.FilterSector, `focusing on "%s" aspects`, func(e core.Excerpt) string { return e.Sector }},
	{core.FilterComponent, `and "%s" aspects`, func(e core.Excerpt) string { return e.Component }},
}

// Instructions renders the instruction section. Every active filter key adds
// a clause naming the distinct values of its column, in first-seen order.
func Instructions(filter core.RequestFilter, excerpts []core.Excerpt) string {
	lines := []string{"INSTRUCTIONS", Rule, "Summarize essential insights from the DATA"}
	for _, c := range clauses {
		if !filter.Has(c.key) {
			continue
		}
		values := distinct(excerpts, c.column)
		lines = append(lines, fmt.Sprintf(c.layout, strings.Join(values, `", "`)))
	}
	lines = append(lines, closingInstruction)
	return strings.Join(lines, "\n")
}

// Data renders the data section of a primary prompt.
func Data(excerpts []core.Excerpt) string {
	return "DATA\n" + Rule + "\n" + joinLearnings(excerpts) + dataOutro
}

// GroupedData renders the data section of a secondary prompt, one labeled
// block per group.
func GroupedData(groups []core.ExcerptGroup) string {
	blocks := make([]string, 0, len(groups))
	for _, g := range groups {
		blocks = append(blocks, fmt.Sprintf("Type: %s\nSubtype: %s\n%s", g.Type, g.Subtype, joinLearnings(g.Excerpts)))
	}
	return "DATA\n" + Rule + "\n" + strings.Join(blocks, "\n\n") + dataOutro
}

func joinLearnings(excerpts []core.Excerpt) string {
	learnings := make([]string, 0, len(excerpts))
	for _, e := range excerpts {
		if e.Learning == "" {
			continue
		}
		learnings = append(learnings, e.Learning)
	}
	return strings.Join(learnings, Separator)
}

func distinct(excerpts []core.Excerpt, column func(core.Excerpt) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range excerpts {
		v := column(e)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// DataSection returns the excerpt text of an assembled prompt, without the
// section title and the closing question.
func DataSection(p string) string {
	const head = "DATA\n" + Rule + "\n"
	i := strings.Index(p, head)
	if i < 0 {
		return ""
	}
	rest := p[i+len(head):]
	if j := strings.Index(rest, dataOutro); j >= 0 {
		return rest[:j]
	}
	return rest
}

// FilterClauses returns the filter clauses of an assembled prompt's
// instructions on one line, empty when no filter applied.
func FilterClauses(p string) string {
	const head = "Summarize essential insights from the DATA\n"
	i := strings.Index(p, head)
	if i < 0 {
		return ""
	}
	rest := p[i+len(head):]
	j := strings.Index(rest, closingInstruction)
	if j < 0 {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(rest[:j], "\n", " "))
}
