package prioritize

import (
	"fmt"
	"sort"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/tokenizer"
)

// Selection is the prompt-ready result of budgeting a collection.
// Primary selections fill Excerpts; secondary selections fill Groups.
type Selection struct {
	Mode     core.Mode
	Limit    int
	Excerpts []core.Excerpt
	Groups   []core.ExcerptGroup
}

// IDs returns the ids of every excerpt that made it into the selection.
func (s Selection) IDs() []int64 {
	unique := s.Unique()
	ids := make([]int64, 0, len(unique))
	for _, e := range unique {
		ids = append(ids, e.ID)
	}
	return ids
}

// Unique returns the selected excerpts once each, in prompt order. A secondary
// excerpt can sit in both its sector group and its component group.
func (s Selection) Unique() []core.Excerpt {
	var out []core.Excerpt
	seen := make(map[int64]bool)
	add := func(e core.Excerpt) {
		if !seen[e.ID] {
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	for _, e := range s.Excerpts {
		add(e)
	}
	for _, g := range s.Groups {
		for _, e := range g.Excerpts {
			add(e)
		}
	}
	return out
}

// Empty reports whether nothing survived selection.
func (s Selection) Empty() bool {
	return len(s.Excerpts) == 0 && len(s.Groups) == 0
}

// Select orders and budgets excerpts for the given mode.
func Select(excerpts []core.Excerpt, mode core.Mode, limit int, counter tokenizer.Counter) (Selection, error) {
	if err := mode.Validate(); err != nil {
		return Selection{}, fmt.Errorf("select excerpts: %w", err)
	}

	sel := Selection{Mode: mode, Limit: limit}
	if mode == core.ModePrimary {
		sel.Excerpts = Slice(OrderByRecency(excerpts), limit, counter)
		return sel, nil
	}
	sel.Groups = BudgetGroups(excerpts, limit, counter)
	return sel, nil
}

// OrderByRecency returns a copy sorted by appeal year, most recent first.
// Excerpts from the same year keep their input order.
func OrderByRecency(excerpts []core.Excerpt) []core.Excerpt {
	out := make([]core.Excerpt, len(excerpts))
	copy(out, excerpts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AppealYear > out[j].AppealYear
	})
	return out
}

// InterleaveByComponent partitions excerpts by component, orders each
// partition by recency and takes one excerpt from each partition in turn.
// Partitions are visited in component label order.
func InterleaveByComponent(excerpts []core.Excerpt) []core.Excerpt {
	partitions := make(map[string][]core.Excerpt)
	var labels []string
	for _, e := range excerpts {
		if _, ok := partitions[e.Component]; !ok {
			labels = append(labels, e.Component)
		}
		partitions[e.Component] = append(partitions[e.Component], e)
	}
	sort.Strings(labels)

	ordered := make([][]core.Excerpt, len(labels))
	longest := 0
	for i, label := range labels {
		ordered[i] = OrderByRecency(partitions[label])
		if len(ordered[i]) > longest {
			longest = len(ordered[i])
		}
	}

	out := make([]core.Excerpt, 0, len(excerpts))
	for round := 0; round < longest; round++ {
		for _, part := range ordered {
			if round < len(part) {
				out = append(out, part[round])
			}
		}
	}
	return out
}

// Slice keeps the longest prefix whose cumulative token count stays within
// limit. When the whole sequence fits, or the first excerpt alone is over the
// limit, the sequence is returned unchanged.
func Slice(excerpts []core.Excerpt, limit int, counter tokenizer.Counter) []core.Excerpt {
	out := make([]core.Excerpt, len(excerpts))
	copy(out, excerpts)

	total := 0
	for i, e := range out {
		total += counter.Count(e.Learning)
		if total > limit {
			if i == 0 {
				return out
			}
			return out[:i]
		}
	}
	return out
}

// GroupBudget splits limit evenly across groups using integer division.
// It returns 0 when there are no groups.
func GroupBudget(limit, groups int) int {
	if groups <= 0 {
		return 0
	}
	return limit / groups
}

// BudgetGroups builds the labeled sector and component groups of a secondary
// summary. Each group is sliced independently with an equal share of limit.
// Sector groups come first, then component groups, each in label order.
func BudgetGroups(excerpts []core.Excerpt, limit int, counter tokenizer.Counter) []core.ExcerptGroup {
	ordered := InterleaveByComponent(excerpts)

	sectors := distinctLabels(ordered, func(e core.Excerpt) string { return e.Sector })
	components := distinctLabels(ordered, func(e core.Excerpt) string { return e.Component })

	if len(sectors)+len(components) == 0 {
		return nil
	}
	perGroup := GroupBudget(limit, len(sectors)+len(components))

	groups := make([]core.ExcerptGroup, 0, len(sectors)+len(components))
	for _, s := range sectors {
		members := filter(ordered, func(e core.Excerpt) bool { return e.Sector == s })
		groups = append(groups, core.ExcerptGroup{
			Type:     core.GroupSector,
			Subtype:  s,
			Excerpts: Slice(members, perGroup, counter),
		})
	}
	for _, c := range components {
		members := filter(ordered, func(e core.Excerpt) bool { return e.Component == c })
		groups = append(groups, core.ExcerptGroup{
			Type:     core.GroupComponent,
			Subtype:  c,
			Excerpts: Slice(members, perGroup, counter),
		})
	}
	return groups
}

func distinctLabels(excerpts []core.Excerpt, label func(core.Excerpt) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range excerpts {
		l := label(e)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func filter(excerpts []core.Excerpt, keep func(core.Excerpt) bool) []core.Excerpt {
	var out []core.Excerpt
	for _, e := range excerpts {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
