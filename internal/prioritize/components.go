package prioritize

import (
	"sort"
	"strconv"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/preferences"
)

const (
	// MinDistinctComponents is the number of components kept when prioritizing,
	// and the diversity above which prioritization kicks in.
	MinDistinctComponents = 3
	// MinDistinctExcerpts is the number of distinct learning texts above which
	// prioritization kicks in.
	MinDistinctExcerpts = 3
)

// Scope says which preference list applies to a collection.
type Scope string

const (
	ScopeSingleCountry Scope = "single-country"
	ScopeSingleRegion  Scope = "single-region"
	ScopeMultiRegion   Scope = "multi-region"
	ScopeUndefined     Scope = ""
)

// NeedsComponentPrioritization reports whether the collection is diverse enough
// to be narrowed down to a few components. Small collections pass unchanged.
// Excerpts without a component count as one more distinct value.
func NeedsComponentPrioritization(excerpts []core.Excerpt) bool {
	components := make(map[string]bool)
	learnings := make(map[string]bool)
	for _, e := range excerpts {
		components[e.Component] = true
		learnings[e.Learning] = true
	}
	return len(components) > MinDistinctComponents && len(learnings) > MinDistinctExcerpts
}

// ResolveScope identifies the geographical scope of a collection.
func ResolveScope(excerpts []core.Excerpt) Scope {
	countries := make(map[int64]bool)
	regions := make(map[int64]bool)
	for _, e := range excerpts {
		countries[e.CountryID] = true
		regions[e.RegionID] = true
	}

	switch {
	case len(countries) == 1:
		return ScopeSingleCountry
	case len(regions) == 1:
		return ScopeSingleRegion
	case len(regions) > 1:
		return ScopeMultiRegion
	default:
		return ScopeUndefined
	}
}

// PreferredComponents returns the preference list for the scope of a collection.
// Multi-region and undefined scopes use the global list.
func PreferredComponents(excerpts []core.Excerpt, scope Scope, lists preferences.Lists) []string {
	if len(excerpts) == 0 {
		return lists.Global
	}
	switch scope {
	case ScopeSingleCountry:
		return lists.Countries[strconv.FormatInt(excerpts[0].CountryID, 10)]
	case ScopeSingleRegion:
		return lists.Regions[strconv.FormatInt(excerpts[0].RegionID, 10)]
	default:
		return lists.Global
	}
}

// PrioritizeComponents keeps the excerpts of the most relevant components when
// the collection covers too many of them. The most frequent component(s) seed
// the selection; further components come from the scope's preference list when
// it intersects the data, otherwise from the remaining most frequent ones.
func PrioritizeComponents(excerpts []core.Excerpt, lists preferences.Lists) []core.Excerpt {
	if !NeedsComponentPrioritization(excerpts) {
		return excerpts
	}

	scope := ResolveScope(excerpts)
	preferred := PreferredComponents(excerpts, scope, lists)
	selected := SelectComponents(excerpts, preferred)

	out := make([]core.Excerpt, 0, len(excerpts))
	for _, e := range excerpts {
		if selected[e.Component] {
			out = append(out, e)
		}
	}
	return out
}

// SelectComponents runs the selection loop and returns the chosen components.
// It stops once MinDistinctComponents are selected or nothing is left to add;
// ties in the last round can push the selection above the minimum.
func SelectComponents(excerpts []core.Excerpt, preferred []string) map[string]bool {
	counts := componentCounts(excerpts)
	selected := make(map[string]bool)

	for _, c := range mostFrequent(counts, nil) {
		selected[c] = true
	}

	for len(selected) < MinDistinctComponents {
		remaining := make(map[string]bool)
		for c := range counts {
			if !selected[c] {
				remaining[c] = true
			}
		}
		if len(remaining) == 0 {
			break
		}

		candidates := make(map[string]bool)
		for _, c := range preferred {
			if remaining[c] {
				candidates[c] = true
			}
		}
		if len(candidates) == 0 {
			candidates = remaining
		}

		for _, c := range mostFrequent(counts, candidates) {
			selected[c] = true
		}
	}

	return selected
}

func componentCounts(excerpts []core.Excerpt) map[string]int {
	counts := make(map[string]int)
	for _, e := range excerpts {
		if e.Component == "" {
			continue
		}
		counts[e.Component]++
	}
	return counts
}

// mostFrequent returns the components with the highest count, restricted to
// among when it is non-nil, sorted by label.
func mostFrequent(counts map[string]int, among map[string]bool) []string {
	best := 0
	var winners []string
	for c, n := range counts {
		if among != nil && !among[c] {
			continue
		}
		switch {
		case n > best:
			best = n
			winners = []string{c}
		case n == best:
			winners = append(winners, c)
		}
	}
	sort.Strings(winners)
	return winners
}
