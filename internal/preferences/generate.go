package preferences

import (
	"sort"
	"strconv"
)

// MinSupport is the number of countries (for a region list) or regions (for
// the global list) that must share a component before it is preferred.
const MinSupport = 3

// Assessment is one PER prioritization of a country.
type Assessment struct {
	CountryID        int64
	RegionID         int64
	AssessmentNumber int
	IsDraft          bool
	Components       []string
}

// Country is a National Society country and its region, 0 when unknown.
type Country struct {
	ID       int64
	RegionID int64
}

// LatestAssessments keeps the highest numbered non-draft assessment with at
// least one component for each country.
func LatestAssessments(assessments []Assessment) []Assessment {
	latest := make(map[int64]Assessment)
	for _, a := range assessments {
		if a.IsDraft || len(a.Components) == 0 {
			continue
		}
		prev, ok := latest[a.CountryID]
		if !ok || a.AssessmentNumber >= prev.AssessmentNumber {
			latest[a.CountryID] = a
		}
	}

	out := make([]Assessment, 0, len(latest))
	for _, a := range latest {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CountryID < out[j].CountryID })
	return out
}

// Generate builds preference lists from the latest assessment of each country.
// A region prefers the components prioritized by at least MinSupport of its
// countries; the global list holds components preferred by at least MinSupport
// regions. Countries without an assessment inherit their region's list, or the
// global list when they have no region.
func Generate(latest []Assessment, countries []Country) Lists {
	regionSupport := make(map[int64]map[string]int)
	for _, a := range latest {
		if regionSupport[a.RegionID] == nil {
			regionSupport[a.RegionID] = make(map[string]int)
		}
		for _, c := range uniqueStrings(a.Components) {
			regionSupport[a.RegionID][c]++
		}
	}

	lists := Lists{
		Countries: make(map[string][]string),
		Regions:   make(map[string][]string),
	}

	globalSupport := make(map[string]int)
	for region, support := range regionSupport {
		var components []string
		for c, n := range support {
			if n >= MinSupport {
				components = append(components, c)
			}
		}
		if len(components) == 0 {
			continue
		}
		sort.Strings(components)
		lists.Regions[strconv.FormatInt(region, 10)] = components
		for _, c := range components {
			globalSupport[c]++
		}
	}

	for c, n := range globalSupport {
		if n >= MinSupport {
			lists.Global = append(lists.Global, c)
		}
	}
	sort.Strings(lists.Global)

	assessed := make(map[int64]bool)
	for _, a := range latest {
		assessed[a.CountryID] = true
		lists.Countries[strconv.FormatInt(a.CountryID, 10)] = uniqueStrings(a.Components)
	}
	for _, c := range countries {
		if assessed[c.ID] {
			continue
		}
		key := strconv.FormatInt(c.ID, 10)
		if c.RegionID != 0 {
			lists.Countries[key] = lists.Regions[strconv.FormatInt(c.RegionID, 10)]
		} else {
			lists.Countries[key] = lists.Global
		}
		if lists.Countries[key] == nil {
			lists.Countries[key] = []string{}
		}
	}

	return lists
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
