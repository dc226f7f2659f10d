package pipeline

import (
	"context"
	"fmt"

	"github.com/IFRCGo/extractor-operational-learnings/internal/goapi"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/IFRCGo/extractor-operational-learnings/internal/preferences"
)

// PERSource is the part of the GO client used to build preference lists
type PERSource interface {
	FetchPerPrioritizations(ctx context.Context) ([]goapi.PerPrioritization, error)
	FetchPerOverviews(ctx context.Context) ([]goapi.PerOverview, error)
	FetchCountries(ctx context.Context) ([]goapi.Country, error)
	FetchPerFormComponents(ctx context.Context) ([]goapi.PerFormComponent, error)
}

// nonSocieties are society names of country records that are not National Societies.
var nonSocieties = map[string]bool{
	"IFRC Africa":       true,
	"IFRC Americas":     true,
	"IFRC Asia-Pacific": true,
	"IFRC Europe":       true,
	"IFRC Geneva":       true,
	"IFRC MENA":         true,
	"Benelux ERU":       true,
	"ICRC":              true,
}

// GeneratePreferenceLists rebuilds the preference lists from the latest PER
// prioritization of every National Society and saves them to paths.
func GeneratePreferenceLists(ctx context.Context, api PERSource, paths preferences.Paths) (preferences.Lists, error) {
	prioritizations, err := api.FetchPerPrioritizations(ctx)
	if err != nil {
		return preferences.Lists{}, err
	}
	overviews, err := api.FetchPerOverviews(ctx)
	if err != nil {
		return preferences.Lists{}, err
	}
	countries, err := api.FetchCountries(ctx)
	if err != nil {
		return preferences.Lists{}, err
	}
	components, err := api.FetchPerFormComponents(ctx)
	if err != nil {
		return preferences.Lists{}, err
	}

	lists := BuildPreferenceLists(prioritizations, overviews, countries, components)
	logger.Info("Generated preference lists", "countries", len(lists.Countries), "regions", len(lists.Regions), "global", len(lists.Global))

	if err := preferences.Save(paths, lists); err != nil {
		return preferences.Lists{}, fmt.Errorf("failed to save preference lists: %w", err)
	}
	return lists, nil
}

// BuildPreferenceLists joins prioritizations with their overview and maps
// component ids to titles before generating the lists.
func BuildPreferenceLists(
	prioritizations []goapi.PerPrioritization,
	overviews []goapi.PerOverview,
	countries []goapi.Country,
	components []goapi.PerFormComponent,
) preferences.Lists {
	titles := make(map[goapi.ID]string, len(components))
	for _, c := range components {
		titles[c.ID] = c.Title
	}

	byOverview := make(map[goapi.ID]goapi.PerOverview, len(overviews))
	for _, o := range overviews {
		byOverview[o.ID] = o
	}

	var assessments []preferences.Assessment
	for _, p := range prioritizations {
		overview, ok := byOverview[p.Overview]
		if !ok || overview.CountryDetails == nil {
			continue
		}
		var labels []string
		for _, action := range p.PrioritizedActionResponses {
			if title, ok := titles[action.Component]; ok && title != "" {
				labels = append(labels, title)
			}
		}
		assessments = append(assessments, preferences.Assessment{
			CountryID:        int64(overview.CountryDetails.ID),
			RegionID:         int64(overview.CountryDetails.Region),
			AssessmentNumber: overview.AssessmentNumber,
			IsDraft:          p.IsDraft,
			Components:       labels,
		})
	}

	var societies []preferences.Country
	for _, c := range countries {
		if c.SocietyName == "" || nonSocieties[c.SocietyName] {
			continue
		}
		societies = append(societies, preferences.Country{ID: int64(c.ID), RegionID: int64(c.Region)})
	}

	return preferences.Generate(preferences.LatestAssessments(assessments), societies)
}
