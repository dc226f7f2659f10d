package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/goapi"
	"github.com/IFRCGo/extractor-operational-learnings/internal/preferences"
)

type mockPERSource struct {
	prioritizations []goapi.PerPrioritization
	overviews       []goapi.PerOverview
	countries       []goapi.Country
	components      []goapi.PerFormComponent
	err             error
}

func (m *mockPERSource) FetchPerPrioritizations(ctx context.Context) ([]goapi.PerPrioritization, error) {
	return m.prioritizations, m.err
}

func (m *mockPERSource) FetchPerOverviews(ctx context.Context) ([]goapi.PerOverview, error) {
	return m.overviews, nil
}

func (m *mockPERSource) FetchCountries(ctx context.Context) ([]goapi.Country, error) {
	return m.countries, nil
}

func (m *mockPERSource) FetchPerFormComponents(ctx context.Context) ([]goapi.PerFormComponent, error) {
	return m.components, nil
}

func actions(ids ...goapi.ID) []goapi.PrioritizedAction {
	out := make([]goapi.PrioritizedAction, len(ids))
	for i, id := range ids {
		out[i] = goapi.PrioritizedAction{Component: id}
	}
	return out
}

func perFixture() *mockPERSource {
	return &mockPERSource{
		components: []goapi.PerFormComponent{
			{ID: 1, Title: "Logistics"},
			{ID: 2, Title: "Coordination"},
		},
		overviews: []goapi.PerOverview{
			{ID: 10, AssessmentNumber: 1, CountryDetails: &goapi.CountryRef{ID: 101, Region: 1}},
			{ID: 11, AssessmentNumber: 2, CountryDetails: &goapi.CountryRef{ID: 101, Region: 1}},
			{ID: 12, AssessmentNumber: 1, CountryDetails: &goapi.CountryRef{ID: 102, Region: 1}},
			{ID: 13, AssessmentNumber: 1, CountryDetails: &goapi.CountryRef{ID: 103, Region: 1}},
			{ID: 14, AssessmentNumber: 3, CountryDetails: &goapi.CountryRef{ID: 103, Region: 1}},
			{ID: 15, AssessmentNumber: 1},
		},
		prioritizations: []goapi.PerPrioritization{
			{Overview: 10, PrioritizedActionResponses: actions(2)},
			{Overview: 11, PrioritizedActionResponses: actions(1)},
			{Overview: 12, PrioritizedActionResponses: actions(1, 2)},
			{Overview: 13, PrioritizedActionResponses: actions(1)},
			{Overview: 14, IsDraft: true, PrioritizedActionResponses: actions(2)},
			{Overview: 15, PrioritizedActionResponses: actions(2)},
			{Overview: 99, PrioritizedActionResponses: actions(2)},
		},
		countries: []goapi.Country{
			{ID: 101, SocietyName: "Red Cross A", Region: 1},
			{ID: 104, SocietyName: "Red Crescent B", Region: 1},
			{ID: 105, SocietyName: "IFRC Africa", Region: 1},
			{ID: 106, Name: "No society", Region: 1},
		},
	}
}

func TestBuildPreferenceLists(t *testing.T) {
	src := perFixture()
	lists := BuildPreferenceLists(src.prioritizations, src.overviews, src.countries, src.components)

	if got := lists.Regions["1"]; !reflect.DeepEqual(got, []string{"Logistics"}) {
		t.Errorf("Expected region 1 to prefer Logistics, got %v", got)
	}
	if len(lists.Global) != 0 {
		t.Errorf("Expected empty global list with a single region, got %v", lists.Global)
	}
	if got := lists.Countries["101"]; !reflect.DeepEqual(got, []string{"Logistics"}) {
		t.Errorf("Expected latest assessment for country 101, got %v", got)
	}
	if got := lists.Countries["103"]; !reflect.DeepEqual(got, []string{"Logistics"}) {
		t.Errorf("Draft assessment should be ignored for country 103, got %v", got)
	}
	if got := lists.Countries["104"]; !reflect.DeepEqual(got, []string{"Logistics"}) {
		t.Errorf("Unassessed society should inherit its region list, got %v", got)
	}
	for _, id := range []string{"105", "106"} {
		if _, ok := lists.Countries[id]; ok {
			t.Errorf("Country %s is not a National Society and should be skipped", id)
		}
	}
}

func TestGeneratePreferenceLists(t *testing.T) {
	dir := t.TempDir()
	paths := preferences.Paths{
		Countries: filepath.Join(dir, "countries.json"),
		Regions:   filepath.Join(dir, "regions.json"),
		Global:    filepath.Join(dir, "global.json"),
	}

	lists, err := GeneratePreferenceLists(context.Background(), perFixture(), paths)
	if err != nil {
		t.Fatalf("GeneratePreferenceLists failed: %v", err)
	}

	loaded, err := preferences.Load(paths)
	if err != nil {
		t.Fatalf("Failed to load saved lists: %v", err)
	}
	if !reflect.DeepEqual(loaded.Regions, lists.Regions) {
		t.Errorf("Saved regions %v differ from generated %v", loaded.Regions, lists.Regions)
	}
}

func TestGeneratePreferenceListsError(t *testing.T) {
	src := &mockPERSource{err: core.ErrTransport}
	if _, err := GeneratePreferenceLists(context.Background(), src, preferences.Paths{}); !errors.Is(err, core.ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
}
