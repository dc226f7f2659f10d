package preferences

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadRecordsAndObjects(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Countries: writeFile(t, dir, "countries.json", `[{"country": 14, "components": ["Logistics", "Coordination"]}]`),
		Regions:   writeFile(t, dir, "regions.json", `{"2": ["Shelter"]}`),
		Global:    writeFile(t, dir, "global.json", `{"global": ["Health", "WASH"]}`),
	}

	lists, err := Load(paths)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := lists.Countries["14"]; !reflect.DeepEqual(got, []string{"Logistics", "Coordination"}) {
		t.Errorf("Unexpected country list: %v", got)
	}
	if got := lists.Regions["2"]; !reflect.DeepEqual(got, []string{"Shelter"}) {
		t.Errorf("Unexpected region list: %v", got)
	}
	if !reflect.DeepEqual(lists.Global, []string{"Health", "WASH"}) {
		t.Errorf("Unexpected global list: %v", lists.Global)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Countries: writeFile(t, dir, "countries.yaml", "14:\n  - Logistics\n"),
		Regions:   writeFile(t, dir, "regions.yml", "- region: 3\n  components: [Health]\n"),
		Global:    writeFile(t, dir, "global.yaml", "- Coordination\n"),
	}

	lists, err := Load(paths)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := lists.Countries["14"]; !reflect.DeepEqual(got, []string{"Logistics"}) {
		t.Errorf("Unexpected country list: %v", got)
	}
	if got := lists.Regions["3"]; !reflect.DeepEqual(got, []string{"Health"}) {
		t.Errorf("Unexpected region list: %v", got)
	}
	if !reflect.DeepEqual(lists.Global, []string{"Coordination"}) {
		t.Errorf("Unexpected global list: %v", lists.Global)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", `{}`)
	bad := writeFile(t, dir, "bad.json", `{not json`)

	_, err := Load(Paths{Countries: filepath.Join(dir, "missing.json"), Regions: good, Global: good})
	if !errors.Is(err, core.ErrConfig) {
		t.Errorf("Expected ErrConfig for missing file, got %v", err)
	}

	_, err = Load(Paths{Countries: good, Regions: bad, Global: good})
	if !errors.Is(err, core.ErrParse) {
		t.Errorf("Expected ErrParse for malformed file, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Countries: filepath.Join(dir, "out", "countries.json"),
		Regions:   filepath.Join(dir, "out", "regions.json"),
		Global:    filepath.Join(dir, "out", "global.json"),
	}
	want := Lists{
		Countries: map[string][]string{"14": {"Logistics"}},
		Regions:   map[string][]string{"2": {"Health", "Shelter"}},
		Global:    []string{"Health"},
	}

	if err := Save(paths, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(paths)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestLatestAssessments(t *testing.T) {
	latest := LatestAssessments([]Assessment{
		{CountryID: 1, AssessmentNumber: 1, Components: []string{"A"}},
		{CountryID: 1, AssessmentNumber: 2, Components: []string{"B"}},
		{CountryID: 1, AssessmentNumber: 3, IsDraft: true, Components: []string{"C"}},
		{CountryID: 2, AssessmentNumber: 1},
	})

	if len(latest) != 1 {
		t.Fatalf("Expected one country, got %v", latest)
	}
	if !reflect.DeepEqual(latest[0].Components, []string{"B"}) {
		t.Errorf("Expected latest non-draft components [B], got %v", latest[0].Components)
	}
}

func TestGenerate(t *testing.T) {
	var latest []Assessment
	// Regions 1, 2 and 3 each have three countries prioritizing Logistics.
	id := int64(100)
	for region := int64(1); region <= 3; region++ {
		for i := 0; i < 3; i++ {
			components := []string{"Logistics"}
			if region == 1 {
				components = append(components, "Health")
			}
			latest = append(latest, Assessment{CountryID: id, RegionID: region, Components: components})
			id++
		}
	}
	countries := []Country{
		{ID: 100, RegionID: 1},
		{ID: 500, RegionID: 2},
		{ID: 600},
	}

	lists := Generate(latest, countries)

	if got := lists.Regions["1"]; !reflect.DeepEqual(got, []string{"Health", "Logistics"}) {
		t.Errorf("Unexpected region 1 list: %v", got)
	}
	if !reflect.DeepEqual(lists.Global, []string{"Logistics"}) {
		t.Errorf("Expected global [Logistics], got %v", lists.Global)
	}
	if got := lists.Countries["100"]; !reflect.DeepEqual(got, []string{"Logistics", "Health"}) {
		t.Errorf("Assessed country should keep its own list, got %v", got)
	}
	if got := lists.Countries["500"]; !reflect.DeepEqual(got, []string{"Logistics"}) {
		t.Errorf("Unassessed country should inherit its region, got %v", got)
	}
	if got := lists.Countries["600"]; !reflect.DeepEqual(got, []string{"Logistics"}) {
		t.Errorf("Country without region should inherit the global list, got %v", got)
	}
}
