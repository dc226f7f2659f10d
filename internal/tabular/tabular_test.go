package tabular

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
)

func TestReadExcerpts(t *testing.T) {
	input := "\ufeffid,learning,appeal_code,appeal_year,country_id,region_id,component,extra\n" +
		"7,\"Trucks arrived late, twice\",MDRBD028,2022.0,14,1,Logistics,x\n" +
		"8,Volunteers lacked training,MDRSO010,,,,,\n"

	excerpts, err := ReadExcerpts(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadExcerpts failed: %v", err)
	}
	if len(excerpts) != 2 {
		t.Fatalf("Expected 2 excerpts, got %d", len(excerpts))
	}

	first := excerpts[0]
	if first.ID != 7 || first.Learning != "Trucks arrived late, twice" || first.AppealYear != 2022 {
		t.Errorf("Unexpected first excerpt %+v", first)
	}
	if first.CountryID != 14 || first.RegionID != 1 || first.Component != "Logistics" {
		t.Errorf("Unexpected first excerpt %+v", first)
	}
	if excerpts[1].AppealYear != 0 || excerpts[1].Component != "" {
		t.Errorf("Expected zero values for empty cells, got %+v", excerpts[1])
	}
}

func TestReadExcerptsErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing learning column", "id,text\n1,a\n"},
		{"bad id", "id,learning\nabc,a\n"},
		{"duplicate id", "id,learning\n1,a\n1,b\n"},
		{"bad year", "id,learning,appeal_year\n1,a,soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadExcerpts(strings.NewReader(tt.input))
			if !errors.Is(err, core.ErrParse) {
				t.Errorf("Expected ErrParse, got %v", err)
			}
		})
	}
}

func TestReadExcerptsEmpty(t *testing.T) {
	excerpts, err := ReadExcerpts(strings.NewReader(""))
	if err != nil || len(excerpts) != 0 {
		t.Errorf("Expected empty result, got %v, %v", excerpts, err)
	}
}

func TestWriteThenReadFile(t *testing.T) {
	excerpts := []core.Excerpt{
		{ID: 1, Learning: "Line one\nline two", AppealCode: "MDRBD028", AppealYear: 2022, CountryID: 14, CountryName: "Bangladesh", RegionID: 2, RegionName: "Asia Pacific", DTypeName: "Flood", Component: "Logistics", Sector: "Shelter", Finding: "Challenges"},
		{ID: 2, Learning: "Quoted \"text\"", AppealCode: "MDRSO010", AppealYear: 2021},
	}

	path := filepath.Join(t.TempDir(), "nested", "excerpts.csv")
	if err := WriteExcerptsFile(path, excerpts); err != nil {
		t.Fatalf("WriteExcerptsFile failed: %v", err)
	}

	got, err := ReadExcerptsFile(path)
	if err != nil {
		t.Fatalf("ReadExcerptsFile failed: %v", err)
	}
	if len(got) != len(excerpts) {
		t.Fatalf("Expected %d excerpts, got %d", len(excerpts), len(got))
	}
	for i := range excerpts {
		if got[i] != excerpts[i] {
			t.Errorf("Excerpt %d: expected %+v, got %+v", i, excerpts[i], got[i])
		}
	}
}

func TestReadExcerptsFileMissing(t *testing.T) {
	_, err := ReadExcerptsFile(filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.Is(err, core.ErrConfig) {
		t.Errorf("Expected ErrConfig, got %v", err)
	}
}

func TestWriteRecords(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecords(&buf, []string{"a", "b"}, [][]string{{"1", "x,y"}}); err != nil {
		t.Fatalf("WriteRecords failed: %v", err)
	}
	if buf.String() != "a,b\n1,\"x,y\"\n" {
		t.Errorf("Unexpected output %q", buf.String())
	}
}
