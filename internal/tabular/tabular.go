// Package tabular reads and writes excerpt collections as CSV tables keyed by id.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
)

// Columns is the header written for excerpt tables.
var Columns = []string{
	"id",
	"learning",
	"appeal_code",
	"appeal_year",
	"country_id",
	"country_name",
	"region_id",
	"region_name",
	"dtype_name",
	"component",
	"sector",
	"finding",
}

// ReadExcerpts parses an excerpt table. Only the id and learning columns are
// required; unknown columns are ignored.
func ReadExcerpts(r io.Reader) ([]core.Excerpt, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", core.ErrParse, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{"id", "learning"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", core.ErrParse, required)
		}
	}

	var excerpts []core.Excerpt
	seen := make(map[int64]bool)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", core.ErrParse, line, err)
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		id, err := parseInt(field("id"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid id: %v", core.ErrParse, line, err)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: line %d: duplicate id %d", core.ErrParse, line, id)
		}
		seen[id] = true

		year, err := parseInt(field("appeal_year"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid appeal_year: %v", core.ErrParse, line, err)
		}
		countryID, err := parseInt(field("country_id"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid country_id: %v", core.ErrParse, line, err)
		}
		regionID, err := parseInt(field("region_id"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid region_id: %v", core.ErrParse, line, err)
		}

		excerpts = append(excerpts, core.Excerpt{
			ID:          id,
			Learning:    record[index["learning"]],
			AppealCode:  field("appeal_code"),
			AppealYear:  int(year),
			CountryID:   countryID,
			CountryName: field("country_name"),
			RegionID:    regionID,
			RegionName:  field("region_name"),
			DTypeName:   field("dtype_name"),
			Component:   field("component"),
			Sector:      field("sector"),
			Finding:     field("finding"),
		})
	}

	return excerpts, nil
}

// parseInt accepts empty values and the "12.0" form spreadsheets produce.
func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// WriteExcerpts writes excerpts with the Columns header.
func WriteExcerpts(w io.Writer, excerpts []core.Excerpt) error {
	rows := make([][]string, 0, len(excerpts))
	for _, e := range excerpts {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.Learning,
			e.AppealCode,
			strconv.Itoa(e.AppealYear),
			strconv.FormatInt(e.CountryID, 10),
			e.CountryName,
			strconv.FormatInt(e.RegionID, 10),
			e.RegionName,
			e.DTypeName,
			e.Component,
			e.Sector,
			e.Finding,
		})
	}
	return WriteRecords(w, Columns, rows)
}

// WriteRecords writes a header and rows as CSV.
func WriteRecords(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// ReadExcerptsFile opens path and parses it as an excerpt table.
func ReadExcerptsFile(path string) ([]core.Excerpt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", core.ErrConfig, path, err)
	}
	defer f.Close()
	return ReadExcerpts(f)
}

// WriteExcerptsFile writes an excerpt table to path, creating parent directories.
func WriteExcerptsFile(path string, excerpts []core.Excerpt) error {
	return writeFile(path, func(w io.Writer) error { return WriteExcerpts(w, excerpts) })
}

// WriteRecordsFile writes a generic table to path, creating parent directories.
func WriteRecordsFile(path string, header []string, rows [][]string) error {
	return writeFile(path, func(w io.Writer) error { return WriteRecords(w, header, rows) })
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
