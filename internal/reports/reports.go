// Package reports finds DREF final reports that are still unpublished on GO
// although a final report document was already published for the appeal.
package reports

import (
	"context"
	"strconv"
	"strings"

	"github.com/IFRCGo/extractor-operational-learnings/internal/goapi"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/IFRCGo/extractor-operational-learnings/internal/tabular"
)

// API is the part of the GO client used by the finder.
type API interface {
	FetchDrefFinalReports(ctx context.Context) ([]goapi.DrefFinalReport, error)
	FetchAppealDocuments(ctx context.Context) ([]goapi.AppealDocument, error)
	FetchRegions(ctx context.Context) ([]goapi.Region, error)
}

// Unclosed is one unpublished report matched with a published final document.
type Unclosed struct {
	AppealCode  string
	CreatedAt   string
	ModifiedAt  string
	IsPublished bool
	SocietyName string
	RegionName  string
	DocumentURL string
}

// Columns is the header of the exported table.
var Columns = []string{"appeal_code", "created_at", "modified_at", "is_published", "society_name", "region_name", "document_url"}

// Find fetches reports, documents and regions and matches them.
func Find(ctx context.Context, api API) ([]Unclosed, error) {
	finalReports, err := api.FetchDrefFinalReports(ctx)
	if err != nil {
		return nil, err
	}
	documents, err := api.FetchAppealDocuments(ctx)
	if err != nil {
		return nil, err
	}
	regions, err := api.FetchRegions(ctx)
	if err != nil {
		return nil, err
	}

	found := Match(finalReports, documents, regions)
	logger.Info("Unclosed reports found", "count", len(found))
	return found, nil
}

// Match pairs every unpublished report with each final document of its
// appeal. Reports without a known region or without a final document are
// left out. A document counts as final when its name contains "final" and
// its type is either empty or contains "final", ignoring case.
func Match(finalReports []goapi.DrefFinalReport, documents []goapi.AppealDocument, regions []goapi.Region) []Unclosed {
	regionNames := make(map[int64]string, len(regions))
	for _, r := range regions {
		regionNames[int64(r.ID)] = r.RegionName
	}

	docsByAppeal := make(map[string][]goapi.AppealDocument)
	for _, d := range documents {
		if !isFinalDocument(d) {
			continue
		}
		code := d.AppealCode()
		docsByAppeal[code] = append(docsByAppeal[code], d)
	}

	var out []Unclosed
	for _, r := range finalReports {
		if r.IsPublished || r.CountryDetails == nil {
			continue
		}
		regionName, ok := regionNames[int64(r.CountryDetails.Region)]
		if !ok {
			continue
		}
		for _, d := range docsByAppeal[r.AppealCode] {
			out = append(out, Unclosed{
				AppealCode:  r.AppealCode,
				CreatedAt:   r.CreatedAt,
				ModifiedAt:  r.ModifiedAt,
				IsPublished: r.IsPublished,
				SocietyName: r.CountryDetails.SocietyName,
				RegionName:  regionName,
				DocumentURL: d.DocumentURL,
			})
		}
	}
	return out
}

func isFinalDocument(d goapi.AppealDocument) bool {
	if !strings.Contains(strings.ToLower(d.Name), "final") {
		return false
	}
	typeName, ok := d.TypeName()
	return !ok || strings.Contains(strings.ToLower(typeName), "final")
}

// Write exports the matches as CSV.
func Write(path string, unclosed []Unclosed) error {
	rows := make([][]string, 0, len(unclosed))
	for _, u := range unclosed {
		rows = append(rows, []string{
			u.AppealCode,
			u.CreatedAt,
			u.ModifiedAt,
			strconv.FormatBool(u.IsPublished),
			u.SocietyName,
			u.RegionName,
			u.DocumentURL,
		})
	}
	return tabular.WriteRecordsFile(path, Columns, rows)
}
