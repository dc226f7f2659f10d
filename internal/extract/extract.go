// Package extract turns the planned interventions of closed DREF final reports
// into tagged operational learnings and posts them to the GO platform.
package extract

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/classify"
	"github.com/IFRCGo/extractor-operational-learnings/internal/goapi"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/IFRCGo/extractor-operational-learnings/internal/tabular"
)

// API is the part of the GO client used by extraction.
type API interface {
	FetchDrefFinalReports(ctx context.Context) ([]goapi.DrefFinalReport, error)
	FetchAppeals(ctx context.Context) ([]goapi.Appeal, error)
	FetchProcessedAppealCodes(ctx context.Context) (map[string]bool, error)
	FetchPerFormComponents(ctx context.Context) ([]goapi.PerFormComponent, error)
	FetchPrimarySectors(ctx context.Context) ([]goapi.PrimarySector, error)
	PostOpsLearning(ctx context.Context, payload goapi.OpsLearningPayload) error
}

// Row is one excerpt of one planned intervention.
type Row struct {
	AppealCode  string
	Sector      string
	Finding     string
	Text        string
	Component   string
	Institution string
}

// Institution labels.
const (
	InstitutionSecretariat     = "Secretariat"
	InstitutionNationalSociety = "National Society"
)

// Record is a row mapped to GO ids, ready to post.
type Record struct {
	AppealCode    string
	Text          string
	Finding       int
	ComponentIDs  []int64
	SectorIDs     []int64
	InstitutionID []int64
}

// Lookups maps GO titles and labels to ids.
type Lookups struct {
	Components map[string]int64
	Sectors    map[string]int64
}

// NewLookups indexes PER form components by title and primary sectors by label.
func NewLookups(components []goapi.PerFormComponent, sectors []goapi.PrimarySector) Lookups {
	l := Lookups{
		Components: make(map[string]int64, len(components)),
		Sectors:    make(map[string]int64, len(sectors)),
	}
	for _, c := range components {
		l.Components[c.Title] = int64(c.ID)
	}
	for _, s := range sectors {
		l.Sectors[s.Label] = int64(s.Key)
	}
	return l
}

// FilterReports keeps published reports of public appeals that have no
// learnings on the platform yet.
func FilterReports(reports []goapi.DrefFinalReport, public, processed map[string]bool) []goapi.DrefFinalReport {
	var out []goapi.DrefFinalReport
	for _, r := range reports {
		if !r.IsPublished || !public[r.AppealCode] || processed[r.AppealCode] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SplitReports explodes reports into one row per excerpt. Lessons learnt rows
// come before challenges rows.
func SplitReports(reports []goapi.DrefFinalReport) []Row {
	var lessons, challenges []Row
	for _, r := range reports {
		for _, pi := range r.PlannedInterventions {
			for _, text := range SplitExcerpts(HTMLToText(pi.LessonsLearnt)) {
				lessons = append(lessons, Row{AppealCode: r.AppealCode, Sector: pi.TitleDisplay, Finding: FindingLessonsLearnt, Text: text})
			}
			for _, text := range SplitExcerpts(HTMLToText(pi.Challenges)) {
				challenges = append(challenges, Row{AppealCode: r.AppealCode, Sector: pi.TitleDisplay, Finding: FindingChallenges, Text: text})
			}
		}
	}
	return append(lessons, challenges...)
}

// Tag classifies every row and derives the institution from the component.
func Tag(ctx context.Context, classifier classify.Classifier, rows []Row) ([]Row, error) {
	out := make([]Row, len(rows))
	for i, row := range rows {
		component, err := classifier.Classify(ctx, row.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to classify excerpt of %s: %w", row.AppealCode, err)
		}
		row.Component = component
		row.Institution = Institution(component)
		out[i] = row
	}
	return out, nil
}

// Institution returns the organisation a learning is attributed to.
func Institution(component string) string {
	if component == SecretariatComponent {
		return InstitutionSecretariat
	}
	return InstitutionNationalSociety
}

// Format maps labels to GO ids. Unmapped labels produce an empty id list.
func Format(rows []Row, lookups Lookups) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := Record{
			AppealCode:    row.AppealCode,
			Text:          row.Text,
			Finding:       findingID(row.Finding),
			ComponentIDs:  []int64{},
			SectorIDs:     []int64{},
			InstitutionID: []int64{institutionID(row.Institution)},
		}
		if id, ok := lookupID(row.Component, componentTitles, lookups.Components); ok {
			rec.ComponentIDs = append(rec.ComponentIDs, id)
		}
		if id, ok := lookupID(row.Sector, sectorLabels, lookups.Sectors); ok {
			rec.SectorIDs = append(rec.SectorIDs, id)
		}
		out = append(out, rec)
	}
	return out
}

func lookupID(label string, mapping map[string]string, ids map[string]int64) (int64, bool) {
	if label == "" {
		return 0, false
	}
	mapped, ok := mapping[label]
	if !ok {
		logger.Warn("No GO mapping for label", "label", label)
		return 0, false
	}
	if mapped == "" {
		return 0, false
	}
	id, ok := ids[mapped]
	if !ok {
		logger.Warn("Mapped label missing from GO", "label", label, "mapped", mapped)
	}
	return id, ok
}

func findingID(finding string) int {
	if finding == FindingChallenges {
		return goapi.FindingChallenges
	}
	return goapi.FindingLessonsLearnt
}

func institutionID(institution string) int64 {
	if institution == InstitutionSecretariat {
		return goapi.OrganizationSecretariat
	}
	return goapi.OrganizationNationalSociety
}

// MergeDuplicates merges records sharing appeal, text and finding, taking the
// union of their id lists. Output is ordered by those three keys.
func MergeDuplicates(records []Record) []Record {
	type key struct {
		appeal  string
		text    string
		finding int
	}

	index := make(map[key]int)
	var out []Record
	for _, rec := range records {
		k := key{rec.AppealCode, rec.Text, rec.Finding}
		i, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, Record{
				AppealCode:    rec.AppealCode,
				Text:          rec.Text,
				Finding:       rec.Finding,
				ComponentIDs:  union(nil, rec.ComponentIDs),
				SectorIDs:     union(nil, rec.SectorIDs),
				InstitutionID: union(nil, rec.InstitutionID),
			})
			continue
		}
		out[i].ComponentIDs = union(out[i].ComponentIDs, rec.ComponentIDs)
		out[i].SectorIDs = union(out[i].SectorIDs, rec.SectorIDs)
		out[i].InstitutionID = union(out[i].InstitutionID, rec.InstitutionID)
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].AppealCode != out[b].AppealCode {
			return out[a].AppealCode < out[b].AppealCode
		}
		if out[a].Text != out[b].Text {
			return out[a].Text < out[b].Text
		}
		return out[a].Finding < out[b].Finding
	})
	return out
}

func union(a, b []int64) []int64 {
	seen := make(map[int64]bool, len(a)+len(b))
	out := []int64{}
	for _, v := range append(append([]int64{}, a...), b...) {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Payload builds the ops-learning body for a record. The validated fields
// start as copies of the extracted ones.
func (r Record) Payload() goapi.OpsLearningPayload {
	return goapi.OpsLearningPayload{
		Learning:              r.Text,
		LearningValidated:     r.Text,
		AppealCode:            r.AppealCode,
		Type:                  r.Finding,
		TypeValidated:         r.Finding,
		Sector:                r.SectorIDs,
		SectorValidated:       r.SectorIDs,
		PerComponent:          r.ComponentIDs,
		PerComponentValidated: r.ComponentIDs,
		Organization:          r.InstitutionID,
		OrganizationValidated: r.InstitutionID,
		IsValidated:           false,
	}
}

// RecordColumns is the header of the exported record table.
var RecordColumns = []string{"appeal_code", "learning", "type", "per_component", "sector", "organization"}

// WriteRecords exports records as CSV, id lists joined with ";".
func WriteRecords(path string, records []Record) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.AppealCode,
			r.Text,
			strconv.Itoa(r.Finding),
			joinIDs(r.ComponentIDs),
			joinIDs(r.SectorIDs),
			joinIDs(r.InstitutionID),
		})
	}
	return tabular.WriteRecordsFile(path, RecordColumns, rows)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ";")
}

// Options controls an extraction run.
type Options struct {
	DryRun     bool          // Stop before posting
	ExportPath string        // Optional CSV export of the records
	PostDelay  time.Duration // Pause between posts
}

// Result summarizes an extraction run.
type Result struct {
	Reports int
	Rows    int
	Records []Record
	Posted  int
	Failed  int
}

// Extractor runs the extraction end to end.
type Extractor struct {
	api        API
	classifier classify.Classifier
}

// NewExtractor creates an Extractor.
func NewExtractor(api API, classifier classify.Classifier) *Extractor {
	return &Extractor{api: api, classifier: classifier}
}

// Run fetches reports, extracts and tags their learnings, and posts them.
// A failed post is logged and skipped.
func (e *Extractor) Run(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{}

	logger.Info("Fetching DREF final reports")
	reports, err := e.api.FetchDrefFinalReports(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("Fetching appeals")
	appeals, err := e.api.FetchAppeals(ctx)
	if err != nil {
		return nil, err
	}
	public := make(map[string]bool, len(appeals))
	for _, a := range appeals {
		public[a.Code] = true
	}

	logger.Info("Fetching processed appeals")
	processed, err := e.api.FetchProcessedAppealCodes(ctx)
	if err != nil {
		return nil, err
	}

	filtered := FilterReports(reports, public, processed)
	result.Reports = len(filtered)
	if len(filtered) == 0 {
		logger.Warn("No DREF final reports left after filtering")
		return result, nil
	}
	logger.Info("Reports to process", "count", len(filtered))

	rows := SplitReports(filtered)
	result.Rows = len(rows)
	if len(rows) == 0 {
		logger.Warn("No learnings found in planned interventions")
		return result, nil
	}

	logger.Info("Tagging learnings with PER components", "excerpts", len(rows))
	tagged, err := Tag(ctx, e.classifier, rows)
	if err != nil {
		return nil, err
	}

	components, err := e.api.FetchPerFormComponents(ctx)
	if err != nil {
		return nil, err
	}
	sectors, err := e.api.FetchPrimarySectors(ctx)
	if err != nil {
		return nil, err
	}

	result.Records = MergeDuplicates(Format(tagged, NewLookups(components, sectors)))
	logger.Info("Learnings ready", "records", len(result.Records))

	if opts.ExportPath != "" {
		if err := WriteRecords(opts.ExportPath, result.Records); err != nil {
			return nil, err
		}
		logger.Info("Exported records", "path", opts.ExportPath)
	}

	if opts.DryRun {
		return result, nil
	}

	for i, rec := range result.Records {
		if err := e.api.PostOpsLearning(ctx, rec.Payload()); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			logger.Error("Failed to post learning", err, "appeal_code", rec.AppealCode)
			result.Failed++
			continue
		}
		result.Posted++
		if opts.PostDelay > 0 && i < len(result.Records)-1 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(opts.PostDelay):
			}
		}
	}
	logger.Info("Posted learnings", "posted", result.Posted, "failed", result.Failed)

	return result, nil
}
