package goapi

import (
	"context"
)

// Table names of the GO API.
const (
	TableOpsLearning       = "ops-learning"
	TableAppeal            = "appeal"
	TableCountry           = "country"
	TableRegion            = "region"
	TableDrefFinalReport   = "dref-final-report"
	TablePerPrioritization = "public-per-prioritization"
	TablePerOverview       = "per-overview"
	TableAppealDocument    = "appeal_document"
	TablePerFormComponent  = "per-formcomponent"
	TablePrimarySector     = "primarysector"
)

// FetchAppeals reads the appeal table.
func (c *Client) FetchAppeals(ctx context.Context) ([]Appeal, error) {
	return fetchTable[Appeal](ctx, c, TableAppeal, nil)
}

// FetchCountries reads the country table.
func (c *Client) FetchCountries(ctx context.Context) ([]Country, error) {
	return fetchTable[Country](ctx, c, TableCountry, nil)
}

// FetchRegions reads the region table.
func (c *Client) FetchRegions(ctx context.Context) ([]Region, error) {
	return fetchTable[Region](ctx, c, TableRegion, nil)
}

// FetchDrefFinalReports reads the DREF final report table.
func (c *Client) FetchDrefFinalReports(ctx context.Context) ([]DrefFinalReport, error) {
	return fetchTable[DrefFinalReport](ctx, c, TableDrefFinalReport, nil)
}

// FetchPerPrioritizations reads the public PER prioritization table.
func (c *Client) FetchPerPrioritizations(ctx context.Context) ([]PerPrioritization, error) {
	return fetchTable[PerPrioritization](ctx, c, TablePerPrioritization, nil)
}

// FetchPerOverviews reads the PER overview table.
func (c *Client) FetchPerOverviews(ctx context.Context) ([]PerOverview, error) {
	return fetchTable[PerOverview](ctx, c, TablePerOverview, nil)
}

// FetchAppealDocuments reads the appeal document table.
func (c *Client) FetchAppealDocuments(ctx context.Context) ([]AppealDocument, error) {
	return fetchTable[AppealDocument](ctx, c, TableAppealDocument, nil)
}

// FetchPerFormComponents reads the PER form component table.
func (c *Client) FetchPerFormComponents(ctx context.Context) ([]PerFormComponent, error) {
	return fetchTable[PerFormComponent](ctx, c, TablePerFormComponent, nil)
}

// FetchPrimarySectors reads the primary sector list, which is not paginated.
func (c *Client) FetchPrimarySectors(ctx context.Context) ([]PrimarySector, error) {
	var sectors []PrimarySector
	if err := c.getJSON(ctx, TablePrimarySector+"/", &sectors); err != nil {
		return nil, err
	}
	return sectors, nil
}
