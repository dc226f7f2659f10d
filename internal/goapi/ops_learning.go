package goapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
)

// Finding type ids of the ops-learning table.
const (
	FindingLessonsLearnt = 1
	FindingChallenges    = 2
)

// Organization ids of the ops-learning table.
const (
	OrganizationSecretariat     = 1
	OrganizationNationalSociety = 2
)

// OpsLearning is a record of the ops-learning table.
type OpsLearning struct {
	ID                           ID              `json:"id"`
	Learning                     string          `json:"learning"`
	LearningValidated            string          `json:"learning_validated"`
	TypeValidatedDisplay         string          `json:"type_validated_display"`
	Appeal                       *Appeal         `json:"appeal"`
	AppealCode                   json.RawMessage `json:"appeal_code"`
	SectorValidatedDetails       []Titled        `json:"sector_validated_details"`
	PerComponentValidatedDetails []Titled        `json:"per_component_validated_details"`
}

// AppealDetails returns the appeal of the record. Older serializers nest it
// under "appeal", newer ones under "appeal_code" (object or bare code).
func (r OpsLearning) AppealDetails() Appeal {
	var a Appeal
	if r.Appeal != nil {
		a = *r.Appeal
	}

	raw := bytes.TrimSpace(r.AppealCode)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return a
	}
	if raw[0] == '{' {
		var nested Appeal
		if err := json.Unmarshal(raw, &nested); err == nil && a.Code == "" {
			a = nested
		}
		return a
	}
	var code string
	if err := json.Unmarshal(raw, &code); err == nil && a.Code == "" {
		a.Code = code
	}
	return a
}

// ToExcerpt maps the record onto an Excerpt. The validated learning text is
// preferred; the first validated component and sector are used as labels.
func (r OpsLearning) ToExcerpt() core.Excerpt {
	appeal := r.AppealDetails()

	e := core.Excerpt{
		ID:         int64(r.ID),
		Learning:   r.LearningValidated,
		AppealCode: appeal.Code,
		AppealYear: appeal.Year(),
		Finding:    r.TypeValidatedDisplay,
	}
	if e.Learning == "" {
		e.Learning = r.Learning
	}
	if appeal.DType != nil {
		e.DTypeName = appeal.DType.Name
	}
	if appeal.Country != nil {
		e.CountryID = int64(appeal.Country.ID)
		e.CountryName = appeal.Country.Name
		e.RegionID = int64(appeal.Country.Region)
	}
	if appeal.Region != nil {
		if appeal.Region.ID != 0 {
			e.RegionID = int64(appeal.Region.ID)
		}
		e.RegionName = appeal.Region.RegionName
	}
	if len(r.PerComponentValidatedDetails) > 0 {
		e.Component = r.PerComponentValidatedDetails[0].Title
	}
	if len(r.SectorValidatedDetails) > 0 {
		e.Sector = r.SectorValidatedDetails[0].Title
	}
	return e
}

// FilterParams converts the active keys of a request filter into query
// parameters, adding the page size limit.
func (c *Client) FilterParams(filter core.RequestFilter) url.Values {
	params := url.Values{}
	active := filter.Active()
	for _, k := range active.Keys() {
		params.Set(k, FormatFilterValue(active[k]))
	}
	params.Set("limit", strconv.Itoa(c.pageSize))
	return params
}

// OpsLearningURL returns the first page URL for a request filter.
func (c *Client) OpsLearningURL(filter core.RequestFilter) (string, error) {
	return c.resolve(TableOpsLearning + "/?" + c.FilterParams(filter).Encode())
}

// FormatFilterValue renders a request filter value as a query parameter.
func FormatFilterValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, FormatFilterValue(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

// FetchOpsLearningRecords reads every ops-learning record matching filter.
func (c *Client) FetchOpsLearningRecords(ctx context.Context, filter core.RequestFilter) ([]OpsLearning, error) {
	if u, err := c.OpsLearningURL(filter); err == nil {
		logger.Info("Querying operational learnings", "url", u)
	}
	raw, err := c.FetchAll(ctx, TableOpsLearning, c.FilterParams(filter))
	if err != nil {
		return nil, err
	}
	return decodeRecords[OpsLearning](TableOpsLearning, raw)
}

// FetchOpsLearnings reads the ops-learning records matching filter as excerpts.
func (c *Client) FetchOpsLearnings(ctx context.Context, filter core.RequestFilter) ([]core.Excerpt, error) {
	records, err := c.FetchOpsLearningRecords(ctx, filter)
	if err != nil {
		return nil, err
	}
	excerpts := make([]core.Excerpt, 0, len(records))
	for _, r := range records {
		excerpts = append(excerpts, r.ToExcerpt())
	}
	logger.Info("Fetched operational learnings", "count", len(excerpts))
	return excerpts, nil
}

// FetchProcessedAppealCodes returns the appeal codes that already have
// records in the ops-learning table.
func (c *Client) FetchProcessedAppealCodes(ctx context.Context) (map[string]bool, error) {
	records, err := c.FetchOpsLearningRecords(ctx, nil)
	if err != nil {
		return nil, err
	}
	codes := make(map[string]bool)
	for _, r := range records {
		if code := r.AppealDetails().Code; code != "" {
			codes[code] = true
		}
	}
	return codes, nil
}

// OpsLearningPayload is the body posted to create an ops-learning record.
// Extracted values are posted both as raw and as validated values.
type OpsLearningPayload struct {
	Learning              string  `json:"learning"`
	LearningValidated     string  `json:"learning_validated"`
	AppealCode            string  `json:"appeal_code"`
	Type                  int     `json:"type"`
	TypeValidated         int     `json:"type_validated"`
	Sector                []int64 `json:"sector"`
	SectorValidated       []int64 `json:"sector_validated"`
	PerComponent          []int64 `json:"per_component"`
	PerComponentValidated []int64 `json:"per_component_validated"`
	Organization          []int64 `json:"organization"`
	OrganizationValidated []int64 `json:"organization_validated"`
	IsValidated           bool    `json:"is_validated"`
}

// PostOpsLearning creates one ops-learning record.
func (c *Client) PostOpsLearning(ctx context.Context, payload OpsLearningPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode ops-learning payload: %w", err)
	}
	reqURL, err := c.resolve(TableOpsLearning + "/")
	if err != nil {
		return err
	}
	_, status, err := c.doRequest(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return err
	}
	logger.Debug("Posted operational learning", "appeal_code", payload.AppealCode, "status", status)
	return nil
}
