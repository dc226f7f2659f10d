package goapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ID is a GO record id. Depending on the serializer a reference is either a
// bare number, a numeric string, null, or a nested object with an "id".
type ID int64

// UnmarshalJSON accepts every reference shape used by the GO API.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	switch data[0] {
	case '{':
		var obj struct {
			ID ID `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*id = obj.ID
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*id = ID(n)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		v, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return err
			}
			v = int64(f)
		}
		*id = ID(v)
		return nil
	}
}

// Named is a nested reference carrying a display name.
type Named struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Titled is a nested reference carrying a title, as used by sectors and
// PER components.
type Titled struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

// CountryRef is a country as nested in appeals and reports.
type CountryRef struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	SocietyName string `json:"society_name"`
	Region      ID     `json:"region"`
}

// RegionRef is a region as nested in appeals. The region "name" field is an
// enum number, the label lives in region_name.
type RegionRef struct {
	ID         ID     `json:"id"`
	RegionName string `json:"region_name"`
}

// Appeal is a record of the appeal table.
type Appeal struct {
	ID        ID          `json:"id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	StartDate string      `json:"start_date"`
	DType     *Named      `json:"dtype"`
	Country   *CountryRef `json:"country"`
	Region    *RegionRef  `json:"region"`
}

// Year returns the year the appeal started, 0 when unknown.
func (a Appeal) Year() int {
	if len(a.StartDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(a.StartDate[:4])
	if err != nil {
		return 0
	}
	return year
}

// Country is a record of the country table.
type Country struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	SocietyName  string `json:"society_name"`
	Region       ID     `json:"region"`
	IsDeprecated bool   `json:"is_deprecated"`
}

// Region is a record of the region table.
type Region struct {
	ID         ID     `json:"id"`
	RegionName string `json:"region_name"`
}

// PlannedIntervention is one sector block of a DREF final report.
type PlannedIntervention struct {
	Title         string `json:"title"`
	TitleDisplay  string `json:"title_display"`
	LessonsLearnt string `json:"lessons_learnt"`
	Challenges    string `json:"challenges"`
}

// DrefFinalReport is a record of the dref-final-report table.
type DrefFinalReport struct {
	ID                   ID                    `json:"id"`
	AppealCode           string                `json:"appeal_code"`
	Title                string                `json:"title"`
	IsPublished          bool                  `json:"is_published"`
	CreatedAt            string                `json:"created_at"`
	ModifiedAt           string                `json:"modified_at"`
	CountryDetails       *CountryRef           `json:"country_details"`
	PlannedInterventions []PlannedIntervention `json:"planned_interventions"`
}

// PrioritizedAction is one prioritized PER component of an assessment.
type PrioritizedAction struct {
	Component ID `json:"component"`
}

// PerPrioritization is a record of the public-per-prioritization table.
type PerPrioritization struct {
	ID                         ID                  `json:"id"`
	Overview                   ID                  `json:"overview"`
	IsDraft                    bool                `json:"is_draft"`
	PrioritizedActionResponses []PrioritizedAction `json:"prioritized_action_responses"`
}

// PerOverview is a record of the per-overview table.
type PerOverview struct {
	ID               ID          `json:"id"`
	AssessmentNumber int         `json:"assessment_number"`
	CountryDetails   *CountryRef `json:"country_details"`
}

// AppealDocument is a record of the appeal_document table.
type AppealDocument struct {
	ID          ID              `json:"id"`
	Name        string          `json:"name"`
	DocumentURL string          `json:"document_url"`
	Type        json.RawMessage `json:"type"`
	Appeal      *Appeal         `json:"appeal"`
}

// TypeName returns the document type label. ok is false when the type is null.
func (d AppealDocument) TypeName() (name string, ok bool) {
	raw := bytes.TrimSpace(d.Type)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var obj Named
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name, true
	}
	return strings.Trim(string(raw), `"`), true
}

// AppealCode returns the code of the appeal the document belongs to.
func (d AppealDocument) AppealCode() string {
	if d.Appeal == nil {
		return ""
	}
	return d.Appeal.Code
}

// PerFormComponent is a record of the per-formcomponent table.
type PerFormComponent struct {
	ID           ID     `json:"id"`
	Title        string `json:"title"`
	ComponentNum int    `json:"component_num"`
}

// PrimarySector is an entry of the primarysector list.
type PrimarySector struct {
	Key   ID     `json:"key"`
	Label string `json:"label"`
}
