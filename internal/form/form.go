// Package form folds the answers recorded during a visit into the
// submission shape: one inspection record and one free-answer record per
// inspection index, plus a derived risk color.
package form

import (
	"encoding/json"
	"maps"

	"github.com/evcraddock/dengue-visits/internal/questionnaire"
)

// Inspection field names with special handling.
const (
	FieldBreedingSite        = "breeding_site_type_id"
	FieldContainerProtection = "container_protection_ids"
	FieldOtherProtection     = "other_protection"
	FieldTypeContent         = "type_content_id"
	FieldQuantity            = "quantity_founded"
	FieldElimination         = "elimination_method_type_id"
	FieldOtherElimination    = "other_elimination_method"
	FieldWaterSource         = "water_source_type_id"
	FieldWaterSourceOther    = "water_source_other"
	FieldPhoto               = "photo_id"
	FieldVisitedAt           = "visited_at"
	FieldHost                = "host"
)

// PhotoPlaceholder stands in for a photo reference until the stored file
// is known.
const PhotoPlaceholder = "temp"

const plainAnswerPrefix = "question_"

// Attribute is the value written for an "attribute" resource.
type Attribute struct {
	Value          any                       `json:"value"`
	StatusColor    questionnaire.StatusColor `json:"statusColor,omitempty"`
	WeightedPoints *int                      `json:"weightedPoints,omitempty"`
}

// Element is one entry of a rich multi-select resource.
type Element struct {
	ID             *int                      `json:"id"`
	StatusColor    questionnaire.StatusColor `json:"statusColor,omitempty"`
	WeightedPoints *int                      `json:"weightedPoints,omitempty"`
}

// Inspection is the reduced record of one container.
type Inspection struct {
	// Index is the inspection index the record was built from.
	Index int
	// Fields holds the backend resource fields keyed by resource name.
	Fields       map[string]any
	Location     questionnaire.Case
	StatusColor  questionnaire.StatusColor
	StatusColors []questionnaire.StatusColor
}

// Has reports whether a resource field was populated.
func (i Inspection) Has(field string) bool {
	_, ok := i.Fields[field]
	return ok
}

// MarshalJSON flattens the fields next to location and statusColor.
func (i Inspection) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Fields)+2)
	maps.Copy(out, i.Fields)
	if i.Location != "" {
		out["location"] = i.Location
	}
	out["statusColor"] = i.StatusColor
	return json.Marshal(out)
}

// AnswerRecord holds the plain questionnaire answers of one inspection,
// keyed "question_<id>".
type AnswerRecord struct {
	Index  int
	Values map[string]any
}

// MarshalJSON encodes the values only.
func (a AnswerRecord) MarshalJSON() ([]byte, error) {
	if a.Values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a.Values)
}

// VisitFields are the visit-level values found among the answers.
type VisitFields struct {
	Host []string `json:"host,omitempty"`
}

// Result is the reduced form of a visit.
type Result struct {
	Inspections []Inspection   `json:"inspections"`
	Answers     []AnswerRecord `json:"answers"`
	Visit       VisitFields    `json:"visit"`
	// StatusColor is the worst color across all inspections.
	StatusColor questionnaire.StatusColor `json:"statusColor"`
}

// OrderStatus returns the worst color in colors: RED over YELLOW over
// GREEN. An empty list is GREEN.
func OrderStatus(colors []questionnaire.StatusColor) questionnaire.StatusColor {
	worst := questionnaire.Green
	for _, c := range colors {
		if c.Rank() > worst.Rank() {
			worst = c
		}
	}
	return worst
}
