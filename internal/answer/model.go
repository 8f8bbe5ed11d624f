// Package answer provides the per-visit answer accumulator: composite
// visit and answer keys, the recorded answer shapes, and the store that
// holds them until a visit is finalized.
package answer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/evcraddock/dengue-visits/internal/questionnaire"
)

// VisitID identifies one user's visit to one house: "<userID>-<houseID>".
type VisitID string

// NewVisitID builds the composite visit key.
func NewVisitID(userID, houseID string) VisitID {
	return VisitID(userID + "-" + houseID)
}

// AnswerID scopes an answer to a question and an inspection:
// "<questionID>-<inspectionIdx>".
type AnswerID string

// NewAnswerID builds the composite answer key.
func NewAnswerID(question questionnaire.QuestionID, inspection int) AnswerID {
	return AnswerID(fmt.Sprintf("%d-%d", question, inspection))
}

// Parse splits the key back into its question id and inspection index.
func (a AnswerID) Parse() (questionnaire.QuestionID, int, error) {
	i := strings.LastIndex(string(a), "-")
	if i <= 0 {
		return 0, 0, fmt.Errorf("malformed answer id %q", a)
	}
	question, err := strconv.Atoi(string(a[:i]))
	if err != nil {
		return 0, 0, fmt.Errorf("malformed answer id %q: %w", a, err)
	}
	inspection, err := strconv.Atoi(string(a[i+1:]))
	if err != nil || inspection < 0 {
		return 0, 0, fmt.Errorf("malformed answer id %q: bad inspection index", a)
	}
	return questionnaire.QuestionID(question), inspection, nil
}

// OptionAnswer is one selected option as recorded for a visit.
type OptionAnswer struct {
	OptionID       int                       `json:"id"`
	Label          string                    `json:"label"`
	Text           string                    `json:"text,omitempty"`
	Bool           *bool                     `json:"bool,omitempty"`
	Value          string                    `json:"value,omitempty"`
	ResourceName   string                    `json:"resourceName,omitempty"`
	ResourceType   string                    `json:"resourceType,omitempty"`
	ResourceID     *int                      `json:"resourceId,omitempty"`
	OptionType     questionnaire.OptionType  `json:"optionType,omitempty"`
	StatusColor    questionnaire.StatusColor `json:"statusColor,omitempty"`
	WeightedPoints *int                      `json:"weightedPoints,omitempty"`
	SelectedCase   questionnaire.Case        `json:"selectedCase,omitempty"`
	ShowInCase     questionnaire.Case        `json:"showInCase,omitempty"`
	Next           *questionnaire.QuestionID `json:"next,omitempty"`
}

// FromOption copies the definition fields of o, an option of q, into a
// recorded answer. The question's resource name and type apply when the
// option leaves them empty. A boolean option's value is parsed into Bool.
func FromOption(q *questionnaire.Question, o questionnaire.Option) OptionAnswer {
	a := OptionAnswer{
		OptionID:       o.ID,
		Label:          o.Name,
		Value:          o.Value,
		ResourceName:   o.ResourceName,
		ResourceType:   o.ResourceType,
		ResourceID:     o.ResourceID,
		OptionType:     o.OptionType,
		StatusColor:    o.StatusColor,
		WeightedPoints: o.WeightedPoints,
		SelectedCase:   o.SelectedCase,
		ShowInCase:     o.ShowInCase,
		Next:           o.Next,
	}
	if q != nil {
		if a.ResourceName == "" {
			a.ResourceName = q.ResourceName
		}
		if a.ResourceType == "" {
			a.ResourceType = q.ResourceType
		}
	}
	if o.OptionType == questionnaire.Boolean {
		if b, err := strconv.ParseBool(o.Value); err == nil {
			a.Bool = &b
		}
	}
	return a
}

// Truthy reports whether the answer means "yes". An explicit boolean wins;
// otherwise any value other than "", "false" or "0" counts.
func (a OptionAnswer) Truthy() bool {
	if a.Bool != nil {
		return *a.Bool
	}
	switch strings.ToLower(strings.TrimSpace(a.Value)) {
	case "", "false", "0":
		return false
	}
	return true
}

// Answer is the recorded state of one question: either a single option
// (list, text and splash questions) or a set of options (multiple).
type Answer struct {
	multiple bool
	options  []OptionAnswer
}

// Single records one selected option.
func Single(o OptionAnswer) Answer {
	return Answer{options: []OptionAnswer{o}}
}

// Multiple records a set of selected options, in selection order.
func Multiple(opts ...OptionAnswer) Answer {
	return Answer{multiple: true, options: append([]OptionAnswer{}, opts...)}
}

// IsMultiple reports whether the answer came from a multiple question.
func (a Answer) IsMultiple() bool {
	return a.multiple
}

// Options returns the selected options.
func (a Answer) Options() []OptionAnswer {
	return a.options
}

// First returns the first selected option, or nil when nothing is selected.
func (a Answer) First() *OptionAnswer {
	if len(a.options) == 0 {
		return nil
	}
	return &a.options[0]
}

// IsEmpty reports whether no option was selected.
func (a Answer) IsEmpty() bool {
	return len(a.options) == 0
}

// MarshalJSON encodes a single answer as an object and a multiple answer
// as an array.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.multiple {
		if a.options == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.options)
	}
	if len(a.options) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(a.options[0])
}

// UnmarshalJSON accepts either shape written by MarshalJSON.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = Answer{}
	case len(data) > 0 && data[0] == '[':
		var opts []OptionAnswer
		if err := json.Unmarshal(data, &opts); err != nil {
			return fmt.Errorf("decoding multiple answer: %w", err)
		}
		*a = Multiple(opts...)
	default:
		var o OptionAnswer
		if err := json.Unmarshal(data, &o); err != nil {
			return fmt.Errorf("decoding single answer: %w", err)
		}
		*a = Single(o)
	}
	return nil
}

// Sheet is every answer recorded for one visit.
type Sheet map[AnswerID]Answer

// Cases returns the distinct selected cases found across the sheet.
func (s Sheet) Cases() map[questionnaire.Case]bool {
	cases := make(map[questionnaire.Case]bool)
	for _, a := range s {
		for _, o := range a.options {
			if o.SelectedCase != "" {
				cases[o.SelectedCase] = true
			}
		}
	}
	return cases
}
