// Package questionnaire provides the visit questionnaire definition: a
// read-only directed graph of questions and options.
package questionnaire

import (
	"fmt"
	"strconv"
)

// QuestionID identifies a question within a questionnaire.
type QuestionID int

// Terminate is the next-question sentinel that ends traversal and routes
// to the comment and summary steps.
const Terminate QuestionID = -1

// String returns the decimal form of the id.
func (id QuestionID) String() string {
	return strconv.Itoa(int(id))
}

// TypeField is the kind of screen a question is rendered as.
type TypeField string

const (
	TypeText     TypeField = "text"
	TypeMultiple TypeField = "multiple"
	TypeList     TypeField = "list"
	TypeSplash   TypeField = "splash"
)

// ValidTypes is the set of allowed question types.
var ValidTypes = []TypeField{TypeText, TypeMultiple, TypeList, TypeSplash}

// IsValid checks if a question type is recognized.
func (t TypeField) IsValid() bool {
	for _, v := range ValidTypes {
		if t == v {
			return true
		}
	}
	return false
}

// OptionType is the input an option collects besides being selected.
type OptionType string

const (
	InputNumber OptionType = "inputNumber"
	TextArea    OptionType = "textArea"
	Boolean     OptionType = "boolean"
)

// StatusColor is the risk classification of a site.
type StatusColor string

const (
	Red    StatusColor = "RED"
	Yellow StatusColor = "YELLOW"
	Green  StatusColor = "GREEN"
)

// Rank orders colors worst first: RED=2, YELLOW=1, GREEN=0, unknown=-1.
func (c StatusColor) Rank() int {
	switch c {
	case Red:
		return 2
	case Yellow:
		return 1
	case Green:
		return 0
	default:
		return -1
	}
}

// Case is the physical location an inspection belongs to.
type Case string

const (
	House   Case = "house"
	Orchard Case = "orchard"
)

// Resource types decide how a recorded answer maps onto an inspection field.
const (
	ResourceRelation  = "relation"
	ResourceAttribute = "attribute"
)

// Option is one selectable answer of a question.
type Option struct {
	ID             int         `json:"id" yaml:"id"`
	Name           string      `json:"name" yaml:"name"`
	Required       bool        `json:"required,omitempty" yaml:"required,omitempty"`
	TextArea       bool        `json:"textArea,omitempty" yaml:"textArea,omitempty"`
	Next           *QuestionID `json:"next,omitempty" yaml:"next,omitempty"`
	Value          string      `json:"value,omitempty" yaml:"value,omitempty"`
	ResourceName   string      `json:"resourceName,omitempty" yaml:"resourceName,omitempty"`
	ResourceID     *int        `json:"resourceId,omitempty" yaml:"resourceId,omitempty"`
	ResourceType   string      `json:"resourceType,omitempty" yaml:"resourceType,omitempty"`
	OptionType     OptionType  `json:"optionType,omitempty" yaml:"optionType,omitempty"`
	StatusColor    StatusColor `json:"statusColor,omitempty" yaml:"statusColor,omitempty"`
	WeightedPoints *int        `json:"weightedPoints,omitempty" yaml:"weightedPoints,omitempty"`
	SelectedCase   Case        `json:"selectedCase,omitempty" yaml:"selectedCase,omitempty"`
	ShowInCase     Case        `json:"showInCase,omitempty" yaml:"showInCase,omitempty"`
}

// Question is a node of the questionnaire graph.
type Question struct {
	ID           QuestionID  `json:"id" yaml:"id"`
	Text         string      `json:"text" yaml:"text"`
	TypeField    TypeField   `json:"typeField" yaml:"typeField"`
	Options      []Option    `json:"options" yaml:"options"`
	Description  string      `json:"description,omitempty" yaml:"description,omitempty"`
	Next         *QuestionID `json:"next,omitempty" yaml:"next,omitempty"`
	ResourceName string      `json:"resourceName,omitempty" yaml:"resourceName,omitempty"`
	ResourceType string      `json:"resourceType,omitempty" yaml:"resourceType,omitempty"`
	Required     bool        `json:"required,omitempty" yaml:"required,omitempty"`
}

// Option returns the option with the given id.
func (q *Question) Option(id int) (*Option, bool) {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// HasCaseFilter reports whether any option is conditionally visible.
func (q *Question) HasCaseFilter() bool {
	for _, o := range q.Options {
		if o.ShowInCase != "" {
			return true
		}
	}
	return false
}

// Questionnaire is the full definition shared by every visit.
type Questionnaire struct {
	ID                string     `json:"id" yaml:"id"`
	Name              string     `json:"name" yaml:"name"`
	InitialQuestionID QuestionID `json:"initialQuestion" yaml:"initialQuestion"`
	FinalQuestionID   QuestionID `json:"finalQuestion" yaml:"finalQuestion"`
	Questions         []Question `json:"questions" yaml:"questions"`
}

// Question returns the question with the given id.
func (q *Questionnaire) Question(id QuestionID) (*Question, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i], true
		}
	}
	return nil, false
}

// Lookup returns the question with the given id or a
// DefinitionIntegrityError when it does not exist.
func (q *Questionnaire) Lookup(id QuestionID) (*Question, error) {
	question, ok := q.Question(id)
	if !ok {
		return nil, &DefinitionIntegrityError{
			QuestionID: id,
			Reason:     fmt.Sprintf("question %d does not exist", id),
		}
	}
	return question, nil
}

// Ref returns a pointer to id, for building definitions in code.
func Ref(id QuestionID) *QuestionID {
	return &id
}
