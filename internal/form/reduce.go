package form

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/evcraddock/dengue-visits/internal/answer"
	"github.com/evcraddock/dengue-visits/internal/questionnaire"
)

type entry struct {
	question   questionnaire.QuestionID
	inspection int
	data       answer.Answer
}

type builder struct {
	inspection Inspection
	answers    AnswerRecord
}

// Reduce folds every answer of a visit into its submission shape.
//
// Answers are grouped by inspection index. An inspection and its answer
// record exist for every index that appears in the sheet, in ascending
// order. Reduce has no side effects and always yields the same result for
// the same sheet; it fails only on a malformed answer id.
func Reduce(sheet answer.Sheet) (Result, error) {
	entries := make([]entry, 0, len(sheet))
	for id, data := range sheet {
		q, idx, err := id.Parse()
		if err != nil {
			return Result{}, fmt.Errorf("reducing visit: %w", err)
		}
		entries = append(entries, entry{question: q, inspection: idx, data: data})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(a.inspection, b.inspection); c != 0 {
			return c
		}
		return cmp.Compare(a.question, b.question)
	})

	res := Result{
		Inspections: []Inspection{},
		Answers:     []AnswerRecord{},
	}

	var groups []*builder
	for _, e := range entries {
		if len(groups) == 0 || groups[len(groups)-1].inspection.Index != e.inspection {
			groups = append(groups, &builder{
				inspection: Inspection{Index: e.inspection, Fields: map[string]any{}},
				answers:    AnswerRecord{Index: e.inspection, Values: map[string]any{}},
			})
		}
		b := groups[len(groups)-1]

		if e.data.IsMultiple() {
			b.reduceMultiple(&res.Visit, e)
			continue
		}
		if first := e.data.First(); first != nil {
			b.reduceSingle(e.question, *first)
		}
	}

	worst := make([]questionnaire.StatusColor, 0, len(groups))
	for _, b := range groups {
		b.finish()
		res.Inspections = append(res.Inspections, b.inspection)
		res.Answers = append(res.Answers, b.answers)
		worst = append(worst, b.inspection.StatusColor)
	}
	res.StatusColor = OrderStatus(worst)

	return res, nil
}

func (b *builder) reduceMultiple(visit *VisitFields, e entry) {
	opts := e.data.Options()
	if len(opts) == 0 {
		return
	}

	for _, o := range opts {
		if o.StatusColor != "" {
			b.inspection.StatusColors = append(b.inspection.StatusColors, o.StatusColor)
		}
		if o.Text != "" && o.OptionType == questionnaire.TextArea {
			b.inspection.Fields[FieldOtherProtection] = o.Text
		}
	}

	field := opts[0].ResourceName
	switch field {
	case "":
		values := make([]string, 0, len(opts))
		for _, o := range opts {
			values = append(values, plainValue(o))
		}
		b.answers.Values[plainKey(e.question)] = values
	case FieldHost:
		labels := make([]string, 0, len(opts))
		for _, o := range opts {
			labels = append(labels, o.Label)
		}
		visit.Host = labels
	case FieldContainerProtection, FieldTypeContent:
		elems := make([]Element, 0, len(opts))
		for _, o := range opts {
			elems = append(elems, Element{ID: o.ResourceID, StatusColor: o.StatusColor, WeightedPoints: o.WeightedPoints})
		}
		b.inspection.Fields[field] = elems
	default:
		values := make([]any, 0, len(opts))
		for _, o := range opts {
			if o.Text != "" {
				values = append(values, o.Text)
				continue
			}
			values = append(values, resourceID(o))
		}
		b.inspection.Fields[field] = values
	}
}

func (b *builder) reduceSingle(question questionnaire.QuestionID, o answer.OptionAnswer) {
	if o.SelectedCase != "" {
		b.inspection.Location = o.SelectedCase
	}

	if o.ResourceName == "" {
		b.answers.Values[plainKey(question)] = plainValue(o)
		return
	}

	if o.StatusColor != "" {
		b.inspection.StatusColors = append(b.inspection.StatusColors, o.StatusColor)
	}

	fields := b.inspection.Fields
	switch o.ResourceName {
	case FieldQuantity:
		fields[FieldQuantity] = quantity(o.Text)
		return
	case FieldPhoto:
		fields[FieldPhoto] = PhotoPlaceholder
		return
	}

	switch resourceType(o) {
	case questionnaire.ResourceRelation:
		fields[o.ResourceName] = resourceID(o)
	default:
		fields[o.ResourceName] = Attribute{
			Value:          attributeValue(o),
			StatusColor:    o.StatusColor,
			WeightedPoints: o.WeightedPoints,
		}
	}

	if o.Text == "" {
		return
	}
	switch o.ResourceName {
	case FieldElimination:
		fields[FieldOtherElimination] = o.Text
	case FieldWaterSource:
		fields[FieldWaterSourceOther] = o.Text
	}
}

// finish applies the per-inspection defaults once every answer is folded.
func (b *builder) finish() {
	insp := &b.inspection
	if len(insp.Fields) > 0 && !insp.Has(FieldQuantity) && insp.Has(FieldBreedingSite) {
		insp.Fields[FieldQuantity] = 1
	}
	insp.StatusColor = OrderStatus(insp.StatusColors)
}

// quantity counts the first container plus the extra ones typed in.
// Unreadable input counts as no extras.
func quantity(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 0 {
		return 1
	}
	return n + 1
}

// resourceType is the declared type, or relation when only a resource id
// is present and attribute otherwise.
func resourceType(o answer.OptionAnswer) string {
	if o.ResourceType != "" {
		return o.ResourceType
	}
	if o.ResourceID != nil {
		return questionnaire.ResourceRelation
	}
	return questionnaire.ResourceAttribute
}

func resourceID(o answer.OptionAnswer) any {
	if o.ResourceID == nil {
		return nil
	}
	return *o.ResourceID
}

func attributeValue(o answer.OptionAnswer) any {
	switch {
	case o.Text != "":
		return o.Text
	case o.Bool != nil:
		return *o.Bool
	default:
		return o.Label
	}
}

func plainValue(o answer.OptionAnswer) string {
	if o.Value == "" {
		return o.Text
	}
	return o.Value
}

func plainKey(q questionnaire.QuestionID) string {
	return plainAnswerPrefix + q.String()
}
