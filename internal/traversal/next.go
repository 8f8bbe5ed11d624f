// Package traversal walks a questionnaire graph for one visit: it decides
// which options are selectable, records answers, and computes the next
// question.
package traversal

import (
	"github.com/evcraddock/dengue-visits/internal/answer"
	"github.com/evcraddock/dengue-visits/internal/questionnaire"
)

// PhotoResource is the resource name of the "can you take a photo"
// question. A truthy answer to it routes to photo capture.
const PhotoResource = "photo_id"

// Result describes where traversal goes after an answer.
type Result struct {
	// Next is the question to show, or questionnaire.Terminate.
	Next questionnaire.QuestionID `json:"next"`
	// CapturePhoto routes to photo capture first; traversal resumes at Next.
	CapturePhoto bool `json:"capturePhoto,omitempty"`
	// NewInspection is set when this answer started a new inspection.
	NewInspection bool `json:"newInspection,omitempty"`
	// Inspection is the index the answer was recorded under.
	Inspection int `json:"inspection"`
}

// Done reports whether the questionnaire part of the visit is over.
func (r Result) Done() bool {
	return r.Next == questionnaire.Terminate
}

// Next computes the step after q given the recorded answer. A fixed edge
// on the question wins; otherwise the first selected option decides, for
// multiple answers too. No edge at all terminates.
func Next(q *questionnaire.Question, a answer.Answer) Result {
	res := Result{Next: questionnaire.Terminate}

	first := a.First()
	switch {
	case q.Next != nil:
		res.Next = *q.Next
	case first != nil && first.Next != nil:
		res.Next = *first.Next
	}

	if q.ResourceName == PhotoResource && first != nil && first.Truthy() {
		res.CapturePhoto = true
	}
	return res
}

// VisibleOptions filters q's options by the locations seen so far in the
// visit. Questions without case-tagged options are returned unfiltered.
//
// With no case seen every option shows. With one case seen, tagged options
// show only for that case. With both seen, a tagged option shows only when
// its showInCase and selectedCase both equal the active case. Untagged
// options always show.
func VisibleOptions(q *questionnaire.Question, sheet answer.Sheet, active questionnaire.Case) []questionnaire.Option {
	if !q.HasCaseFilter() {
		return q.Options
	}

	cases := sheet.Cases()
	visible := make([]questionnaire.Option, 0, len(q.Options))
	for _, o := range q.Options {
		if o.ShowInCase == "" {
			visible = append(visible, o)
			continue
		}
		switch len(cases) {
		case 0:
			visible = append(visible, o)
		case 1:
			if cases[o.ShowInCase] {
				visible = append(visible, o)
			}
		default:
			if o.ShowInCase == active && o.SelectedCase == active {
				visible = append(visible, o)
			}
		}
	}
	return visible
}

func isVisible(options []questionnaire.Option, id int) bool {
	for _, o := range options {
		if o.ID == id {
			return true
		}
	}
	return false
}
