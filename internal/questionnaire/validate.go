package questionnaire

import (
	"errors"
	"fmt"
)

// DefinitionIntegrityError reports a questionnaire that references a
// question it does not define, or is otherwise malformed.
type DefinitionIntegrityError struct {
	QuestionID QuestionID
	OptionID   *int
	Reason     string
}

func (e *DefinitionIntegrityError) Error() string {
	if e.OptionID != nil {
		return fmt.Sprintf("questionnaire integrity: question %d option %d: %s", e.QuestionID, *e.OptionID, e.Reason)
	}
	return fmt.Sprintf("questionnaire integrity: question %d: %s", e.QuestionID, e.Reason)
}

// Validate checks that every edge of the graph resolves and that ids are
// unique. All problems are reported, joined into one error.
func (q *Questionnaire) Validate() error {
	var errs []error

	ids := make(map[QuestionID]bool, len(q.Questions))
	for _, question := range q.Questions {
		if ids[question.ID] {
			errs = append(errs, &DefinitionIntegrityError{QuestionID: question.ID, Reason: "duplicate question id"})
		}
		ids[question.ID] = true
	}

	resolves := func(id QuestionID) bool {
		return id == Terminate || ids[id]
	}

	if !ids[q.InitialQuestionID] {
		errs = append(errs, &DefinitionIntegrityError{
			QuestionID: q.InitialQuestionID,
			Reason:     "initial question does not exist",
		})
	}
	if q.FinalQuestionID != 0 && !resolves(q.FinalQuestionID) {
		errs = append(errs, &DefinitionIntegrityError{
			QuestionID: q.FinalQuestionID,
			Reason:     "final question does not exist",
		})
	}

	for _, question := range q.Questions {
		if !question.TypeField.IsValid() {
			errs = append(errs, &DefinitionIntegrityError{
				QuestionID: question.ID,
				Reason:     fmt.Sprintf("invalid question type %q", question.TypeField),
			})
		}
		if question.Next != nil && !resolves(*question.Next) {
			errs = append(errs, &DefinitionIntegrityError{
				QuestionID: question.ID,
				Reason:     fmt.Sprintf("next references missing question %d", *question.Next),
			})
		}

		optionIDs := make(map[int]bool, len(question.Options))
		for _, o := range question.Options {
			optionID := o.ID
			if optionIDs[o.ID] {
				errs = append(errs, &DefinitionIntegrityError{
					QuestionID: question.ID,
					OptionID:   &optionID,
					Reason:     "duplicate option id",
				})
			}
			optionIDs[o.ID] = true

			if o.Next != nil && !resolves(*o.Next) {
				errs = append(errs, &DefinitionIntegrityError{
					QuestionID: question.ID,
					OptionID:   &optionID,
					Reason:     fmt.Sprintf("next references missing question %d", *o.Next),
				})
			}
		}
	}

	return errors.Join(errs...)
}
