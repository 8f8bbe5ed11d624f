package traversal

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/evcraddock/dengue-visits/internal/answer"
	"github.com/evcraddock/dengue-visits/internal/questionnaire"
)

var (
	// ErrMissingAnswer means next was requested before anything was selected.
	ErrMissingAnswer = errors.New("no option selected")
	// ErrUnknownOption means a selection names an option the question lacks.
	ErrUnknownOption = errors.New("unknown option")
	// ErrHiddenOption means a selection names an option filtered out for
	// the visit's current location.
	ErrHiddenOption = errors.New("option not available here")
	// ErrInvalidInput means the free input does not fit the option type.
	ErrInvalidInput = errors.New("invalid input")
)

// Selection is one option picked on a question screen plus its free input.
type Selection struct {
	OptionID int
	Text     string
	Bool     *bool
}

// Engine applies answers of one questionnaire to an answer store.
type Engine struct {
	def   *questionnaire.Questionnaire
	store *answer.Store
}

// NewEngine creates an engine over a validated questionnaire.
func NewEngine(def *questionnaire.Questionnaire, store *answer.Store) *Engine {
	return &Engine{def: def, store: store}
}

// Questionnaire returns the definition the engine walks.
func (e *Engine) Questionnaire() *questionnaire.Questionnaire {
	return e.def
}

// Start positions a visit at the initial question.
func (e *Engine) Start(visit answer.VisitID) questionnaire.QuestionID {
	e.store.SetPosition(visit, e.def.InitialQuestionID)
	return e.def.InitialQuestionID
}

// Options returns the options of a question selectable in the visit.
func (e *Engine) Options(visit answer.VisitID, id questionnaire.QuestionID) ([]questionnaire.Option, error) {
	q, err := e.def.Lookup(id)
	if err != nil {
		return nil, err
	}
	return VisibleOptions(q, e.store.Sheet(visit), e.store.ActiveCase(visit)), nil
}

// Select builds the answer for question id from the picked options and
// records it.
func (e *Engine) Select(visit answer.VisitID, id questionnaire.QuestionID, selections []Selection) (Result, error) {
	q, err := e.def.Lookup(id)
	if err != nil {
		return Result{}, err
	}

	if q.TypeField != questionnaire.TypeMultiple && len(selections) > 1 {
		return Result{Next: questionnaire.Terminate}, fmt.Errorf("%w: question %d takes one option, got %d", ErrInvalidInput, id, len(selections))
	}
	if len(selections) == 0 && q.Required {
		return Result{Next: questionnaire.Terminate}, fmt.Errorf("%w: question %d is required", ErrMissingAnswer, id)
	}

	visible := VisibleOptions(q, e.store.Sheet(visit), e.store.ActiveCase(visit))
	picked := make([]answer.OptionAnswer, 0, len(selections))
	for _, sel := range selections {
		o, ok := q.Option(sel.OptionID)
		if !ok {
			return Result{Next: questionnaire.Terminate}, fmt.Errorf("%w: question %d has no option %d", ErrUnknownOption, id, sel.OptionID)
		}
		if !isVisible(visible, o.ID) {
			return Result{Next: questionnaire.Terminate}, fmt.Errorf("%w: option %d of question %d", ErrHiddenOption, o.ID, id)
		}

		a, err := fill(answer.FromOption(q, *o), *o, sel)
		if err != nil {
			return Result{Next: questionnaire.Terminate}, err
		}
		picked = append(picked, a)
	}

	var data answer.Answer
	switch {
	case len(picked) == 0:
		// splash screens and skipped optional questions
	case q.TypeField == questionnaire.TypeMultiple:
		data = answer.Multiple(picked...)
	default:
		data = answer.Single(picked[0])
	}
	return e.Record(visit, id, data)
}

// Record stores data as the answer to question id under the visit's
// current inspection, applies its location and inspection side effects,
// and returns where traversal goes next.
//
// An empty answer removes any earlier answer to the question and follows
// its fixed edge. Without a fixed edge it returns Terminate with
// ErrMissingAnswer and leaves the store untouched.
func (e *Engine) Record(visit answer.VisitID, id questionnaire.QuestionID, data answer.Answer) (Result, error) {
	q, err := e.def.Lookup(id)
	if err != nil {
		return Result{}, err
	}

	idx := e.store.InspectionIdx(visit)
	if data.IsEmpty() {
		if q.Next == nil {
			return Result{Next: questionnaire.Terminate, Inspection: idx}, fmt.Errorf("%w: question %d", ErrMissingAnswer, id)
		}
		if err := e.checkEdge(q, *q.Next); err != nil {
			return Result{}, err
		}
		e.store.Clear(visit, answer.NewAnswerID(id, idx))
		e.store.SetPosition(visit, *q.Next)
		return Result{Next: *q.Next, Inspection: idx}, nil
	}

	res := Next(q, data)
	res.Inspection = idx
	if err := e.checkEdge(q, res.Next); err != nil {
		return Result{}, err
	}

	e.store.Record(visit, answer.NewAnswerID(id, idx), data)
	for _, o := range data.Options() {
		if o.SelectedCase != "" {
			e.store.SetActiveCase(visit, o.SelectedCase)
		}
	}
	for _, o := range data.Options() {
		if o.ShowInCase != "" && o.Truthy() {
			started := e.store.IncreaseInspection(visit)
			res.NewInspection = true
			slog.Debug("inspection started", "visit", visit, "inspection", started, "question", id)
			break
		}
	}
	e.store.SetPosition(visit, res.Next)

	return res, nil
}

// checkEdge fails when next is neither Terminate nor a defined question.
func (e *Engine) checkEdge(q *questionnaire.Question, next questionnaire.QuestionID) error {
	if next == questionnaire.Terminate {
		return nil
	}
	if _, ok := e.def.Question(next); !ok {
		return &questionnaire.DefinitionIntegrityError{
			QuestionID: q.ID,
			Reason:     fmt.Sprintf("next references missing question %d", next),
		}
	}
	return nil
}

func fill(a answer.OptionAnswer, o questionnaire.Option, sel Selection) (answer.OptionAnswer, error) {
	text := strings.TrimSpace(sel.Text)
	if o.OptionType == questionnaire.InputNumber && text != "" {
		if n, err := strconv.Atoi(text); err != nil || n < 0 {
			return a, fmt.Errorf("%w: option %d expects a whole number, got %q", ErrInvalidInput, o.ID, sel.Text)
		}
	}
	if o.Required && text == "" && (o.TextArea || o.OptionType == questionnaire.TextArea || o.OptionType == questionnaire.InputNumber) {
		return a, fmt.Errorf("%w: option %d needs a value", ErrMissingAnswer, o.ID)
	}

	a.Text = text
	if sel.Bool != nil {
		b := *sel.Bool
		a.Bool = &b
	}
	return a, nil
}
