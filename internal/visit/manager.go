package visit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/evcraddock/dengue-visits/internal/answer"
	"github.com/evcraddock/dengue-visits/internal/form"
	"github.com/evcraddock/dengue-visits/internal/questionnaire"
	"github.com/evcraddock/dengue-visits/internal/traversal"
)

var (
	// ErrVisitInProgress means another visit must be finished or discarded
	// before a new one starts.
	ErrVisitInProgress = errors.New("another visit is in progress")
	// ErrUnknownVisit means the visit was never started or is already closed.
	ErrUnknownVisit = errors.New("visit not found")
	// ErrVisitComplete means the questionnaire has no question left to answer.
	ErrVisitComplete = errors.New("questionnaire already complete")
	// ErrNoSubmitter means an online operation was requested without a
	// submission endpoint.
	ErrNoSubmitter = errors.New("no submitter configured")
)

// Submitter delivers a finalized visit to the backend.
type Submitter interface {
	Submit(ctx context.Context, s Submission) error
}

// Persister durably stores the encoded state.
type Persister interface {
	Save(ctx context.Context, blob []byte) error
}

// History keeps delivered submissions.
type History interface {
	RecordSubmission(ctx context.Context, s Submission) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithPersister saves the state after every change.
func WithPersister(p Persister) Option {
	return func(m *Manager) { m.persister = p }
}

// WithSubmitter sets the submission endpoint used when online.
func WithSubmitter(s Submitter) Option {
	return func(m *Manager) { m.submitter = s }
}

// WithHistory records every delivered submission.
func WithHistory(h History) Option {
	return func(m *Manager) { m.history = h }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager runs the visit lifecycle over one questionnaire. It is not safe
// for concurrent use.
type Manager struct {
	def       *questionnaire.Questionnaire
	state     *State
	engine    *traversal.Engine
	persister Persister
	submitter Submitter
	history   History
	now       func() time.Time
}

// NewManager creates a manager over a validated questionnaire and a state,
// usually one restored with DecodeState. A nil questionnaire is enough for
// working the pending queue.
func NewManager(def *questionnaire.Questionnaire, state *State, opts ...Option) *Manager {
	if def == nil {
		def = &questionnaire.Questionnaire{}
	}
	if state == nil {
		state = NewState()
	}
	m := &Manager{
		def:    def,
		state:  state,
		engine: traversal.NewEngine(def, state.Store),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Questionnaire returns the definition visits are walked against.
func (m *Manager) Questionnaire() *questionnaire.Questionnaire {
	return m.def
}

// State returns the live state.
func (m *Manager) State() *State {
	return m.state
}

// Current returns the visit in progress, if any.
func (m *Manager) Current() (answer.VisitID, bool) {
	if m.state.Current == "" || !m.state.Store.Has(m.state.Current) {
		return "", false
	}
	return m.state.Current, true
}

// Initialise starts a visit and positions it at the initial question.
// Starting the visit already in progress resets it.
func (m *Manager) Initialise(ctx context.Context, id answer.VisitID, details Details) error {
	if cur, ok := m.Current(); ok && cur != id {
		return fmt.Errorf("starting visit %s: %w (%s)", id, ErrVisitInProgress, cur)
	}

	if details.StartedAt.IsZero() {
		details.StartedAt = m.now().UTC()
	}

	m.state.Store.Init(id)
	m.state.Details[id] = details
	m.state.Current = id
	m.engine.Start(id)

	slog.Info("visit started", "visit", id, "questionnaire", m.def.ID)
	m.persist(ctx)
	return nil
}

// Position returns the question the visit stands on, or
// questionnaire.Terminate once the walk is over.
func (m *Manager) Position(id answer.VisitID) (questionnaire.QuestionID, error) {
	if !m.state.Store.Has(id) {
		return 0, fmt.Errorf("visit %s: %w", id, ErrUnknownVisit)
	}
	return m.state.Store.Metadata(id).Position, nil
}

// Options returns the current question and the options selectable on it.
func (m *Manager) Options(id answer.VisitID) (*questionnaire.Question, []questionnaire.Option, error) {
	pos, err := m.Position(id)
	if err != nil {
		return nil, nil, err
	}
	if pos == questionnaire.Terminate {
		return nil, nil, fmt.Errorf("visit %s: %w", id, ErrVisitComplete)
	}
	q, err := m.def.Lookup(pos)
	if err != nil {
		return nil, nil, err
	}
	opts, err := m.engine.Options(id, pos)
	if err != nil {
		return nil, nil, err
	}
	return q, opts, nil
}

// Answer records the selections for question q and advances the visit.
// Passing the current position answers the question on screen; an earlier
// question id overwrites a previous answer in the current inspection.
func (m *Manager) Answer(ctx context.Context, id answer.VisitID, q questionnaire.QuestionID, selections []traversal.Selection) (traversal.Result, error) {
	if !m.state.Store.Has(id) {
		return traversal.Result{Next: questionnaire.Terminate}, fmt.Errorf("visit %s: %w", id, ErrUnknownVisit)
	}
	if q == questionnaire.Terminate {
		return traversal.Result{Next: questionnaire.Terminate}, fmt.Errorf("visit %s: %w", id, ErrVisitComplete)
	}

	res, err := m.engine.Select(id, q, selections)
	if err != nil {
		return res, fmt.Errorf("answering question %d: %w", q, err)
	}

	slog.Debug("question answered", "visit", id, "question", q, "next", res.Next, "inspection", res.Inspection)
	m.persist(ctx)
	return res, nil
}

// IncreaseInspection starts a new inspection and returns its index.
func (m *Manager) IncreaseInspection(ctx context.Context, id answer.VisitID) (int, error) {
	if !m.state.Store.Has(id) {
		return 0, fmt.Errorf("visit %s: %w", id, ErrUnknownVisit)
	}
	idx := m.state.Store.IncreaseInspection(id)
	m.persist(ctx)
	return idx, nil
}

// AttachPhoto stores a photo reference for the current inspection.
func (m *Manager) AttachPhoto(ctx context.Context, id answer.VisitID, ref string) error {
	if !m.state.Store.Has(id) {
		return fmt.Errorf("visit %s: %w", id, ErrUnknownVisit)
	}
	m.state.Store.AttachPhoto(id, ref)
	m.persist(ctx)
	return nil
}

// SetNotes replaces the visit comment.
func (m *Manager) SetNotes(ctx context.Context, id answer.VisitID, notes string) error {
	d, ok := m.state.Details[id]
	if !ok || !m.state.Store.Has(id) {
		return fmt.Errorf("visit %s: %w", id, ErrUnknownVisit)
	}
	d.Notes = notes
	m.state.Details[id] = d
	m.persist(ctx)
	return nil
}

// Preview assembles the payload of a visit without closing it.
func (m *Manager) Preview(id answer.VisitID) (Data, error) {
	data, _, err := m.assemble(id)
	return data, err
}

// Finalise reduces a visit into its submission. Online, the submission is
// handed to the submitter and the visit is kept intact on failure. Offline,
// it is appended to the pending queue. Either way a closed visit is removed
// from the store.
func (m *Manager) Finalise(ctx context.Context, id answer.VisitID, online bool) (Submission, error) {
	data, photos, err := m.assemble(id)
	if err != nil {
		return Submission{}, err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return Submission{}, fmt.Errorf("encoding visit %s: %w", id, err)
	}

	sub := Submission{
		ID:          uuid.NewString(),
		VisitID:     id,
		Payload:     payload,
		Photos:      photos,
		StatusColor: data.StatusColor,
	}

	if online {
		if m.submitter == nil {
			return Submission{}, fmt.Errorf("finalising visit %s: %w", id, ErrNoSubmitter)
		}
		if err := m.submitter.Submit(ctx, sub); err != nil {
			slog.Warn("submission failed", "visit", id, "error", err)
			return Submission{}, &SubmissionError{VisitID: id, Err: err}
		}
		m.record(ctx, sub)
		slog.Info("visit submitted", "visit", id, "submission", sub.ID, "status", sub.StatusColor)
	} else {
		sub.QueuedAt = m.now().UTC()
		m.state.Pending = append(m.state.Pending, sub)
		slog.Info("visit queued", "visit", id, "submission", sub.ID, "pending", len(m.state.Pending))
	}

	m.close(id)
	m.persist(ctx)
	return sub, nil
}

// Discard drops a visit without submitting it.
func (m *Manager) Discard(ctx context.Context, id answer.VisitID) error {
	if !m.state.Store.Has(id) {
		return fmt.Errorf("visit %s: %w", id, ErrUnknownVisit)
	}
	m.close(id)
	slog.Info("visit discarded", "visit", id)
	m.persist(ctx)
	return nil
}

// Pending returns a copy of the queued submissions, oldest first.
func (m *Manager) Pending() []Submission {
	out := make([]Submission, len(m.state.Pending))
	copy(out, m.state.Pending)
	return out
}

// SyncPending submits queued visits in order. Each delivered entry leaves
// the queue; the first failure stops the run and is returned along with the
// number already delivered.
func (m *Manager) SyncPending(ctx context.Context) (int, error) {
	if len(m.state.Pending) == 0 {
		return 0, nil
	}
	if m.submitter == nil {
		return 0, ErrNoSubmitter
	}

	sent := 0
	for len(m.state.Pending) > 0 {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		sub := m.state.Pending[0]
		if err := m.submitter.Submit(ctx, sub); err != nil {
			slog.Warn("sync stopped", "visit", sub.VisitID, "submission", sub.ID, "sent", sent, "error", err)
			return sent, &SubmissionError{VisitID: sub.VisitID, Err: err}
		}
		m.state.Pending = m.state.Pending[1:]
		m.record(ctx, sub)
		sent++
		m.persist(ctx)
	}

	slog.Info("pending visits synced", "sent", sent)
	return sent, nil
}

func (m *Manager) assemble(id answer.VisitID) (Data, []string, error) {
	if !m.state.Store.Has(id) {
		return Data{}, nil, fmt.Errorf("visit %s: %w", id, ErrUnknownVisit)
	}

	res, err := form.Reduce(m.state.Store.Sheet(id))
	if err != nil {
		return Data{}, nil, err
	}

	meta := m.state.Store.Metadata(id)
	details := m.state.Details[id]
	visitedAt := m.now().UTC()

	var photos []string
	for i := range res.Inspections {
		insp := &res.Inspections[i]
		insp.Fields[form.FieldVisitedAt] = visitedAt.Format(time.RFC3339)
		if insp.Fields[form.FieldPhoto] != form.PhotoPlaceholder {
			continue
		}
		ref, ok := meta.PhotoFor(insp.Index)
		if !ok {
			delete(insp.Fields, form.FieldPhoto)
			continue
		}
		insp.Fields[form.FieldPhoto] = filepath.Base(ref)
		photos = append(photos, ref)
	}

	host := res.Visit.Host
	if len(host) == 0 {
		host = details.Host
	}
	if host == nil {
		host = []string{}
	}

	data := Data{
		Host:            host,
		VisitPermission: details.VisitPermission,
		HouseID:         details.HouseID,
		House:           details.House,
		QuestionnaireID: m.def.ID,
		TeamID:          details.TeamID,
		UserAccountID:   details.UserAccountID,
		Notes:           details.Notes,
		VisitedAt:       visitedAt,
		Answers:         res.Answers,
		Inspections:     res.Inspections,
		StatusColor:     res.StatusColor,
	}
	return data, photos, nil
}

func (m *Manager) close(id answer.VisitID) {
	m.state.Store.Delete(id)
	delete(m.state.Details, id)
	if m.state.Current == id {
		m.state.Current = ""
	}
}

func (m *Manager) record(ctx context.Context, sub Submission) {
	if m.history == nil {
		return
	}
	if err := m.history.RecordSubmission(ctx, sub); err != nil {
		slog.Warn("recording submission history", "submission", sub.ID, "error", err)
	}
}

// persist saves the state. The in-memory state stays authoritative when
// the save fails.
func (m *Manager) persist(ctx context.Context) {
	if m.persister == nil {
		return
	}
	blob, err := m.state.Encode()
	if err != nil {
		slog.Error("storage failure", "error", err)
		return
	}
	if err := m.persister.Save(ctx, blob); err != nil {
		slog.Error("storage failure", "error", err)
	}
}
