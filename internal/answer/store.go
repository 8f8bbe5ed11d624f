package answer

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/evcraddock/dengue-visits/internal/questionnaire"
)

// Photo is the stored reference of a photo taken for one inspection.
type Photo struct {
	Inspection int    `json:"inspection"`
	Ref        string `json:"ref"`
}

// Metadata tracks traversal progress of one visit.
type Metadata struct {
	InspectionIdx int                      `json:"inspectionIdx"`
	ActiveCase    questionnaire.Case       `json:"activeCase,omitempty"`
	Position      questionnaire.QuestionID `json:"position,omitempty"`
	Photos        []Photo                  `json:"photos,omitempty"`
}

// PhotoFor returns the photo reference recorded for an inspection.
func (m Metadata) PhotoFor(inspection int) (string, bool) {
	for _, p := range m.Photos {
		if p.Inspection == inspection {
			return p.Ref, true
		}
	}
	return "", false
}

// Store holds the answers and metadata of every visit that has not been
// finalized. It is not safe for concurrent use.
type Store struct {
	answers  map[VisitID]Sheet
	metadata map[VisitID]*Metadata
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		answers:  make(map[VisitID]Sheet),
		metadata: make(map[VisitID]*Metadata),
	}
}

// Init resets a visit to no answers and inspection 0.
func (s *Store) Init(visit VisitID) {
	s.answers[visit] = make(Sheet)
	s.metadata[visit] = &Metadata{}
}

// Has reports whether the store holds state for a visit.
func (s *Store) Has(visit VisitID) bool {
	_, ok := s.metadata[visit]
	return ok
}

// Visits returns the ids of every visit held by the store.
func (s *Store) Visits() []VisitID {
	ids := make([]VisitID, 0, len(s.metadata))
	for id := range s.metadata {
		ids = append(ids, id)
	}
	return ids
}

// Record stores data under the given answer id, replacing any earlier
// answer for the same question and inspection.
func (s *Store) Record(visit VisitID, id AnswerID, data Answer) {
	sheet, ok := s.answers[visit]
	if !ok {
		sheet = make(Sheet)
		s.answers[visit] = sheet
	}
	sheet[id] = data
	s.meta(visit)
}

// Clear drops the answer stored under id, if any.
func (s *Store) Clear(visit VisitID, id AnswerID) {
	delete(s.answers[visit], id)
}

// Get returns the answer stored under id.
func (s *Store) Get(visit VisitID, id AnswerID) (Answer, bool) {
	a, ok := s.answers[visit][id]
	return a, ok
}

// Sheet returns a copy of every answer recorded for a visit.
func (s *Store) Sheet(visit VisitID) Sheet {
	sheet := maps.Clone(s.answers[visit])
	if sheet == nil {
		sheet = make(Sheet)
	}
	return sheet
}

// Metadata returns a copy of the visit's metadata. An unknown visit has
// zero metadata.
func (s *Store) Metadata(visit VisitID) Metadata {
	m, ok := s.metadata[visit]
	if !ok {
		return Metadata{}
	}
	out := *m
	out.Photos = append([]Photo(nil), m.Photos...)
	return out
}

// InspectionIdx returns the visit's current inspection index.
func (s *Store) InspectionIdx(visit VisitID) int {
	if m, ok := s.metadata[visit]; ok {
		return m.InspectionIdx
	}
	return 0
}

// IncreaseInspection starts a new inspection cycle and returns its index.
// The index never decreases.
func (s *Store) IncreaseInspection(visit VisitID) int {
	m := s.meta(visit)
	m.InspectionIdx++
	return m.InspectionIdx
}

// ActiveCase returns the location the visit's current inspection is in.
func (s *Store) ActiveCase(visit VisitID) questionnaire.Case {
	if m, ok := s.metadata[visit]; ok {
		return m.ActiveCase
	}
	return ""
}

// SetActiveCase switches the location for subsequent questions.
func (s *Store) SetActiveCase(visit VisitID, c questionnaire.Case) {
	s.meta(visit).ActiveCase = c
}

// SetPosition records the question the visit should resume at.
func (s *Store) SetPosition(visit VisitID, q questionnaire.QuestionID) {
	s.meta(visit).Position = q
}

// AttachPhoto records ref for the current inspection, replacing an earlier
// photo of the same inspection.
func (s *Store) AttachPhoto(visit VisitID, ref string) {
	m := s.meta(visit)
	for i := range m.Photos {
		if m.Photos[i].Inspection == m.InspectionIdx {
			m.Photos[i].Ref = ref
			return
		}
	}
	m.Photos = append(m.Photos, Photo{Inspection: m.InspectionIdx, Ref: ref})
}

// Delete drops every answer and the metadata of a visit.
func (s *Store) Delete(visit VisitID) {
	delete(s.answers, visit)
	delete(s.metadata, visit)
}

// meta returns the visit's metadata, creating it for a visit seen for the
// first time. Only write paths call it.
func (s *Store) meta(visit VisitID) *Metadata {
	m, ok := s.metadata[visit]
	if !ok {
		m = &Metadata{}
		s.metadata[visit] = m
		if _, ok := s.answers[visit]; !ok {
			s.answers[visit] = make(Sheet)
		}
	}
	return m
}

type storeJSON struct {
	Answers  map[VisitID]Sheet     `json:"answers"`
	Metadata map[VisitID]*Metadata `json:"metadata"`
}

// MarshalJSON encodes the store as {"answers": ..., "metadata": ...}
// keyed by visit id and answer id strings.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(storeJSON{Answers: s.answers, Metadata: s.metadata})
}

// UnmarshalJSON restores a store written by MarshalJSON.
func (s *Store) UnmarshalJSON(data []byte) error {
	var raw storeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding answer store: %w", err)
	}

	restored := NewStore()
	for id, sheet := range raw.Answers {
		if sheet == nil {
			sheet = make(Sheet)
		}
		restored.answers[id] = sheet
	}
	for id, m := range raw.Metadata {
		if m == nil {
			m = &Metadata{}
		}
		restored.metadata[id] = m
		if _, ok := restored.answers[id]; !ok {
			restored.answers[id] = make(Sheet)
		}
	}
	*s = *restored
	return nil
}
