package visit

import (
	"encoding/json"
	"fmt"

	"github.com/evcraddock/dengue-visits/internal/answer"
)

// State is everything the lifecycle keeps between process restarts. It
// encodes to a single JSON blob.
type State struct {
	Current answer.VisitID             `json:"current,omitempty"`
	Store   *answer.Store              `json:"store"`
	Details map[answer.VisitID]Details `json:"details"`
	Pending []Submission               `json:"pending"`
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		Store:   answer.NewStore(),
		Details: make(map[answer.VisitID]Details),
		Pending: []Submission{},
	}
}

// DecodeState restores a state written by Encode. An empty blob yields an
// empty state.
func DecodeState(blob []byte) (*State, error) {
	s := NewState()
	if len(blob) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(blob, s); err != nil {
		return nil, fmt.Errorf("decoding visit state: %w", err)
	}
	if s.Store == nil {
		s.Store = answer.NewStore()
	}
	if s.Details == nil {
		s.Details = make(map[answer.VisitID]Details)
	}
	if s.Pending == nil {
		s.Pending = []Submission{}
	}
	return s, nil
}

// Encode serializes the state into one JSON blob.
func (s *State) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding visit state: %w", err)
	}
	return data, nil
}
