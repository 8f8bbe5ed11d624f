// Package visit provides the visit lifecycle: starting a visit at a house,
// walking its questionnaire, and finalizing it into a submission that is
// either sent or queued for later sync.
package visit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/evcraddock/dengue-visits/internal/answer"
	"github.com/evcraddock/dengue-visits/internal/form"
	"github.com/evcraddock/dengue-visits/internal/questionnaire"
)

// NewHouse describes a house registered during the visit itself.
type NewHouse struct {
	ReferenceCode string  `json:"reference_code,omitempty"`
	Address       string  `json:"address,omitempty"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	WedgeID       string  `json:"wedge_id,omitempty"`
	HouseBlockID  string  `json:"house_block_id,omitempty"`
}

// Details are the visit-level values recorded outside the questionnaire.
type Details struct {
	UserAccountID   string    `json:"userAccountId"`
	TeamID          string    `json:"teamId,omitempty"`
	HouseID         string    `json:"houseId,omitempty"`
	House           *NewHouse `json:"house,omitempty"`
	VisitPermission bool      `json:"visitPermission"`
	Host            []string  `json:"host,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	StartedAt       time.Time `json:"startedAt"`
}

// Data is the submission payload of a finalized visit.
type Data struct {
	Host            []string                  `json:"host"`
	VisitPermission bool                      `json:"visitPermission"`
	HouseID         string                    `json:"houseId,omitempty"`
	House           *NewHouse                 `json:"house,omitempty"`
	QuestionnaireID string                    `json:"questionnaireId"`
	TeamID          string                    `json:"teamId"`
	UserAccountID   string                    `json:"userAccountId"`
	Notes           string                    `json:"notes"`
	VisitedAt       time.Time                 `json:"visitedAt"`
	Answers         []form.AnswerRecord       `json:"answers"`
	Inspections     []form.Inspection         `json:"inspections"`
	StatusColor     questionnaire.StatusColor `json:"statusColor"`
}

// Submission is a finalized visit ready for the submission endpoint. The
// payload is the JSON encoding of Data, kept opaque so a queued visit is
// sent exactly as it was finalized.
type Submission struct {
	ID          string                    `json:"id"`
	VisitID     answer.VisitID            `json:"visitId"`
	Payload     json.RawMessage           `json:"payload"`
	Photos      []string                  `json:"photos,omitempty"`
	StatusColor questionnaire.StatusColor `json:"statusColor"`
	QueuedAt    time.Time                 `json:"queuedAt"`
}

// SubmissionError reports a failed hand-off to the submission endpoint.
// The visit it belongs to is left untouched.
type SubmissionError struct {
	VisitID answer.VisitID
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submitting visit %s: %v", e.VisitID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
