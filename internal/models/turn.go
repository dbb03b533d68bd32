package models

import "time"

// Turn kinds.
const (
	TurnConsult  = "consult"
	TurnFollowUp = "followup"
)

// Turn is one exchange in a consultation.
type Turn struct {
	ID        int64     `json:"id,omitempty" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Kind      string    `json:"kind" db:"kind"`
	Query     string    `json:"query" db:"query"`
	Response  string    `json:"response" db:"response"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
