package dto

import "github.com/google/uuid"

// VerifyResponse mirrors vision.LivenessVerdict for the HTTP API.
type VerifyResponse struct {
	Prediction      string       `json:"prediction"`
	Confidence      float64      `json:"confidence"`
	FailureReason   string       `json:"failure_reason,omitempty"`
	LivenessScores  *ScoresDTO   `json:"liveness_scores,omitempty"`
	OcclusionScores *ScoresDTO   `json:"occlusion_scores,omitempty"`
}

type ScoresDTO struct {
	NameA string  `json:"name_a"`
	A     float64 `json:"a"`
	NameB string  `json:"name_b"`
	B     float64 `json:"b"`
}

// VerdictEventResponse is the audit-trail read model for a past
// detect_liveness invocation.
type VerdictEventResponse struct {
	ID              uuid.UUID  `json:"id"`
	PersonID        *uuid.UUID `json:"person_id,omitempty"`
	Prediction      string     `json:"prediction"`
	Confidence      float64    `json:"confidence"`
	FailureReason   string     `json:"failure_reason,omitempty"`
	ImageURL        string     `json:"image_url"`
	CreatedAt       string     `json:"created_at"`
}

// WSEvent is broadcast over the /v1/ws WebSocket whenever a verdict is
// recorded.
type WSEvent struct {
	Type string                `json:"type"`
	Data VerdictEventResponse  `json:"data"`
}

// EnrollTaskResponse reports the status of an asynchronous enrollment job.
type EnrollTaskResponse struct {
	ID       uuid.UUID `json:"id"`
	PersonID uuid.UUID `json:"person_id"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
}
