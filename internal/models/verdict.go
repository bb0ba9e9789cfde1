package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// VerdictEvent records one invocation of the liveness pipeline, for
// audit and later review.
type VerdictEvent struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	PersonID        *uuid.UUID      `json:"person_id,omitempty" db:"person_id"`
	Prediction      string          `json:"prediction" db:"prediction"`
	Confidence      float64         `json:"confidence" db:"confidence"`
	FailureReason   string          `json:"failure_reason,omitempty" db:"failure_reason"`
	LivenessScores  json.RawMessage `json:"liveness_scores,omitempty" db:"liveness_scores"`
	OcclusionScores json.RawMessage `json:"occlusion_scores,omitempty" db:"occlusion_scores"`
	ImageKey        string          `json:"image_key" db:"image_key"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
