package models

import (
	"time"

	"github.com/google/uuid"
)

type EnrollStatus string

const (
	EnrollStatusPending    EnrollStatus = "pending"
	EnrollStatusProcessing EnrollStatus = "processing"
	EnrollStatusDone       EnrollStatus = "done"
	EnrollStatusFailed     EnrollStatus = "failed"
)

// EnrollTask describes an asynchronous face-enrollment job: an image
// already stored in object storage, waiting to be embedded and attached
// to a person.
type EnrollTask struct {
	ID        uuid.UUID    `json:"id"`
	PersonID  uuid.UUID    `json:"person_id"`
	ImageKey  string       `json:"image_key"`
	Status    EnrollStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
