package models

import "time"

// EnrollmentOutcome labels how an enrollment attempt ended.
type EnrollmentOutcome string

// Possible enrollment outcomes.
const (
	EnrollmentOutcomeEnrolled    EnrollmentOutcome = "ENROLLED"
	EnrollmentOutcomeUnenrolled  EnrollmentOutcome = "UNENROLLED"
	EnrollmentOutcomeRejected    EnrollmentOutcome = "REJECTED"
	EnrollmentOutcomeCompensated EnrollmentOutcome = "COMPENSATED"
	EnrollmentOutcomeDeferred    EnrollmentOutcome = "DEFERRED"
)

// EnrollmentResult is returned by the enrollment endpoints.
type EnrollmentResult struct {
	StudentID         string            `json:"student_id"`
	ClassID           string            `json:"class_id"`
	Outcome           EnrollmentOutcome `json:"outcome"`
	CurrentEnrollment int               `json:"current_enrollment"`
	MaxCapacity       int               `json:"max_capacity"`
	ProcessedAt       time.Time         `json:"processed_at"`
}

// StateRecord is one persisted actor state row.
type StateRecord struct {
	Partition string    `db:"kind"`
	Key       string    `db:"state_key"`
	Payload   string    `db:"payload"`
	UpdatedAt time.Time `db:"updated_at"`
}
