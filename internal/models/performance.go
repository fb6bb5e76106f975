package models

import (
	"time"

	"github.com/google/uuid"
)

// StudentPerformance aggregates a student's grades within one class.
type StudentPerformance struct {
	StudentID                uuid.UUID   `json:"student_id"`
	ClassID                  uuid.UUID   `json:"class_id"`
	CurrentAverage           float64     `json:"current_average"`
	PredictedFinalGrade      float64     `json:"predicted_final_grade"`
	IsAtRisk                 bool        `json:"is_at_risk"`
	AtRiskProbability        float64     `json:"at_risk_probability"`
	GradeIDs                 []uuid.UUID `json:"grade_ids"`
	AttendanceRate           int         `json:"attendance_rate"`
	AssignmentCompletionRate int         `json:"assignment_completion_rate"`
	LastUpdated              time.Time   `json:"last_updated"`
}

// Exists reports whether the record was ever written.
func (p StudentPerformance) Exists() bool {
	return p.StudentID != uuid.Nil
}

// Clone returns a deep copy.
func (p StudentPerformance) Clone() StudentPerformance {
	p.GradeIDs = CloneIDs(p.GradeIDs)
	return p
}
