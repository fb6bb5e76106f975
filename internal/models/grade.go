package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment types with special meaning for feature extraction. Any other
// tag is accepted.
const (
	AssignmentHomework = "Homework"
	AssignmentQuiz     = "Quiz"
	AssignmentMidterm  = "Midterm"
	AssignmentFinal    = "Final"
)

// Grade is the state owned by a grade actor.
type Grade struct {
	ID             uuid.UUID `json:"id"`
	StudentID      uuid.UUID `json:"student_id"`
	ClassID        uuid.UUID `json:"class_id"`
	Score          float64   `json:"score"`
	MaxScore       float64   `json:"max_score"`
	AssignmentType string    `json:"assignment_type"`
	DateRecorded   time.Time `json:"date_recorded"`
	SemesterWeek   int       `json:"semester_week"`
}

// Percentage is derived from score and max score and never stored.
func (g Grade) Percentage() float64 {
	if g.MaxScore <= 0 {
		return 0
	}
	return g.Score / g.MaxScore * 100
}

// Exists reports whether the record was ever set.
func (g Grade) Exists() bool {
	return g.ID != uuid.Nil
}
