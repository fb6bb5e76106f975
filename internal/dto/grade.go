package dto

import (
	"time"

	"github.com/noah-isme/sma-course-api/internal/models"
)

// GradeResponse is the API shape of a grade with its derived percentage.
type GradeResponse struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id"`
	ClassID        string    `json:"class_id"`
	Score          float64   `json:"score"`
	MaxScore       float64   `json:"max_score"`
	Percentage     float64   `json:"percentage"`
	AssignmentType string    `json:"assignment_type"`
	DateRecorded   time.Time `json:"date_recorded"`
	SemesterWeek   int       `json:"semester_week"`
}

// NewGradeResponse maps a grade record.
func NewGradeResponse(g models.Grade) GradeResponse {
	return GradeResponse{
		ID:             g.ID.String(),
		StudentID:      g.StudentID.String(),
		ClassID:        g.ClassID.String(),
		Score:          g.Score,
		MaxScore:       g.MaxScore,
		Percentage:     g.Percentage(),
		AssignmentType: g.AssignmentType,
		DateRecorded:   g.DateRecorded,
		SemesterWeek:   g.SemesterWeek,
	}
}

// NewGradeResponses maps a slice of grades, keeping order.
func NewGradeResponses(grades []models.Grade) []GradeResponse {
	out := make([]GradeResponse, 0, len(grades))
	for _, g := range grades {
		out = append(out, NewGradeResponse(g))
	}
	return out
}
