package models

import "github.com/google/uuid"

// ClassRecommendation ranks a class a student has not taken yet.
type ClassRecommendation struct {
	ClassID             uuid.UUID `json:"class_id"`
	ClassName           string    `json:"class_name"`
	RecommendationScore float64   `json:"recommendation_score"`
	Reason              string    `json:"reason"`
}

// AtRiskStudent is one entry of a class at-risk listing.
type AtRiskStudent struct {
	StudentID   uuid.UUID `json:"student_id"`
	StudentName string    `json:"student_name"`
	Probability float64   `json:"probability"`
	Average     float64   `json:"current_average"`
}
