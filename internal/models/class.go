package models

import (
	"time"

	"github.com/google/uuid"
)

// ClassCategory groups classes by subject area.
type ClassCategory string

// Known class categories.
const (
	ClassCategoryComputerScience ClassCategory = "COMPUTER_SCIENCE"
	ClassCategoryMathematics     ClassCategory = "MATHEMATICS"
	ClassCategoryScience         ClassCategory = "SCIENCE"
	ClassCategoryLanguage        ClassCategory = "LANGUAGE"
	ClassCategoryArts            ClassCategory = "ARTS"
	ClassCategoryBusiness        ClassCategory = "BUSINESS"
	ClassCategoryOther           ClassCategory = "OTHER"
)

// Class is the state owned by a class actor.
type Class struct {
	ID                 uuid.UUID     `json:"id"`
	Name               string        `json:"name"`
	Description        string        `json:"description"`
	InstructorName     string        `json:"instructor_name"`
	StartDate          time.Time     `json:"start_date"`
	EndDate            time.Time     `json:"end_date"`
	MaxCapacity        int           `json:"max_capacity"`
	CurrentEnrollment  int           `json:"current_enrollment"`
	IsActive           bool          `json:"is_active"`
	Category           ClassCategory `json:"category"`
	EnrolledStudentIDs []uuid.UUID   `json:"enrolled_student_ids"`
}

// Exists reports whether the record was ever set.
func (c Class) Exists() bool {
	return c.ID != uuid.Nil
}

// Full reports whether no seat is left.
func (c Class) Full() bool {
	return c.CurrentEnrollment >= c.MaxCapacity
}

// Clone returns a deep copy.
func (c Class) Clone() Class {
	c.EnrolledStudentIDs = CloneIDs(c.EnrolledStudentIDs)
	return c
}

// ClassFilter narrows class listings.
type ClassFilter struct {
	Category   ClassCategory
	ActiveOnly bool
	Page       int
	PageSize   int
}
