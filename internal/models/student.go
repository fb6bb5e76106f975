package models

import (
	"time"

	"github.com/google/uuid"
)

// Student is the state owned by a student actor.
type Student struct {
	ID               uuid.UUID   `json:"id"`
	FirstName        string      `json:"first_name"`
	LastName         string      `json:"last_name"`
	Email            string      `json:"email"`
	PhoneNumber      string      `json:"phone_number"`
	DateOfBirth      time.Time   `json:"date_of_birth"`
	Address          string      `json:"address"`
	EnrolledClassIDs []uuid.UUID `json:"enrolled_class_ids"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Exists reports whether the record was ever set.
func (s Student) Exists() bool {
	return s.ID != uuid.Nil
}

// Clone returns a deep copy.
func (s Student) Clone() Student {
	s.EnrolledClassIDs = CloneIDs(s.EnrolledClassIDs)
	return s
}

// StudentFilter pages through registered students.
type StudentFilter struct {
	Page     int
	PageSize int
}
