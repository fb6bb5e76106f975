package models

import "github.com/google/uuid"

// User is an instructor or staff member with assigned classes.
type User struct {
	ID       uuid.UUID   `json:"id"`
	Name     string      `json:"name"`
	ClassIDs []uuid.UUID `json:"class_ids"`
}

// Exists reports whether the record was ever set.
func (u User) Exists() bool {
	return u.ID != uuid.Nil
}

// Clone returns a deep copy.
func (u User) Clone() User {
	u.ClassIDs = CloneIDs(u.ClassIDs)
	return u
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
