package dto

// EnrollRequest names the class a student joins.
type EnrollRequest struct {
	ClassID string `json:"class_id"`
}

// AssignClassRequest names the class handed to a user.
type AssignClassRequest struct {
	ClassID string `json:"class_id"`
}

// RemovalResponse reports whether a membership existed before removal.
type RemovalResponse struct {
	Removed bool `json:"removed"`
}
