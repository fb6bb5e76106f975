package models

// Notification is a short-lived message addressed by id.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
