package models

import "github.com/google/uuid"

// RegistryState is the persisted id index of one entity kind.
type RegistryState struct {
	IDs []uuid.UUID `json:"ids"`
}
