package models

import "time"

// Credential is an opaque reference to stored authentication material for an
// external app or chat-model provider. The secret itself never leaves the
// backend; the builder only ever sees this descriptor.
type Credential struct {
	ID        string    `json:"id"       validate:"required"`
	Provider  string    `json:"provider" validate:"required"`
	Name      string    `json:"name"     validate:"required"`
	Owner     string    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
