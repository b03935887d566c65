package util

import "github.com/google/uuid"

// NewID generates a unique identifier for events and policies.
func NewID() string { return uuid.NewString() }
