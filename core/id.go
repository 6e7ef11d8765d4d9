package core

import "github.com/google/uuid"

// NewID generates a new unique identifier (UUID string) used to correlate
// function calls with their responses and turns with log lines.
func NewID() string { return uuid.NewString() }
