package artifact

import "fmt"

var (
	// ErrNotFound is returned when no record exists for the given policy id.
	ErrNotFound = fmt.Errorf("artifact not found")
)
