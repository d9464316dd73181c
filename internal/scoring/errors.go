package scoring

import (
	"errors"
	"fmt"
)

// ScoringError reports a response set that references an item not present in
// the scale definition. It is fatal to a Complete call; the administration
// stays in progress.
type ScoringError struct {
	ItemID uint
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring failed: response references unknown item %d", e.ItemID)
}

// IsScoringError checks if err is a ScoringError.
func IsScoringError(err error) bool {
	var se *ScoringError
	return errors.As(err, &se)
}
