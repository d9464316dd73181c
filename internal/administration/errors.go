package administration

import (
	"errors"
	"fmt"
)

var (
	ErrNotActive          = errors.New("administration is not in progress")
	ErrAlreadyCompleted   = errors.New("administration already completed")
	ErrNavigationDisabled = errors.New("free navigation is disabled for this administration mode")
	ErrIndexOutOfRange    = errors.New("item index out of range")
	ErrCannotProceed      = errors.New("current item requires a response before proceeding")
	ErrRequiredUnanswered = errors.New("required items are unanswered")
	ErrScaleMismatch      = errors.New("administration does not belong to this scale")
)

// ResponseValidationError rejects a single SaveResponse call and leaves the
// administration state unchanged.
type ResponseValidationError struct {
	ItemID  uint   `json:"item_id"`
	Message string `json:"message"`
}

func (e *ResponseValidationError) Error() string {
	return fmt.Sprintf("invalid response for item %d: %s", e.ItemID, e.Message)
}

// IsResponseValidationError checks if err is a ResponseValidationError.
func IsResponseValidationError(err error) bool {
	var rve *ResponseValidationError
	return errors.As(err, &rve)
}
