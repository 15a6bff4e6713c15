package offer

import (
	"errors"
	"fmt"
)

// ErrPostNotFound signals a dangling job reference. Retrying cannot help,
// so workers treat it as immediately terminal.
var ErrPostNotFound = errors.New("post not found")

var ErrBatchNotFound = errors.New("batch not found")

var ErrErrorLogNotFound = errors.New("error log entry not found")

// AdapterError is the typed failure a channel adapter raises on a
// non-success response from the external API.
type AdapterError struct {
	Channel Channel
	Status  int
	Message string
}

func (e *AdapterError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s adapter: %s (status %d)", e.Channel, e.Message, e.Status)
	}
	return fmt.Sprintf("%s adapter: %s", e.Channel, e.Message)
}

// NewConfigError reports missing channel credentials or endpoints. It is
// deliberately just an AdapterError: the call fails fast and the normal
// retry budget applies.
func NewConfigError(ch Channel, what string) *AdapterError {
	return &AdapterError{Channel: ch, Message: "missing configuration: " + what}
}
