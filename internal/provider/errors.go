package provider

import "fmt"

// Error is a failure reported by the upstream provider. ErrorType and
// ErrorCode carry the provider's own taxonomy when available so callers can
// surface them verbatim.
type Error struct {
	ErrorType string
	ErrorCode string
	Message   string
}

func (e *Error) Error() string {
	if e.ErrorType != "" || e.ErrorCode != "" {
		return fmt.Sprintf("provider error (%s/%s): %s", e.ErrorType, e.ErrorCode, e.Message)
	}
	return "provider error: " + e.Message
}
