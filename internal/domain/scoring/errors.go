package scoring

import (
	"errors"
	"fmt"
)

// Sentinel errors for scoring failures. Typed errors below match them via
// errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// ValidationError reports malformed scoring input for a single member.
type ValidationError struct {
	Field    string
	MemberID string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.MemberID == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s for member %s: %s", e.Field, e.MemberID, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConfigurationError reports unusable scoring settings.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid setting %s: %s", e.Field, e.Reason)
}

// Is matches ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
