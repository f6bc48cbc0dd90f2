package event

import (
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"
)

var (
	// ErrValidation matches any malformed-envelope or malformed-payload error.
	ErrValidation = apperrors.New(apperrors.CodeValidation, "invalid event")
	// ErrUnknownEvent matches UnknownEventError values.
	ErrUnknownEvent = apperrors.New(apperrors.CodeUnknownEvent, "unknown event type")

	errTrailingData = errors.New("trailing data after JSON value")
)

// UnknownEventError reports an event whose type this engine does not define.
//
// Raw holds the undecoded wire bytes so the event can be parked and replayed
// once a newer engine understands it.
type UnknownEventError struct {
	Type Type
	Raw  []byte
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown event type %q", string(e.Type))
}

// Unwrap lets errors.Is(err, ErrUnknownEvent) match.
func (e *UnknownEventError) Unwrap() error {
	return ErrUnknownEvent
}

func invalid(field, message string) error {
	return apperrors.Invalid(field, message)
}

func malformed(message string, cause error) error {
	return apperrors.Wrap(apperrors.CodeValidation, message, cause)
}
