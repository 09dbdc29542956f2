package validation

import "fmt"

// Field names reported in errors.
const (
	FieldOrigin      = "origin"
	FieldDestination = "destination"
	FieldAddresses   = "addresses"
	FieldVolume      = "volume"
	FieldUnit        = "unit"
	FieldDistance    = "distance"
)

// Error is an input problem. Message is meant for the person who sent the
// request and is returned verbatim.
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) *Error {
	return &Error{Field: field, Message: message}
}
