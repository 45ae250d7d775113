package crud

import (
	"errors"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("not found")

	// ErrNoRowsAffected is returned when a write matched nothing
	ErrNoRowsAffected = errors.New("no rows affected")

	// ErrNotImplemented is returned by operations that are declared but not built
	ErrNotImplemented = errors.New("updateMany is not implemented")

	// ErrSameRow is returned when a row is sorted onto itself
	ErrSameRow = errors.New("id and targetId must differ")

	// ErrInvalidQuery wraps malformed order or filter arguments
	ErrInvalidQuery = errors.New("invalid query")
)

// FieldError is one error reported inline in a mutation payload.
type FieldError struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// Payload is the result of a mutation: the affected node, the accumulated
// errors, or both when nested writes partially failed.
type Payload struct {
	Node   Node         `json:"node,omitempty"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Err joins the payload errors, or returns nil.
func (p Payload) Err() error {
	if len(p.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(p.Errors))
	for i, e := range p.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

func fail(err error) Payload {
	return Payload{Errors: []FieldError{{Message: err.Error()}}}
}

// prefixErrors nests child errors under path, e.g. items.0.title
func prefixErrors(path string, errs []FieldError) []FieldError {
	out := make([]FieldError, len(errs))
	for i, e := range errs {
		p := path
		if e.Path != "" {
			p += "." + e.Path
		}
		out[i] = FieldError{Path: p, Message: e.Message}
	}
	return out
}
