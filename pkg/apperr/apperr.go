// Package apperr classifies errors so transports can map them without knowing
// which service produced them.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindFatal Kind = iota
	KindNotFound
	KindValidation
	KindBusiness
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindBusiness:
		return "business"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Error is a classified error. Sentinels are declared with New and compared
// with errors.Is; wrapped causes are reachable through Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Business(message string) *Error   { return New(KindBusiness, message) }
func Transient(message string) *Error  { return New(KindTransient, message) }
func Validation(message string) *Error { return New(KindValidation, message) }

// Invalid builds a validation error with per-field details.
func Invalid(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Wrap attaches a kind to an arbitrary cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain,
// KindFatal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

// FieldsOf returns validation details from the first classified error carrying them.
func FieldsOf(err error) map[string]string {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return nil
		}
		if len(e.Fields) > 0 {
			return e.Fields
		}
		err = e.Err
	}
	return nil
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
