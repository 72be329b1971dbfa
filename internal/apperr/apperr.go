// Package apperr defines the error kinds surfaced by the wishlist store.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a store failure.
type Kind string

const (
	// KindValidation marks an empty or invalid required field on create or update.
	KindValidation Kind = "VALIDATION_ERROR"
	// KindImportFormat marks an import document that does not parse or has the wrong shape.
	KindImportFormat Kind = "IMPORT_FORMAT_ERROR"
	// KindTransaction marks a failed atomic commit in the storage engine.
	KindTransaction Kind = "TRANSACTION_ERROR"
)

// Error is a classified error with an optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a ValidationError.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ImportFormat returns an ImportFormatError wrapping err (which may be nil).
func ImportFormat(message string, err error) *Error {
	return &Error{Kind: KindImportFormat, Message: message, Err: err}
}

// Transaction returns a TransactionError wrapping err.
func Transaction(message string, err error) *Error {
	return &Error{Kind: KindTransaction, Message: message, Err: err}
}

// Is reports whether any error in err's chain is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
