// Package errors provides error handling for entitystore.
//
// This package re-exports github.com/cockroachdb/errors for stack traces,
// wrapping and hints, and defines the closed taxonomy of storage errors
// surfaced to callers:
//
//   - validation errors (caller-correctable): ValueTooLongError,
//     TypeMismatchError, NotFoundError, ConstraintViolationError,
//     UnsupportedQueryError
//   - schema-invariant errors: assertion failures created with
//     AssertionFailedf, detected with IsSchemaInvariant
//   - engine errors: anything else, wrapped with context
//
// Usage:
//
//	if errors.IsValidationError(err) {
//	    // report to the caller
//	}
//
//	var tooLong *errors.ValueTooLongError
//	if errors.As(err, &tooLong) {
//	    log.Printf("attribute %s is too long", tooLong.Attribute)
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
	GetAllHints = crdb.GetAllHints
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions signal schema-invariant violations: a malformed entity type
// reached the storage engine. They are never translated into validation
// messages.
var (
	AssertionFailedf                 = crdb.AssertionFailedf
	NewAssertionErrorWithWrappedErrf = crdb.NewAssertionErrorWithWrappedErrf
)

// IsSchemaInvariant reports whether err is (or wraps) an assertion failure.
func IsSchemaInvariant(err error) bool {
	return err != nil && crdb.HasAssertionFailure(err)
}
