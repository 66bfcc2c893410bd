// Package errors provides the structured error types used across the
// marshalling engine.
//
// Errors are categorized by Phase (where in a crossing the error occurred)
// and Kind (what went wrong). A decode fault carries the path into the value
// tree where validation failed:
//
//	[lift] invalid_discriminant at results[1]: discriminant 4 out of range (cases 2)
//	[link] missing_import: namespace "test:variants/test" function "roundtrip-option"
//
// Use the Builder for structured construction:
//
//	err := errors.New(errors.PhaseLift, errors.KindInvalidUTF8).
//		Path("name").
//		Detail("invalid UTF-8 sequence: %x", data).
//		Build()
//
// or the convenience constructors (InvalidDiscriminant, InvalidUTF8,
// Truncated, Misaligned, Trap, ...). All errors support errors.Is/As.
//
// The three failure families of the engine map onto this package as:
//
//   - decode faults: *Error with a lift/lower Phase
//   - link errors: *LinkError, all-or-nothing per instantiation
//   - guest traps: *Error with KindGuestTrap wrapping the callee's error
//
// An Err result value is not represented here at all; it is ordinary data
// returned through the normal call path.
package errors
