// Package canon implements the marshalling layer of a sandboxed interface
// boundary: it translates typed values between a guest's linear-memory byte
// representation and the host's native Go representation, and links a
// guest's declared imports to host-supplied implementations.
//
// # Architecture Overview
//
// The library is organized into packages with distinct responsibilities:
//
//	canon/           Root package with Memory, Allocator, Invoker contracts
//	                 and the native value types (Variant, Enum, Option, Result)
//	├── schema/      Immutable type-descriptor trees, wire layout, WIT adapter
//	├── codec/       Canonical lowering and lifting of values
//	├── dispatch/    Per-call state machine over lower → invoke → lift
//	├── link/        Host function registry, import resolution, instances
//	├── errors/      Structured fault and link-error types
//	├── guesttest/   In-process fake guest for exercising full crossings
//	├── wazerobind/  Adapters binding a wazero module at the guest seam
//	└── cmd/abidump  CLI printing signatures and wire layouts of a schema
//
// # Data Flow
//
// Schema trees are produced externally (for example from go.bytecodealliance.org/wit
// via schema.FromWIT) and consumed read-only. Per call, the dispatcher lowers
// argument values against their declared parameter types, transfers control
// through an Invoker, and lifts the result. Every lift validates the wire
// bytes: discriminants in range, UTF-8 strings, bools in {0,1}, chars that
// are Unicode scalar values. A malformed guest payload is never silently
// interpreted as a valid value.
//
// # Wire Layout
//
//	Type            Size    Alignment
//	──────────────────────────────────
//	bool            1       1  (value restricted to {0,1})
//	u8/s8           1       1
//	u16/s16         2       2
//	u32/s32/f32     4       4
//	u64/s64/f64     8       8
//	char            4       4  (Unicode scalar value)
//	string          8       4  (ptr + len, UTF-8)
//	list<T>         8       4  (ptr + len)
//	record          sum     max field align, trailing pad
//	variant         varies  discriminant + max-aligned largest payload
//	enum            1/2/4   smallest unsigned width covering case count
//
// # Concurrency
//
// Calls are synchronous: a dispatcher blocks the calling goroutine from
// lowering through lifting. An Instance is NOT safe for concurrent use.
// Independent instances may run on separate goroutines without coordination;
// a sealed Registry is read-only and may be shared freely.
//
// # Error Handling
//
// Structural violations surface as decode faults, unresolved or mismatched
// imports as link errors, and callee aborts as guest traps; all are distinct
// from an Err result value, which is ordinary data. See the errors package.
package canon
