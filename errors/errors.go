package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in a crossing the error occurred.
type Phase string

const (
	PhaseLower    Phase = "lower"    // native value to wire bytes
	PhaseLift     Phase = "lift"     // wire bytes to native value
	PhaseInvoke   Phase = "invoke"   // control transfer to the callee
	PhaseLink     Phase = "link"     // import resolution / instantiation
	PhaseRegister Phase = "register" // host function registration
	PhaseSchema   Phase = "schema"   // schema construction / validation
)

// Kind categorizes the error.
type Kind string

const (
	KindTypeMismatch        Kind = "type_mismatch"
	KindInvalidDiscriminant Kind = "invalid_discriminant"
	KindInvalidUTF8         Kind = "invalid_utf8"
	KindInvalidChar         Kind = "invalid_char"
	KindInvalidBool         Kind = "invalid_bool"
	KindTruncated           Kind = "truncated"
	KindMisaligned          Kind = "misaligned"
	KindOutOfBounds         Kind = "out_of_bounds"
	KindOverflow            Kind = "overflow"
	KindAllocation          Kind = "allocation"
	KindFieldMissing        Kind = "field_missing"
	KindInvalidData         Kind = "invalid_data"
	KindUnsupported         Kind = "unsupported"
	KindGuestTrap           Kind = "guest_trap"
	KindMissingImport       Kind = "missing_import"
	KindSignatureMismatch   Kind = "signature_mismatch"
	KindSealed              Kind = "sealed"
	KindNotFound            Kind = "not_found"
	KindCycle               Kind = "cycle"
)

// Error is the structured error type used throughout the engine.
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Phase and Kind so sentinel comparisons work with errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsFault reports whether err is a structural decode fault, as opposed to a
// trap, link error, or unrelated failure.
func IsFault(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return (e.Phase == PhaseLift || e.Phase == PhaseLower) && e.Kind != KindGuestTrap
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New creates a new error builder.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the path into the value tree.
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value.
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common patterns.

// TypeMismatch reports a native value whose Go type does not fit the
// declared schema type.
func TypeMismatch(phase Phase, path []string, goType, schemaType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		Detail: fmt.Sprintf("Go type %s does not match %s", goType, schemaType),
	}
}

// InvalidDiscriminant reports a variant or enum tag outside [0, cases).
func InvalidDiscriminant(phase Phase, path []string, disc, cases uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidDiscriminant,
		Path:   path,
		Detail: fmt.Sprintf("discriminant %d out of range (cases %d)", disc, cases),
		Value:  disc,
	}
}

// InvalidUTF8 reports a string region that is not valid UTF-8.
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidChar reports a char that is not a Unicode scalar value.
func InvalidChar(phase Phase, path []string, r uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidChar,
		Path:   path,
		Detail: fmt.Sprintf("0x%X is not a Unicode scalar value", r),
		Value:  r,
	}
}

// InvalidBool reports a bool byte outside {0,1}.
func InvalidBool(phase Phase, path []string, b uint8) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidBool,
		Path:   path,
		Detail: fmt.Sprintf("bool byte 0x%02X not in {0,1}", b),
		Value:  b,
	}
}

// Truncated reports a region that ends before the declared type does.
func Truncated(phase Phase, path []string, need, have uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTruncated,
		Path:   path,
		Detail: fmt.Sprintf("need %d bytes, region has %d", need, have),
	}
}

// Misaligned reports a pointer that violates its type's alignment.
func Misaligned(phase Phase, path []string, ptr, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMisaligned,
		Path:   path,
		Detail: fmt.Sprintf("pointer 0x%X not aligned to %d", ptr, align),
		Value:  ptr,
	}
}

// FieldMissing reports a record value without a declared field.
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
	}
}

// AllocationFailed reports a guest allocator failure.
func AllocationFailed(phase Phase, path []string, size, align uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Path:   path,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// Overflow reports a size computation that exceeds the address space or a
// configured limit.
func Overflow(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Detail: detail,
	}
}

// Unsupported reports an operation the engine does not implement.
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Trap wraps a callee-initiated abnormal termination. Traps are opaque to
// the codec and distinct from decode faults.
func Trap(cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindGuestTrap,
		Detail: "callee trapped",
		Cause:  cause,
	}
}

// IsTrap reports whether err is a guest trap.
func IsTrap(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindGuestTrap
}

// Sealed reports registration attempted after instantiation has begun.
func Sealed(namespace, name string) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindSealed,
		Detail: fmt.Sprintf("registry sealed, cannot register %s#%s", namespace, name),
	}
}

// NotFound reports a missing export or registry entry.
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Cycle reports an alias chain that does not terminate.
func Cycle(path []string) *Error {
	return &Error{
		Phase:  PhaseSchema,
		Kind:   KindCycle,
		Path:   path,
		Detail: "alias resolution does not terminate",
	}
}

// InvalidData reports malformed input that fits no narrower kind.
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap attaches phase/kind context to an underlying error.
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
