package errors

import (
	"fmt"
	"strings"
)

// UnresolvedImport is a single declared import with no matching registration.
type UnresolvedImport struct {
	Namespace string // e.g. "test:variants/test"
	Function  string // e.g. "roundtrip-option"
}

// SignatureMismatch is a declared import whose registration exists but whose
// signature differs structurally from the declaration.
type SignatureMismatch struct {
	Namespace string
	Function  string
	Reason    string
}

// LinkError is returned when instantiation fails. Instantiation is
// all-or-nothing: a LinkError means no instance was produced.
type LinkError struct {
	Missing    []UnresolvedImport
	Mismatched []SignatureMismatch
}

func (e *LinkError) Error() string {
	if len(e.Missing) == 0 && len(e.Mismatched) == 0 {
		return "[link] no unresolved imports recorded"
	}

	var b strings.Builder
	b.WriteString("[link] instantiation failed")

	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": %d unresolved import(s)", len(e.Missing))
		byNS := make(map[string][]string)
		var nsOrder []string
		for _, imp := range e.Missing {
			if _, seen := byNS[imp.Namespace]; !seen {
				nsOrder = append(nsOrder, imp.Namespace)
			}
			byNS[imp.Namespace] = append(byNS[imp.Namespace], imp.Function)
		}
		for _, ns := range nsOrder {
			b.WriteString("\n  ")
			b.WriteString(ns)
			b.WriteString(":")
			for _, fn := range byNS[ns] {
				b.WriteString("\n    - ")
				b.WriteString(fn)
			}
		}
	}

	for _, mm := range e.Mismatched {
		fmt.Fprintf(&b, "\n  signature mismatch %s#%s: %s", mm.Namespace, mm.Function, mm.Reason)
	}

	return b.String()
}

// Is matches any other LinkError, so errors.Is(err, &LinkError{}) works as a
// family check.
func (e *LinkError) Is(target error) bool {
	_, ok := target.(*LinkError)
	return ok
}

// Empty reports whether the error records no failures.
func (e *LinkError) Empty() bool {
	return len(e.Missing) == 0 && len(e.Mismatched) == 0
}
