package schema

import (
	"fmt"
	"sync"
)

var displayMu sync.Mutex

// CaseName returns the display text for a case index. The mapping table is
// built once per Enum node and reused by every error path that renders this
// type. Out-of-range indexes get a placeholder rather than a panic, since
// display runs on paths that are already reporting a problem.
func (e *Enum) CaseName(idx uint32) string {
	displayMu.Lock()
	if e.display == nil {
		e.display = make([]string, len(e.Cases))
		for i, name := range e.Cases {
			e.display[i] = fmt.Sprintf("%s (case %d)", name, i)
		}
	}
	table := e.display
	displayMu.Unlock()

	if int(idx) >= len(table) {
		return fmt.Sprintf("invalid (case %d of %d)", idx, len(table))
	}
	return table[idx]
}

// Index returns the case index for a name.
func (e *Enum) Index(name string) (uint32, bool) {
	for i, c := range e.Cases {
		if c == name {
			return uint32(i), true
		}
	}
	return 0, false
}

// EnumError adapts an enumeration-shaped err payload to Go's error
// conventions, so a Result carrying it can be inspected and reported like
// any other error value. It is ordinary data, not a fault.
type EnumError struct {
	Enum *Enum
	Case uint32
}

func (e *EnumError) Error() string {
	return e.Enum.CaseName(e.Case)
}

// Is matches another EnumError with the same enum node and case.
func (e *EnumError) Is(target error) bool {
	t, ok := target.(*EnumError)
	return ok && t.Enum == e.Enum && t.Case == e.Case
}
