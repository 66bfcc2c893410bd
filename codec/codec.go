package codec

import (
	"reflect"

	"github.com/wippyai/canon/schema"
)

// Limits bound the guest-memory footprint of a single value, preventing a
// malformed length field from driving unbounded reads or allocations.
type Limits struct {
	MaxStringBytes uint32
	MaxListLen     uint32
	MaxAlloc       uint32
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxStringBytes: 1 << 24, // 16 MB
		MaxListLen:     1 << 20, // 1M elements
		MaxAlloc:       1 << 30, // 1 GB
	}
}

// Codec lowers and lifts values against a schema tree. Stateless per call
// and safe for concurrent use; share one per linked unit so layouts are
// computed once.
type Codec struct {
	layouts *schema.Layouts
	limits  Limits
}

// New returns a codec with a fresh layout cache and default limits.
func New() *Codec {
	return &Codec{
		layouts: schema.NewLayouts(),
		limits:  DefaultLimits(),
	}
}

// NewWithLimits returns a codec sharing the given layout cache.
func NewWithLimits(layouts *schema.Layouts, limits Limits) *Codec {
	return &Codec{layouts: layouts, limits: limits}
}

// Layouts exposes the codec's layout cache for callers that size argument
// and result regions.
func (c *Codec) Layouts() *schema.Layouts {
	return c.layouts
}

// typeName names a Go value's type for error messages without panicking on
// nil.
func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return reflect.TypeOf(value).String()
}
