package canon

// Native value conventions used on the host side of the boundary:
//
//	bool      bool
//	u8..s64   uint8..int64
//	f32/f64   float32/float64
//	char      rune
//	string    string
//	list<T>   typed slice ([]uint8, []int32, ...) or []any
//	record    map[string]any keyed by field name
//	tuple     []any in positional order
//	variant   Variant
//	enum      Enum
//	option<T> Option
//	result    Result
//
// A nil any is accepted when lowering an option as None.

// Variant is the native form of a variant value: the active case index and,
// for payload-carrying cases, the payload value.
type Variant struct {
	Payload any
	Case    uint32
}

// Enum is the native form of an enum value: the case index.
type Enum uint32

// Option is the native form of an option value.
type Option struct {
	Value any
	Some  bool
}

// None returns the absent option value.
func None() Option { return Option{} }

// Some wraps v as a present option value.
func Some(v any) Option { return Option{Some: true, Value: v} }

// Result is the native form of a result value. An Err result is ordinary
// data returned through the normal call path, not a fault.
type Result struct {
	Value any
	IsErr bool
}

// Ok wraps v as a success result.
func Ok(v any) Result { return Result{Value: v} }

// Err wraps v as an error result.
func Err(v any) Result { return Result{IsErr: true, Value: v} }
