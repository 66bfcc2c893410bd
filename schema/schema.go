package schema

import (
	"github.com/wippyai/canon/errors"
)

// Type is a node in a schema tree. Trees are immutable after construction
// and acyclic; Validate enforces the latter.
type Type interface {
	isType()
}

// Primitive types. Zero-size singletons; compare with type assertions.
type (
	Bool   struct{}
	S8     struct{}
	U8     struct{}
	S16    struct{}
	U16    struct{}
	S32    struct{}
	U32    struct{}
	S64    struct{}
	U64    struct{}
	F32    struct{}
	F64    struct{}
	Char   struct{}
	String struct{}
)

func (Bool) isType()   {}
func (S8) isType()     {}
func (U8) isType()     {}
func (S16) isType()    {}
func (U16) isType()    {}
func (S32) isType()    {}
func (U32) isType()    {}
func (S64) isType()    {}
func (U64) isType()    {}
func (F32) isType()    {}
func (F64) isType()    {}
func (Char) isType()   {}
func (String) isType() {}

// List is a variable-length sequence of Elem values.
type List struct {
	Elem Type
}

// Tuple is an anonymous record with positional fields.
type Tuple struct {
	Types []Type
}

// Field is one named record field.
type Field struct {
	Type Type
	Name string
}

// Record has fields laid out in declared order; field order is part of the
// wire contract.
type Record struct {
	Fields []Field
}

// Case is one variant case. Type is nil for payload-free cases.
type Case struct {
	Type Type
	Name string
}

// Variant is a tagged union: a discriminant selecting exactly one case.
type Variant struct {
	Cases []Case
}

// Enum is a variant with no payloads, stored as a bare discriminant.
type Enum struct {
	Cases []string

	display []string
}

// Option is the two-case variant {none, some(T)}.
type Option struct {
	Some Type
}

// Result is the two-case variant {ok(T), err(E)}. OK and Err may be nil for
// payload-free arms.
type Result struct {
	OK  Type
	Err Type
}

// Alias names another type. Transparent: encoding and equality delegate
// entirely to Target.
type Alias struct {
	Target Type
	Name   string
}

func (*List) isType()    {}
func (*Tuple) isType()   {}
func (*Record) isType()  {}
func (*Variant) isType() {}
func (*Enum) isType()    {}
func (*Option) isType()  {}
func (*Result) isType()  {}
func (*Alias) isType()   {}

// Resolve follows alias chains to the underlying type. The input must come
// from a validated tree; Validate guarantees termination.
func Resolve(t Type) Type {
	for {
		a, ok := t.(*Alias)
		if !ok {
			return t
		}
		t = a.Target
	}
}

// Param is one named function parameter.
type Param struct {
	Type Type
	Name string
}

// Func describes one boundary function: ordered parameters and a single
// result type, or nil for no result.
type Func struct {
	Result Type
	Name   string
	Params []Param
}

// Import is a guest-declared dependency on a host function.
type Import struct {
	Namespace string
	Func      Func
}

// Export is a guest-declared entry point callable from the host.
type Export struct {
	Func Func
}

// Schema is the full interface declaration of one linked unit, produced
// externally and consumed read-only.
type Schema struct {
	Imports []Import
	Exports []Export
}

// Validate walks the tree and rejects nil nodes and alias chains that do
// not terminate.
func Validate(t Type) error {
	return validate(t, nil, nil)
}

// ValidateSchema validates every type reachable from the declaration.
func ValidateSchema(s *Schema) error {
	check := func(f Func) error {
		for _, p := range f.Params {
			if err := Validate(p.Type); err != nil {
				return err
			}
		}
		if f.Result != nil {
			return Validate(f.Result)
		}
		return nil
	}
	for _, imp := range s.Imports {
		if err := check(imp.Func); err != nil {
			return err
		}
	}
	for _, exp := range s.Exports {
		if err := check(exp.Func); err != nil {
			return err
		}
	}
	return nil
}

// validate tracks pointer nodes along the current path so any cycle, alias
// or composite, is reported instead of recursing forever.
func validate(t Type, onPath map[Type]bool, path []string) error {
	switch t.(type) {
	case nil:
		return errors.InvalidData(errors.PhaseSchema, path, "nil type node")
	case *List, *Tuple, *Record, *Variant, *Option, *Result, *Alias:
		if onPath[t] {
			return errors.Cycle(append(path, Name(t)))
		}
		if onPath == nil {
			onPath = make(map[Type]bool)
		}
		onPath[t] = true
		defer delete(onPath, t)
	default:
		return nil
	}

	switch n := t.(type) {
	case *List:
		return validate(n.Elem, onPath, append(path, "list"))
	case *Tuple:
		for _, elem := range n.Types {
			if err := validate(elem, onPath, append(path, "tuple")); err != nil {
				return err
			}
		}
	case *Record:
		for _, f := range n.Fields {
			if err := validate(f.Type, onPath, append(path, f.Name)); err != nil {
				return err
			}
		}
	case *Variant:
		for _, c := range n.Cases {
			if c.Type == nil {
				continue
			}
			if err := validate(c.Type, onPath, append(path, c.Name)); err != nil {
				return err
			}
		}
	case *Option:
		if n.Some == nil {
			return errors.InvalidData(errors.PhaseSchema, path, "option without payload type")
		}
		return validate(n.Some, onPath, append(path, "some"))
	case *Result:
		if n.OK != nil {
			if err := validate(n.OK, onPath, append(path, "ok")); err != nil {
				return err
			}
		}
		if n.Err != nil {
			return validate(n.Err, onPath, append(path, "err"))
		}
	case *Alias:
		return validate(n.Target, onPath, append(path, n.Name))
	}
	return nil
}

// Name returns a short display name for a type, used in error messages.
func Name(t Type) string {
	switch n := t.(type) {
	case Bool:
		return "bool"
	case S8:
		return "s8"
	case U8:
		return "u8"
	case S16:
		return "s16"
	case U16:
		return "u16"
	case S32:
		return "s32"
	case U32:
		return "u32"
	case S64:
		return "s64"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Char:
		return "char"
	case String:
		return "string"
	case *List:
		return "list<" + Name(n.Elem) + ">"
	case *Tuple:
		return "tuple"
	case *Record:
		return "record"
	case *Variant:
		return "variant"
	case *Enum:
		return "enum"
	case *Option:
		return "option<" + Name(n.Some) + ">"
	case *Result:
		return "result"
	case *Alias:
		return n.Name
	default:
		return "unknown"
	}
}
