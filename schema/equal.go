package schema

// Equal reports structural equality of two types up to alias resolution.
// Names of records' fields and variants' cases are part of the structure;
// alias names are not.
func Equal(a, b Type) bool {
	a = Resolve(a)
	b = Resolve(b)

	switch x := a.(type) {
	case Bool, S8, U8, S16, U16, S32, U32, S64, U64, F32, F64, Char, String:
		return a == b
	case *List:
		y, ok := b.(*List)
		return ok && Equal(x.Elem, y.Elem)
	case *Tuple:
		y, ok := b.(*Tuple)
		if !ok || len(x.Types) != len(y.Types) {
			return false
		}
		for i := range x.Types {
			if !Equal(x.Types[i], y.Types[i]) {
				return false
			}
		}
		return true
	case *Record:
		y, ok := b.(*Record)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Name != y.Fields[i].Name || !Equal(x.Fields[i].Type, y.Fields[i].Type) {
				return false
			}
		}
		return true
	case *Variant:
		y, ok := b.(*Variant)
		if !ok || len(x.Cases) != len(y.Cases) {
			return false
		}
		for i := range x.Cases {
			if x.Cases[i].Name != y.Cases[i].Name {
				return false
			}
			cx, cy := x.Cases[i].Type, y.Cases[i].Type
			if (cx == nil) != (cy == nil) {
				return false
			}
			if cx != nil && !Equal(cx, cy) {
				return false
			}
		}
		return true
	case *Enum:
		y, ok := b.(*Enum)
		if !ok || len(x.Cases) != len(y.Cases) {
			return false
		}
		for i := range x.Cases {
			if x.Cases[i] != y.Cases[i] {
				return false
			}
		}
		return true
	case *Option:
		y, ok := b.(*Option)
		return ok && Equal(x.Some, y.Some)
	case *Result:
		y, ok := b.(*Result)
		if !ok {
			return false
		}
		if (x.OK == nil) != (y.OK == nil) || (x.Err == nil) != (y.Err == nil) {
			return false
		}
		if x.OK != nil && !Equal(x.OK, y.OK) {
			return false
		}
		if x.Err != nil && !Equal(x.Err, y.Err) {
			return false
		}
		return true
	default:
		return false
	}
}

// EqualFunc reports whether two function signatures match structurally:
// same arity, same parameter types in order, same result shape. Parameter
// names are documentation only and do not participate.
func EqualFunc(a, b Func) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if !Equal(a.Params[i].Type, b.Params[i].Type) {
			return false
		}
	}
	if (a.Result == nil) != (b.Result == nil) {
		return false
	}
	if a.Result != nil {
		return Equal(a.Result, b.Result)
	}
	return true
}
