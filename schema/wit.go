package schema

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/canon/errors"
)

// FromWIT converts an externally produced WIT type tree into this package's
// representation. Typedef indirection is resolved transparently, matching
// the alias rule that names carry no wire effect. Flags and resource handle
// types have no counterpart in this engine and are rejected.
func FromWIT(t wit.Type) (Type, error) {
	switch typ := t.(type) {
	case wit.Bool:
		return Bool{}, nil
	case wit.S8:
		return S8{}, nil
	case wit.U8:
		return U8{}, nil
	case wit.S16:
		return S16{}, nil
	case wit.U16:
		return U16{}, nil
	case wit.S32:
		return S32{}, nil
	case wit.U32:
		return U32{}, nil
	case wit.S64:
		return S64{}, nil
	case wit.U64:
		return U64{}, nil
	case wit.F32:
		return F32{}, nil
	case wit.F64:
		return F64{}, nil
	case wit.Char:
		return Char{}, nil
	case wit.String:
		return String{}, nil
	case *wit.TypeDef:
		return fromTypeDef(typ)
	default:
		return nil, errors.Unsupported(errors.PhaseSchema, "WIT type")
	}
}

func fromTypeDef(td *wit.TypeDef) (Type, error) {
	switch kind := td.Kind.(type) {
	case *wit.Record:
		fields := make([]Field, len(kind.Fields))
		for i, f := range kind.Fields {
			ft, err := FromWIT(f.Type)
			if err != nil {
				return nil, err
			}
			fields[i] = Field{Name: f.Name, Type: ft}
		}
		return &Record{Fields: fields}, nil

	case *wit.Variant:
		cases := make([]Case, len(kind.Cases))
		for i, c := range kind.Cases {
			cases[i] = Case{Name: c.Name}
			if c.Type != nil {
				ct, err := FromWIT(c.Type)
				if err != nil {
					return nil, err
				}
				cases[i].Type = ct
			}
		}
		return &Variant{Cases: cases}, nil

	case *wit.Enum:
		names := make([]string, len(kind.Cases))
		for i, c := range kind.Cases {
			names[i] = c.Name
		}
		return &Enum{Cases: names}, nil

	case *wit.List:
		elem, err := FromWIT(kind.Type)
		if err != nil {
			return nil, err
		}
		return &List{Elem: elem}, nil

	case *wit.Tuple:
		types := make([]Type, len(kind.Types))
		for i, elem := range kind.Types {
			et, err := FromWIT(elem)
			if err != nil {
				return nil, err
			}
			types[i] = et
		}
		return &Tuple{Types: types}, nil

	case *wit.Option:
		some, err := FromWIT(kind.Type)
		if err != nil {
			return nil, err
		}
		return &Option{Some: some}, nil

	case *wit.Result:
		res := &Result{}
		if kind.OK != nil {
			ok, err := FromWIT(kind.OK)
			if err != nil {
				return nil, err
			}
			res.OK = ok
		}
		if kind.Err != nil {
			e, err := FromWIT(kind.Err)
			if err != nil {
				return nil, err
			}
			res.Err = e
		}
		return res, nil

	case wit.Type:
		// Typedef of another type: transparent indirection.
		return FromWIT(kind)

	default:
		return nil, errors.Unsupported(errors.PhaseSchema, "WIT typedef kind")
	}
}
