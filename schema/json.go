package schema

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/wippyai/canon/errors"
)

// JSON descriptor form for schema trees and interface declarations. This is
// a declarative exchange format for tooling and diagnostics; it carries the
// same information as the in-memory tree and nothing else.

type typeDesc struct {
	Elem   *typeDesc   `json:"elem,omitempty"`
	Some   *typeDesc   `json:"some,omitempty"`
	OK     *typeDesc   `json:"ok,omitempty"`
	Err    *typeDesc   `json:"err,omitempty"`
	Target *typeDesc   `json:"target,omitempty"`
	Kind   string      `json:"kind"`
	Name   string      `json:"name,omitempty"`
	Types  []*typeDesc `json:"types,omitempty"`
	Fields []fieldDesc `json:"fields,omitempty"`
	Cases  []caseDesc  `json:"cases,omitempty"`
	Names  []string    `json:"names,omitempty"`
}

type fieldDesc struct {
	Type *typeDesc `json:"type"`
	Name string    `json:"name"`
}

type caseDesc struct {
	Type *typeDesc `json:"type,omitempty"`
	Name string    `json:"name"`
}

type paramDesc struct {
	Type *typeDesc `json:"type"`
	Name string    `json:"name,omitempty"`
}

type funcDesc struct {
	Result *typeDesc   `json:"result,omitempty"`
	Name   string      `json:"name"`
	Params []paramDesc `json:"params,omitempty"`
}

type importDesc struct {
	Namespace string   `json:"namespace"`
	Func      funcDesc `json:"func"`
}

type schemaDesc struct {
	Imports []importDesc `json:"imports,omitempty"`
	Exports []funcDesc   `json:"exports,omitempty"`
}

// EncodeJSON writes the JSON descriptor form of a declaration.
func EncodeJSON(w io.Writer, s *Schema) error {
	desc := schemaDesc{}
	for _, imp := range s.Imports {
		desc.Imports = append(desc.Imports, importDesc{
			Namespace: imp.Namespace,
			Func:      encodeFunc(imp.Func),
		})
	}
	for _, exp := range s.Exports {
		desc.Exports = append(desc.Exports, encodeFunc(exp.Func))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(desc)
}

// DecodeJSON reads a JSON descriptor and returns the validated declaration.
func DecodeJSON(r io.Reader) (*Schema, error) {
	var desc schemaDesc
	if err := json.NewDecoder(r).Decode(&desc); err != nil {
		return nil, errors.Wrap(errors.PhaseSchema, errors.KindInvalidData, err, "decode schema descriptor")
	}

	s := &Schema{}
	for _, imp := range desc.Imports {
		fn, err := decodeFunc(imp.Func)
		if err != nil {
			return nil, err
		}
		s.Imports = append(s.Imports, Import{Namespace: imp.Namespace, Func: fn})
	}
	for _, exp := range desc.Exports {
		fn, err := decodeFunc(exp)
		if err != nil {
			return nil, err
		}
		s.Exports = append(s.Exports, Export{Func: fn})
	}

	if err := ValidateSchema(s); err != nil {
		return nil, err
	}
	return s, nil
}

func encodeFunc(f Func) funcDesc {
	desc := funcDesc{Name: f.Name}
	for _, p := range f.Params {
		desc.Params = append(desc.Params, paramDesc{Name: p.Name, Type: encodeType(p.Type)})
	}
	if f.Result != nil {
		desc.Result = encodeType(f.Result)
	}
	return desc
}

func decodeFunc(desc funcDesc) (Func, error) {
	f := Func{Name: desc.Name}
	for _, p := range desc.Params {
		pt, err := decodeType(p.Type)
		if err != nil {
			return Func{}, err
		}
		f.Params = append(f.Params, Param{Name: p.Name, Type: pt})
	}
	if desc.Result != nil {
		rt, err := decodeType(desc.Result)
		if err != nil {
			return Func{}, err
		}
		f.Result = rt
	}
	return f, nil
}

func encodeType(t Type) *typeDesc {
	switch n := t.(type) {
	case Bool, S8, U8, S16, U16, S32, U32, S64, U64, F32, F64, Char, String:
		return &typeDesc{Kind: Name(t)}
	case *List:
		return &typeDesc{Kind: "list", Elem: encodeType(n.Elem)}
	case *Tuple:
		desc := &typeDesc{Kind: "tuple"}
		for _, elem := range n.Types {
			desc.Types = append(desc.Types, encodeType(elem))
		}
		return desc
	case *Record:
		desc := &typeDesc{Kind: "record"}
		for _, f := range n.Fields {
			desc.Fields = append(desc.Fields, fieldDesc{Name: f.Name, Type: encodeType(f.Type)})
		}
		return desc
	case *Variant:
		desc := &typeDesc{Kind: "variant"}
		for _, c := range n.Cases {
			cd := caseDesc{Name: c.Name}
			if c.Type != nil {
				cd.Type = encodeType(c.Type)
			}
			desc.Cases = append(desc.Cases, cd)
		}
		return desc
	case *Enum:
		return &typeDesc{Kind: "enum", Names: n.Cases}
	case *Option:
		return &typeDesc{Kind: "option", Some: encodeType(n.Some)}
	case *Result:
		desc := &typeDesc{Kind: "result"}
		if n.OK != nil {
			desc.OK = encodeType(n.OK)
		}
		if n.Err != nil {
			desc.Err = encodeType(n.Err)
		}
		return desc
	case *Alias:
		return &typeDesc{Kind: "alias", Name: n.Name, Target: encodeType(n.Target)}
	default:
		return &typeDesc{Kind: "unknown"}
	}
}

func decodeType(desc *typeDesc) (Type, error) {
	if desc == nil {
		return nil, errors.InvalidData(errors.PhaseSchema, nil, "missing type descriptor")
	}

	switch desc.Kind {
	case "bool":
		return Bool{}, nil
	case "s8":
		return S8{}, nil
	case "u8":
		return U8{}, nil
	case "s16":
		return S16{}, nil
	case "u16":
		return U16{}, nil
	case "s32":
		return S32{}, nil
	case "u32":
		return U32{}, nil
	case "s64":
		return S64{}, nil
	case "u64":
		return U64{}, nil
	case "f32":
		return F32{}, nil
	case "f64":
		return F64{}, nil
	case "char":
		return Char{}, nil
	case "string":
		return String{}, nil
	case "list":
		elem, err := decodeType(desc.Elem)
		if err != nil {
			return nil, err
		}
		return &List{Elem: elem}, nil
	case "tuple":
		types := make([]Type, len(desc.Types))
		for i, td := range desc.Types {
			t, err := decodeType(td)
			if err != nil {
				return nil, err
			}
			types[i] = t
		}
		return &Tuple{Types: types}, nil
	case "record":
		fields := make([]Field, len(desc.Fields))
		for i, fd := range desc.Fields {
			ft, err := decodeType(fd.Type)
			if err != nil {
				return nil, err
			}
			fields[i] = Field{Name: fd.Name, Type: ft}
		}
		return &Record{Fields: fields}, nil
	case "variant":
		cases := make([]Case, len(desc.Cases))
		for i, cd := range desc.Cases {
			cases[i] = Case{Name: cd.Name}
			if cd.Type != nil {
				ct, err := decodeType(cd.Type)
				if err != nil {
					return nil, err
				}
				cases[i].Type = ct
			}
		}
		return &Variant{Cases: cases}, nil
	case "enum":
		return &Enum{Cases: desc.Names}, nil
	case "option":
		some, err := decodeType(desc.Some)
		if err != nil {
			return nil, err
		}
		return &Option{Some: some}, nil
	case "result":
		res := &Result{}
		if desc.OK != nil {
			ok, err := decodeType(desc.OK)
			if err != nil {
				return nil, err
			}
			res.OK = ok
		}
		if desc.Err != nil {
			e, err := decodeType(desc.Err)
			if err != nil {
				return nil, err
			}
			res.Err = e
		}
		return res, nil
	case "alias":
		target, err := decodeType(desc.Target)
		if err != nil {
			return nil, err
		}
		return &Alias{Name: desc.Name, Target: target}, nil
	default:
		return nil, errors.InvalidData(errors.PhaseSchema, nil, "unknown type kind "+desc.Kind)
	}
}
