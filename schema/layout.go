package schema

import "sync"

// Layout is the canonical wire layout of one type: total size in bytes and
// required alignment.
type Layout struct {
	Size  uint32
	Align uint32
}

// Layouts computes and caches wire layouts for schema nodes. Safe for
// concurrent use; one instance is typically shared per linked unit.
type Layouts struct {
	mu    sync.RWMutex
	cache map[Type]Layout
}

// NewLayouts returns an empty layout cache.
func NewLayouts() *Layouts {
	return &Layouts{cache: make(map[Type]Layout)}
}

// AlignTo rounds offset up to the next multiple of align.
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// DiscriminantSize returns the smallest unsigned integer width whose range
// covers numCases.
func DiscriminantSize(numCases int) uint32 {
	if numCases <= 256 {
		return 1
	} else if numCases <= 65536 {
		return 2
	}
	return 4
}

// Of returns the layout for t, computing and caching it on first use.
func (l *Layouts) Of(t Type) Layout {
	switch t.(type) {
	case Bool, U8, S8:
		return Layout{Size: 1, Align: 1}
	case U16, S16:
		return Layout{Size: 2, Align: 2}
	case U32, S32, F32, Char:
		return Layout{Size: 4, Align: 4}
	case U64, S64, F64:
		return Layout{Size: 8, Align: 8}
	case String:
		return Layout{Size: 8, Align: 4} // [ptr: u32, len: u32]
	case *List:
		return Layout{Size: 8, Align: 4}
	}

	l.mu.RLock()
	cached, ok := l.cache[t]
	l.mu.RUnlock()
	if ok {
		return cached
	}

	var info Layout
	switch n := t.(type) {
	case *Record:
		info = l.record(fieldTypes(n.Fields))
	case *Tuple:
		info = l.record(n.Types)
	case *Variant:
		info = l.variant(caseTypes(n.Cases))
	case *Enum:
		size := DiscriminantSize(len(n.Cases))
		info = Layout{Size: size, Align: size}
	case *Option:
		info = l.variant([]Type{nil, n.Some})
	case *Result:
		info = l.variant([]Type{n.OK, n.Err})
	case *Alias:
		info = l.Of(n.Target)
	default:
		info = Layout{Size: 0, Align: 1}
	}

	l.mu.Lock()
	l.cache[t] = info
	l.mu.Unlock()
	return info
}

// FieldOffsets returns the wire offset of each field of a record laid out
// from base offset 0, in declared order.
func (l *Layouts) FieldOffsets(fields []Type) []uint32 {
	offs := make([]uint32, len(fields))
	offset := uint32(0)
	for i, ft := range fields {
		fl := l.Of(ft)
		offset = AlignTo(offset, fl.Align)
		offs[i] = offset
		offset += fl.Size
	}
	return offs
}

// PayloadOffset returns the offset of a variant's shared payload region,
// after the discriminant and padding to the payload alignment.
func (l *Layouts) PayloadOffset(numCases int, cases []Type) uint32 {
	discSize := DiscriminantSize(numCases)
	maxAlign := discSize
	for _, ct := range cases {
		if ct == nil {
			continue
		}
		if a := l.Of(ct).Align; a > maxAlign {
			maxAlign = a
		}
	}
	return AlignTo(discSize, maxAlign)
}

func (l *Layouts) record(fields []Type) Layout {
	if len(fields) == 0 {
		return Layout{Size: 0, Align: 1}
	}

	maxAlign := uint32(1)
	offset := uint32(0)
	for _, ft := range fields {
		fl := l.Of(ft)
		offset = AlignTo(offset, fl.Align)
		if fl.Align > maxAlign {
			maxAlign = fl.Align
		}
		offset += fl.Size
	}

	// Trailing padding so the whole record is a multiple of its alignment.
	return Layout{Size: AlignTo(offset, maxAlign), Align: maxAlign}
}

// variant computes the shared layout of any tagged shape: discriminant
// followed by a payload region sized to the largest case, max-aligned.
func (l *Layouts) variant(cases []Type) Layout {
	if len(cases) == 0 {
		return Layout{Size: 0, Align: 1}
	}

	discSize := DiscriminantSize(len(cases))
	maxAlign := discSize
	maxSize := uint32(0)

	for _, ct := range cases {
		if ct == nil {
			continue
		}
		cl := l.Of(ct)
		if cl.Align > maxAlign {
			maxAlign = cl.Align
		}
		if cl.Size > maxSize {
			maxSize = cl.Size
		}
	}

	payloadOffset := AlignTo(discSize, maxAlign)
	return Layout{Size: AlignTo(payloadOffset+maxSize, maxAlign), Align: maxAlign}
}

func fieldTypes(fields []Field) []Type {
	out := make([]Type, len(fields))
	for i, f := range fields {
		out[i] = f.Type
	}
	return out
}

func caseTypes(cases []Case) []Type {
	out := make([]Type, len(cases))
	for i, c := range cases {
		out[i] = c.Type
	}
	return out
}
