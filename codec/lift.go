package codec

import (
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/canon"
	"github.com/wippyai/canon/errors"
	"github.com/wippyai/canon/schema"
)

// Lift decodes the canonical wire shape at addr into a native value.
// Every byte the decoder interprets is validated: out-of-range
// discriminants, bool bytes outside {0,1}, invalid UTF-8, non-scalar
// chars and misaligned list pointers are all decode faults.
func (c *Codec) Lift(t schema.Type, addr uint32, mem canon.Memory) (any, error) {
	return c.lift(t, addr, mem, nil)
}

func (c *Codec) lift(t schema.Type, addr uint32, mem canon.Memory, path []string) (any, error) {
	switch n := schema.Resolve(t).(type) {
	case schema.Bool:
		b, err := mem.ReadU8(addr)
		if err != nil {
			return nil, liftReadError(path, addr, err)
		}
		if b > 1 {
			return nil, errors.InvalidBool(errors.PhaseLift, path, b)
		}
		return b == 1, nil

	case schema.U8:
		v, err := mem.ReadU8(addr)
		if err != nil {
			return nil, liftReadError(path, addr, err)
		}
		return v, nil

	case schema.S8:
		v, err := mem.ReadU8(addr)
		if err != nil {
			return nil, liftReadError(path, addr, err)
		}
		return int8(v), nil

	case schema.U16:
		v, err := mem.ReadU16(addr)
		if err != nil {
			return nil, liftReadError(path, addr, err)
		}
		return v, nil

	case schema.S16:
		v, err := mem.ReadU16(addr)
		if err != nil {
			return nil, liftReadError(path, addr, err)
		}
		return int16(v), nil

	case schema.U32:
		v, err := mem.ReadU32(addr)
		if err != nil {
			return nil, liftReadError(path, addr, err)
		}
		return v, nil

	case schema.S32:
		v, err := mem.ReadU32(addr)
		if err != nil {
			return nil, liftReadError(path, addr, err)
		}
		return int32(v), nil

	case schema.U64:
		v, err := mem.ReadU64(addr)
		if err != nil {
			return nil, liftReadError(path, addr, err)
		}
		return v, nil

	case schema.S64:
		v, err := mem.ReadU64(addr)
		if err != nil {
			return nil, liftReadError(path, addr, err)
		}
		return int64(v), nil

	case schema.F32:
		bits, err := mem.ReadU32(addr)
		if err != nil {
			return nil, liftReadError(path, addr, err)
		}
		return math.Float32frombits(canonicalizeF32(bits)), nil

	case schema.F64:
		bits, err := mem.ReadU64(addr)
		if err != nil {
			return nil, liftReadError(path, addr, err)
		}
		return math.Float64frombits(canonicalizeF64(bits)), nil

	case schema.Char:
		v, err := mem.ReadU32(addr)
		if err != nil {
			return nil, liftReadError(path, addr, err)
		}
		if !validChar(rune(v)) {
			return nil, errors.InvalidChar(errors.PhaseLift, path, v)
		}
		return rune(v), nil

	case schema.String:
		return c.liftString(addr, mem, path)

	case *schema.List:
		return c.liftList(n, addr, mem, path)

	case *schema.Tuple:
		return c.liftTuple(n, addr, mem, path)

	case *schema.Record:
		return c.liftRecord(n, addr, mem, path)

	case *schema.Variant:
		return c.liftVariant(n, addr, mem, path)

	case *schema.Enum:
		return c.liftEnum(n, addr, mem, path)

	case *schema.Option:
		return c.liftOption(n, addr, mem, path)

	case *schema.Result:
		return c.liftResult(n, addr, mem, path)

	default:
		return nil, errors.Unsupported(errors.PhaseLift, "type "+schema.Name(t))
	}
}

func (c *Codec) liftString(addr uint32, mem canon.Memory, path []string) (any, error) {
	dataAddr, err := mem.ReadU32(addr)
	if err != nil {
		return nil, liftReadError(path, addr, err)
	}
	dataLen, err := mem.ReadU32(addr + 4)
	if err != nil {
		return nil, liftReadError(path, addr+4, err)
	}

	if dataLen == 0 {
		return "", nil
	}
	if dataLen > c.limits.MaxStringBytes {
		return nil, errors.Overflow(errors.PhaseLift, path,
			"string of "+strconv.FormatUint(uint64(dataLen), 10)+" bytes exceeds limit")
	}

	data, err := mem.Read(dataAddr, dataLen)
	if err != nil {
		return nil, liftReadError(path, dataAddr, err)
	}
	if !utf8.Valid(data) {
		return nil, errors.InvalidUTF8(errors.PhaseLift, path, data)
	}
	return string(data), nil
}

func (c *Codec) liftList(l *schema.List, addr uint32, mem canon.Memory, path []string) (any, error) {
	dataAddr, err := mem.ReadU32(addr)
	if err != nil {
		return nil, liftReadError(path, addr, err)
	}
	length, err := mem.ReadU32(addr + 4)
	if err != nil {
		return nil, liftReadError(path, addr+4, err)
	}

	if length > c.limits.MaxListLen {
		return nil, errors.Overflow(errors.PhaseLift, path,
			"list of "+strconv.FormatUint(uint64(length), 10)+" elements exceeds limit")
	}

	elem := schema.Resolve(l.Elem)
	elemLayout := c.layouts.Of(elem)

	if length == 0 {
		return emptyList(elem), nil
	}

	if elemLayout.Align > 1 && dataAddr%elemLayout.Align != 0 {
		return nil, errors.Misaligned(errors.PhaseLift, path, dataAddr, elemLayout.Align)
	}
	if _, ok := safeMulU32(length, elemLayout.Size); !ok {
		return nil, errors.Overflow(errors.PhaseLift, path, "list data size overflows")
	}

	// Bulk copy for byte lists.
	if _, isU8 := elem.(schema.U8); isU8 {
		data, err := mem.Read(dataAddr, length)
		if err != nil {
			return nil, liftReadError(path, dataAddr, err)
		}
		out := make([]byte, length)
		copy(out, data)
		return out, nil
	}

	switch elem.(type) {
	case schema.U32:
		out := make([]uint32, length)
		for i := range out {
			v, err := c.lift(elem, dataAddr+uint32(i)*elemLayout.Size, mem, path)
			if err != nil {
				return nil, err
			}
			out[i] = v.(uint32)
		}
		return out, nil
	case schema.F64:
		out := make([]float64, length)
		for i := range out {
			v, err := c.lift(elem, dataAddr+uint32(i)*elemLayout.Size, mem, path)
			if err != nil {
				return nil, err
			}
			out[i] = v.(float64)
		}
		return out, nil
	case schema.String:
		out := make([]string, length)
		for i := range out {
			v, err := c.lift(elem, dataAddr+uint32(i)*elemLayout.Size, mem,
				append(path, "["+strconv.Itoa(i)+"]"))
			if err != nil {
				return nil, err
			}
			out[i] = v.(string)
		}
		return out, nil
	}

	out := make([]any, length)
	for i := range out {
		v, err := c.lift(elem, dataAddr+uint32(i)*elemLayout.Size, mem,
			append(path, "["+strconv.Itoa(i)+"]"))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// emptyList keeps the lifted Go type stable whether or not elements exist.
func emptyList(elem schema.Type) any {
	switch elem.(type) {
	case schema.U8:
		return []byte{}
	case schema.U32:
		return []uint32{}
	case schema.F64:
		return []float64{}
	case schema.String:
		return []string{}
	default:
		return []any{}
	}
}

func (c *Codec) liftTuple(t *schema.Tuple, addr uint32, mem canon.Memory, path []string) (any, error) {
	offs := c.layouts.FieldOffsets(t.Types)
	out := make([]any, len(t.Types))
	for i, elemType := range t.Types {
		v, err := c.lift(elemType, addr+offs[i], mem, append(path, "["+strconv.Itoa(i)+"]"))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *Codec) liftRecord(r *schema.Record, addr uint32, mem canon.Memory, path []string) (any, error) {
	types := make([]schema.Type, len(r.Fields))
	for i, f := range r.Fields {
		types[i] = f.Type
	}
	offs := c.layouts.FieldOffsets(types)

	out := make(map[string]any, len(r.Fields))
	for i, f := range r.Fields {
		v, err := c.lift(f.Type, addr+offs[i], mem, append(path, f.Name))
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func (c *Codec) liftVariant(v *schema.Variant, addr uint32, mem canon.Memory, path []string) (any, error) {
	disc, err := c.readDiscriminant(addr, len(v.Cases), mem)
	if err != nil {
		return nil, liftReadError(path, addr, err)
	}
	if int(disc) >= len(v.Cases) {
		return nil, errors.InvalidDiscriminant(errors.PhaseLift, path, disc, uint32(len(v.Cases)))
	}

	out := canon.Variant{Case: disc}
	active := v.Cases[disc]
	if active.Type != nil {
		payloadOffset := c.layouts.PayloadOffset(len(v.Cases), variantCaseTypes(v))
		payload, err := c.lift(active.Type, addr+payloadOffset, mem, append(path, active.Name))
		if err != nil {
			return nil, err
		}
		out.Payload = payload
	}
	return out, nil
}

func (c *Codec) liftEnum(e *schema.Enum, addr uint32, mem canon.Memory, path []string) (any, error) {
	disc, err := c.readDiscriminant(addr, len(e.Cases), mem)
	if err != nil {
		return nil, liftReadError(path, addr, err)
	}
	if int(disc) >= len(e.Cases) {
		return nil, errors.InvalidDiscriminant(errors.PhaseLift, path, disc, uint32(len(e.Cases)))
	}
	return canon.Enum(disc), nil
}

func (c *Codec) liftOption(o *schema.Option, addr uint32, mem canon.Memory, path []string) (any, error) {
	disc, err := mem.ReadU8(addr)
	if err != nil {
		return nil, liftReadError(path, addr, err)
	}
	switch disc {
	case 0:
		return canon.None(), nil
	case 1:
		payloadOffset := c.layouts.PayloadOffset(2, []schema.Type{nil, o.Some})
		v, err := c.lift(o.Some, addr+payloadOffset, mem, append(path, "some"))
		if err != nil {
			return nil, err
		}
		return canon.Some(v), nil
	default:
		return nil, errors.InvalidDiscriminant(errors.PhaseLift, path, uint32(disc), 2)
	}
}

func (c *Codec) liftResult(r *schema.Result, addr uint32, mem canon.Memory, path []string) (any, error) {
	disc, err := mem.ReadU8(addr)
	if err != nil {
		return nil, liftReadError(path, addr, err)
	}
	if disc > 1 {
		return nil, errors.InvalidDiscriminant(errors.PhaseLift, path, uint32(disc), 2)
	}

	payloadOffset := c.layouts.PayloadOffset(2, []schema.Type{r.OK, r.Err})

	if disc == 0 {
		if r.OK == nil {
			return canon.Ok(nil), nil
		}
		v, err := c.lift(r.OK, addr+payloadOffset, mem, append(path, "ok"))
		if err != nil {
			return nil, err
		}
		return canon.Ok(v), nil
	}

	if r.Err == nil {
		return canon.Err(nil), nil
	}
	v, err := c.lift(r.Err, addr+payloadOffset, mem, append(path, "err"))
	if err != nil {
		return nil, err
	}
	return canon.Err(v), nil
}

func (c *Codec) readDiscriminant(addr uint32, numCases int, mem canon.Memory) (uint32, error) {
	switch schema.DiscriminantSize(numCases) {
	case 1:
		v, err := mem.ReadU8(addr)
		return uint32(v), err
	case 2:
		v, err := mem.ReadU16(addr)
		return uint32(v), err
	default:
		return mem.ReadU32(addr)
	}
}

// liftReadError classifies a memory read failure as an out-of-bounds fault.
func liftReadError(path []string, addr uint32, cause error) error {
	return errors.New(errors.PhaseLift, errors.KindOutOfBounds).
		Path(path...).
		Cause(cause).
		Detail("read at 0x%X failed", addr).
		Build()
}
