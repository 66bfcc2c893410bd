package codec

import (
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/canon"
	"github.com/wippyai/canon/errors"
	"github.com/wippyai/canon/schema"
)

// Lower encodes a native value into the canonical wire shape at addr.
// Strings and lists allocate backing regions through alloc and record them
// in allocs; on error the caller frees allocs to undo partial writes.
func (c *Codec) Lower(t schema.Type, value any, addr uint32, mem canon.Memory, alloc canon.Allocator, allocs *AllocationList) error {
	return c.lower(t, value, addr, mem, alloc, allocs, nil)
}

func (c *Codec) lower(t schema.Type, value any, addr uint32, mem canon.Memory, alloc canon.Allocator, allocs *AllocationList, path []string) error {
	switch n := schema.Resolve(t).(type) {
	case schema.Bool:
		v, ok := value.(bool)
		if !ok {
			return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "bool")
		}
		var b uint8
		if v {
			b = 1
		}
		return mem.WriteU8(addr, b)

	case schema.U8:
		v, ok := toU8(value)
		if !ok {
			return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "u8")
		}
		return mem.WriteU8(addr, v)

	case schema.S8:
		v, ok := toS8(value)
		if !ok {
			return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "s8")
		}
		return mem.WriteU8(addr, uint8(v))

	case schema.U16:
		v, ok := toU16(value)
		if !ok {
			return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "u16")
		}
		return mem.WriteU16(addr, v)

	case schema.S16:
		v, ok := toS16(value)
		if !ok {
			return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "s16")
		}
		return mem.WriteU16(addr, uint16(v))

	case schema.U32:
		v, ok := toU32(value)
		if !ok {
			return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "u32")
		}
		return mem.WriteU32(addr, v)

	case schema.S32:
		v, ok := toS32(value)
		if !ok {
			return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "s32")
		}
		return mem.WriteU32(addr, uint32(v))

	case schema.U64:
		v, ok := toU64(value)
		if !ok {
			return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "u64")
		}
		return mem.WriteU64(addr, v)

	case schema.S64:
		v, ok := toS64(value)
		if !ok {
			return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "s64")
		}
		return mem.WriteU64(addr, uint64(v))

	case schema.F32:
		v, ok := toF32(value)
		if !ok {
			return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "f32")
		}
		return mem.WriteU32(addr, canonicalizeF32(math.Float32bits(v)))

	case schema.F64:
		v, ok := toF64(value)
		if !ok {
			return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "f64")
		}
		return mem.WriteU64(addr, canonicalizeF64(math.Float64bits(v)))

	case schema.Char:
		r, ok := value.(rune)
		if !ok {
			return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "char")
		}
		if !validChar(r) {
			return errors.InvalidChar(errors.PhaseLower, path, uint32(r))
		}
		return mem.WriteU32(addr, uint32(r))

	case schema.String:
		s, ok := value.(string)
		if !ok {
			return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "string")
		}
		return c.lowerString(s, addr, mem, alloc, allocs, path)

	case *schema.List:
		return c.lowerList(n, value, addr, mem, alloc, allocs, path)

	case *schema.Tuple:
		return c.lowerTuple(n, value, addr, mem, alloc, allocs, path)

	case *schema.Record:
		return c.lowerRecord(n, value, addr, mem, alloc, allocs, path)

	case *schema.Variant:
		return c.lowerVariant(n, value, addr, mem, alloc, allocs, path)

	case *schema.Enum:
		return c.lowerEnum(n, value, addr, mem, path)

	case *schema.Option:
		return c.lowerOption(n, value, addr, mem, alloc, allocs, path)

	case *schema.Result:
		return c.lowerResult(n, value, addr, mem, alloc, allocs, path)

	default:
		return errors.Unsupported(errors.PhaseLower, "type "+schema.Name(t))
	}
}

func (c *Codec) lowerString(s string, addr uint32, mem canon.Memory, alloc canon.Allocator, allocs *AllocationList, path []string) error {
	if !utf8.ValidString(s) {
		return errors.InvalidUTF8(errors.PhaseLower, path, []byte(s))
	}

	dataLen := uint32(len(s))
	if dataLen > c.limits.MaxStringBytes {
		return errors.Overflow(errors.PhaseLower, path,
			"string of "+strconv.FormatUint(uint64(dataLen), 10)+" bytes exceeds limit")
	}

	if dataLen == 0 {
		if err := mem.WriteU32(addr, 0); err != nil {
			return err
		}
		return mem.WriteU32(addr+4, 0)
	}

	dataAddr, err := alloc.Alloc(dataLen, 1)
	if err != nil {
		return errors.AllocationFailed(errors.PhaseLower, path, dataLen, 1, err)
	}
	if allocs != nil {
		allocs.Add(dataAddr, dataLen, 1)
	}

	if err := mem.Write(dataAddr, []byte(s)); err != nil {
		return err
	}
	if err := mem.WriteU32(addr, dataAddr); err != nil {
		return err
	}
	return mem.WriteU32(addr+4, dataLen)
}

func (c *Codec) lowerList(l *schema.List, value any, addr uint32, mem canon.Memory, alloc canon.Allocator, allocs *AllocationList, path []string) error {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		// nil lowers as the empty list
		if err := mem.WriteU32(addr, 0); err != nil {
			return err
		}
		return mem.WriteU32(addr+4, 0)
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), schema.Name(l))
	}

	length := uint32(rv.Len())
	if length > c.limits.MaxListLen {
		return errors.Overflow(errors.PhaseLower, path,
			"list of "+strconv.FormatUint(uint64(length), 10)+" elements exceeds limit")
	}

	if length == 0 {
		if err := mem.WriteU32(addr, 0); err != nil {
			return err
		}
		return mem.WriteU32(addr+4, 0)
	}

	elemLayout := c.layouts.Of(l.Elem)
	dataSize, ok := safeMulU32(length, elemLayout.Size)
	if !ok || dataSize > c.limits.MaxAlloc {
		return errors.Overflow(errors.PhaseLower, path, "list data size overflows")
	}

	dataAddr, err := alloc.Alloc(dataSize, elemLayout.Align)
	if err != nil {
		return errors.AllocationFailed(errors.PhaseLower, path, dataSize, elemLayout.Align, err)
	}
	if allocs != nil {
		allocs.Add(dataAddr, dataSize, elemLayout.Align)
	}

	// Bulk copy for byte lists.
	if b, isBytes := value.([]byte); isBytes {
		if _, isU8 := schema.Resolve(l.Elem).(schema.U8); isU8 {
			if err := mem.Write(dataAddr, b); err != nil {
				return err
			}
			if err := mem.WriteU32(addr, dataAddr); err != nil {
				return err
			}
			return mem.WriteU32(addr+4, length)
		}
	}

	for i := uint32(0); i < length; i++ {
		elemVal := rv.Index(int(i)).Interface()
		elemPath := append(path, "["+strconv.FormatUint(uint64(i), 10)+"]")
		if err := c.lower(l.Elem, elemVal, dataAddr+i*elemLayout.Size, mem, alloc, allocs, elemPath); err != nil {
			return err
		}
	}

	if err := mem.WriteU32(addr, dataAddr); err != nil {
		return err
	}
	return mem.WriteU32(addr+4, length)
}

func (c *Codec) lowerTuple(t *schema.Tuple, value any, addr uint32, mem canon.Memory, alloc canon.Allocator, allocs *AllocationList, path []string) error {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "tuple")
	}
	if rv.Len() != len(t.Types) {
		return errors.InvalidData(errors.PhaseLower, path,
			"tuple has "+strconv.Itoa(len(t.Types))+" elements, value has "+strconv.Itoa(rv.Len()))
	}

	offs := c.layouts.FieldOffsets(t.Types)
	for i, elemType := range t.Types {
		elemPath := append(path, "["+strconv.Itoa(i)+"]")
		if err := c.lower(elemType, rv.Index(i).Interface(), addr+offs[i], mem, alloc, allocs, elemPath); err != nil {
			return err
		}
	}
	return nil
}

func (c *Codec) lowerRecord(r *schema.Record, value any, addr uint32, mem canon.Memory, alloc canon.Allocator, allocs *AllocationList, path []string) error {
	m, ok := value.(map[string]any)
	if !ok {
		return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "record (map[string]any)")
	}

	types := make([]schema.Type, len(r.Fields))
	for i, f := range r.Fields {
		types[i] = f.Type
	}
	offs := c.layouts.FieldOffsets(types)

	// Declared order, not map order: field order is part of the wire contract.
	for i, f := range r.Fields {
		fieldVal, exists := m[f.Name]
		if !exists {
			return errors.FieldMissing(errors.PhaseLower, path, f.Name)
		}
		if err := c.lower(f.Type, fieldVal, addr+offs[i], mem, alloc, allocs, append(path, f.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Codec) lowerVariant(v *schema.Variant, value any, addr uint32, mem canon.Memory, alloc canon.Allocator, allocs *AllocationList, path []string) error {
	val, ok := value.(canon.Variant)
	if !ok {
		return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "variant")
	}
	if int(val.Case) >= len(v.Cases) {
		return errors.InvalidDiscriminant(errors.PhaseLower, path, val.Case, uint32(len(v.Cases)))
	}

	layout := c.layouts.Of(v)
	if err := c.writeDiscriminant(addr, val.Case, len(v.Cases), mem); err != nil {
		return err
	}

	payloadOffset := c.layouts.PayloadOffset(len(v.Cases), variantCaseTypes(v))
	if err := c.zeroFill(mem, addr+payloadOffset, layout.Size-payloadOffset); err != nil {
		return err
	}

	active := v.Cases[val.Case]
	if active.Type != nil {
		return c.lower(active.Type, val.Payload, addr+payloadOffset, mem, alloc, allocs, append(path, active.Name))
	}
	return nil
}

func (c *Codec) lowerEnum(e *schema.Enum, value any, addr uint32, mem canon.Memory, path []string) error {
	var disc uint32
	switch n := value.(type) {
	case canon.Enum:
		disc = uint32(n)
	default:
		v, ok := toU32(value)
		if !ok {
			return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "enum")
		}
		disc = v
	}
	if int(disc) >= len(e.Cases) {
		return errors.InvalidDiscriminant(errors.PhaseLower, path, disc, uint32(len(e.Cases)))
	}
	return c.writeDiscriminant(addr, disc, len(e.Cases), mem)
}

func (c *Codec) lowerOption(o *schema.Option, value any, addr uint32, mem canon.Memory, alloc canon.Allocator, allocs *AllocationList, path []string) error {
	var opt canon.Option
	switch v := value.(type) {
	case nil:
		opt = canon.None()
	case canon.Option:
		opt = v
	default:
		return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), schema.Name(o))
	}

	layout := c.layouts.Of(o)
	if err := c.zeroFill(mem, addr+1, layout.Size-1); err != nil {
		return err
	}
	if !opt.Some {
		return mem.WriteU8(addr, 0)
	}
	if err := mem.WriteU8(addr, 1); err != nil {
		return err
	}
	payloadOffset := c.layouts.PayloadOffset(2, []schema.Type{nil, o.Some})
	return c.lower(o.Some, opt.Value, addr+payloadOffset, mem, alloc, allocs, append(path, "some"))
}

func (c *Codec) lowerResult(r *schema.Result, value any, addr uint32, mem canon.Memory, alloc canon.Allocator, allocs *AllocationList, path []string) error {
	res, ok := value.(canon.Result)
	if !ok {
		return errors.TypeMismatch(errors.PhaseLower, path, typeName(value), "result")
	}

	layout := c.layouts.Of(r)
	if err := c.zeroFill(mem, addr+1, layout.Size-1); err != nil {
		return err
	}
	payloadOffset := c.layouts.PayloadOffset(2, []schema.Type{r.OK, r.Err})

	if !res.IsErr {
		if err := mem.WriteU8(addr, 0); err != nil {
			return err
		}
		if r.OK != nil {
			return c.lower(r.OK, res.Value, addr+payloadOffset, mem, alloc, allocs, append(path, "ok"))
		}
		return nil
	}

	if err := mem.WriteU8(addr, 1); err != nil {
		return err
	}
	if r.Err != nil {
		return c.lower(r.Err, res.Value, addr+payloadOffset, mem, alloc, allocs, append(path, "err"))
	}
	return nil
}

func (c *Codec) writeDiscriminant(addr uint32, disc uint32, numCases int, mem canon.Memory) error {
	switch schema.DiscriminantSize(numCases) {
	case 1:
		return mem.WriteU8(addr, uint8(disc))
	case 2:
		return mem.WriteU16(addr, uint16(disc))
	default:
		return mem.WriteU32(addr, disc)
	}
}

// zeroFill blanks the unused payload tail so lowered bytes are
// deterministic regardless of what the region held before.
func (c *Codec) zeroFill(mem canon.Memory, addr, size uint32) error {
	if size == 0 {
		return nil
	}
	return mem.Write(addr, make([]byte, size))
}

func variantCaseTypes(v *schema.Variant) []schema.Type {
	out := make([]schema.Type, len(v.Cases))
	for i, cs := range v.Cases {
		out[i] = cs.Type
	}
	return out
}
