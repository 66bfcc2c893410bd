package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/canon"
	"github.com/wippyai/canon/schema"
)

// mockMemory implements canon.Memory for testing
type mockMemory struct {
	data []byte
}

func newMockMemory(size int) *mockMemory {
	return &mockMemory{data: make([]byte, size)}
}

func (m *mockMemory) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return fmt.Errorf("access [%d, %d) out of bounds (size %d)", offset, offset+length, len(m.data))
	}
	return nil
}

func (m *mockMemory) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

func (m *mockMemory) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *mockMemory) ReadU8(offset uint32) (uint8, error) {
	if err := m.check(offset, 1); err != nil {
		return 0, err
	}
	return m.data[offset], nil
}

func (m *mockMemory) ReadU16(offset uint32) (uint16, error) {
	if err := m.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.data[offset:]), nil
}

func (m *mockMemory) ReadU32(offset uint32) (uint32, error) {
	if err := m.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

func (m *mockMemory) ReadU64(offset uint32) (uint64, error) {
	if err := m.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

func (m *mockMemory) WriteU8(offset uint32, value uint8) error {
	if err := m.check(offset, 1); err != nil {
		return err
	}
	m.data[offset] = value
	return nil
}

func (m *mockMemory) WriteU16(offset uint32, value uint16) error {
	if err := m.check(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.data[offset:], value)
	return nil
}

func (m *mockMemory) WriteU32(offset uint32, value uint32) error {
	if err := m.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[offset:], value)
	return nil
}

func (m *mockMemory) WriteU64(offset uint32, value uint64) error {
	if err := m.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[offset:], value)
	return nil
}

// mockAllocator is a bump allocator over mockMemory. Free tracks calls so
// tests can assert cleanup happened.
type mockAllocator struct {
	mem    *mockMemory
	offset uint32
	frees  int
}

func newMockAllocator(mem *mockMemory) *mockAllocator {
	// Start past the region tests lower into, so ptr 0 stays reserved
	// for the empty string/list encoding.
	return &mockAllocator{mem: mem, offset: 1024}
}

func (a *mockAllocator) Alloc(size, align uint32) (uint32, error) {
	a.offset = schema.AlignTo(a.offset, align)
	if uint64(a.offset)+uint64(size) > uint64(len(a.mem.data)) {
		return 0, fmt.Errorf("arena exhausted")
	}
	ptr := a.offset
	a.offset += size
	return ptr, nil
}

func (a *mockAllocator) Free(ptr, size, align uint32) {
	a.frees++
}

// roundTrip lowers value at offset 0 and lifts it back.
func roundTrip(t *testing.T, typ schema.Type, value any) any {
	t.Helper()

	mem := newMockMemory(64 * 1024)
	alloc := newMockAllocator(mem)
	c := New()

	allocs := NewAllocationList()
	defer allocs.Release()

	if err := c.Lower(typ, value, 0, mem, alloc, allocs); err != nil {
		t.Fatalf("Lower(%v): %v", value, err)
	}
	got, err := c.Lift(typ, 0, mem)
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}
	return got
}

func TestRoundTripPrimitives(t *testing.T) {
	tests := []struct {
		typ   schema.Type
		value any
		want  any
	}{
		{schema.Bool{}, true, true},
		{schema.Bool{}, false, false},
		{schema.U8{}, uint8(200), uint8(200)},
		{schema.S8{}, int8(-100), int8(-100)},
		{schema.U16{}, uint16(60000), uint16(60000)},
		{schema.S16{}, int16(-30000), int16(-30000)},
		{schema.U32{}, uint32(4000000000), uint32(4000000000)},
		{schema.S32{}, int32(-2000000000), int32(-2000000000)},
		{schema.U64{}, uint64(math.MaxUint64), uint64(math.MaxUint64)},
		{schema.S64{}, int64(math.MinInt64), int64(math.MinInt64)},
		{schema.F32{}, float32(3.14), float32(3.14)},
		{schema.F64{}, 2.718281828, 2.718281828},
		{schema.Char{}, 'x', 'x'},
		{schema.Char{}, '🚀', '🚀'},
		{schema.String{}, "hello", "hello"},
		{schema.String{}, "", ""},
		{schema.String{}, "🚀🚀🚀 𠈄𓀀", "🚀🚀🚀 𠈄𓀀"},
	}

	for _, tt := range tests {
		t.Run(schema.Name(tt.typ), func(t *testing.T) {
			got := roundTrip(t, tt.typ, tt.value)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNaNCanonicalization(t *testing.T) {
	// A non-canonical NaN payload must come back as the canonical pattern.
	mem := newMockMemory(64)
	c := New()

	if err := mem.WriteU32(0, 0x7fc00001); err != nil {
		t.Fatal(err)
	}
	got, err := c.Lift(schema.F32{}, 0, mem)
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}
	f := got.(float32)
	if f == f {
		t.Fatalf("expected NaN, got %v", f)
	}
	if bits := math.Float32bits(f); bits != canonicalNaN32 {
		t.Errorf("f32 NaN bits = 0x%X, want 0x%X", bits, uint32(canonicalNaN32))
	}

	if err := mem.WriteU64(8, 0x7ff8000000000001); err != nil {
		t.Fatal(err)
	}
	got, err = c.Lift(schema.F64{}, 8, mem)
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}
	f64 := got.(float64)
	if bits := math.Float64bits(f64); bits != canonicalNaN64 {
		t.Errorf("f64 NaN bits = 0x%X, want 0x%X", bits, uint64(canonicalNaN64))
	}
}

func TestNumericConversions(t *testing.T) {
	tests := []struct {
		name  string
		typ   schema.Type
		value any
		want  any
	}{
		// Widening extends per the source's signedness.
		{"s8_to_s32", schema.S32{}, int8(-1), int32(-1)},
		{"u8_to_u32", schema.U32{}, uint8(255), uint32(255)},
		{"u8_to_s64", schema.S64{}, uint8(255), int64(255)},
		{"s16_to_s64", schema.S64{}, int16(-2), int64(-2)},
		// Narrowing keeps the low-order bits without faulting.
		{"u32_to_u8", schema.U8{}, uint32(0x1FF), uint8(0xFF)},
		{"s32_to_s8", schema.S8{}, int32(300), int8(44)},
		{"u64_to_u16", schema.U16{}, uint64(0x12345), uint16(0x2345)},
		// Int to float is exact for small magnitudes.
		{"s32_to_f64", schema.F64{}, int32(-7), float64(-7)},
		{"u32_to_f32", schema.F32{}, uint32(8), float32(8)},
		// Float to int truncates toward zero.
		{"f64_to_s32_pos", schema.S32{}, 9.9, int32(9)},
		{"f64_to_s32_neg", schema.S32{}, -9.9, int32(-9)},
		{"f32_to_u8", schema.U8{}, float32(3.7), uint8(3)},
		{"f64_nan_to_s32", schema.S32{}, math.NaN(), int32(0)},
		// Plain ints are accepted for every integer column.
		{"int_to_u16", schema.U16{}, 42, uint16(42)},
		{"int_to_f64", schema.F64{}, 5, float64(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, tt.typ, tt.value)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("conversion mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTripLists(t *testing.T) {
	tests := []struct {
		name  string
		typ   schema.Type
		value any
		want  any
	}{
		{"bytes", &schema.List{Elem: schema.U8{}}, []byte{1, 2, 3, 255}, []byte{1, 2, 3, 255}},
		{"empty_bytes", &schema.List{Elem: schema.U8{}}, []byte{}, []byte{}},
		{"nil_is_empty", &schema.List{Elem: schema.U8{}}, nil, []byte{}},
		{"u32s", &schema.List{Elem: schema.U32{}}, []uint32{10, 20, 30}, []uint32{10, 20, 30}},
		{"f64s", &schema.List{Elem: schema.F64{}}, []float64{1.5, -2.5}, []float64{1.5, -2.5}},
		{"strings", &schema.List{Elem: schema.String{}}, []string{"a", "", "ccc"}, []string{"a", "", "ccc"}},
		{
			"nested",
			&schema.List{Elem: &schema.List{Elem: schema.U8{}}},
			[]any{[]byte{1}, []byte{2, 3}},
			[]any{[]byte{1}, []byte{2, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, tt.typ, tt.value)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEmptyStringEncoding(t *testing.T) {
	mem := newMockMemory(64)
	alloc := newMockAllocator(mem)
	c := New()

	// Dirty the pair first so zeros must come from the encoder.
	mem.WriteU32(0, 0xDEADBEEF)
	mem.WriteU32(4, 0xDEADBEEF)

	if err := c.Lower(schema.String{}, "", 0, mem, alloc, nil); err != nil {
		t.Fatalf("Lower: %v", err)
	}
	ptr, _ := mem.ReadU32(0)
	length, _ := mem.ReadU32(4)
	if ptr != 0 || length != 0 {
		t.Errorf("empty string encoded as (ptr=%d, len=%d), want (0, 0)", ptr, length)
	}
	if alloc.offset != 1024 {
		t.Error("empty string should not allocate")
	}
}

func TestRoundTripRecord(t *testing.T) {
	rec := &schema.Record{Fields: []schema.Field{
		{Name: "flag", Type: schema.Bool{}},
		{Name: "count", Type: schema.U32{}},
		{Name: "label", Type: schema.String{}},
	}}

	value := map[string]any{
		"flag":  true,
		"count": uint32(7),
		"label": "seven",
	}

	got := roundTrip(t, rec, value)
	if diff := cmp.Diff(value, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordFieldPadding(t *testing.T) {
	// u8 then u32: field offsets 0 and 4, total size 8.
	rec := &schema.Record{Fields: []schema.Field{
		{Name: "a", Type: schema.U8{}},
		{Name: "b", Type: schema.U32{}},
	}}

	c := New()
	layout := c.Layouts().Of(rec)
	if layout.Size != 8 || layout.Align != 4 {
		t.Fatalf("layout = %+v, want {Size:8 Align:4}", layout)
	}

	mem := newMockMemory(64)
	value := map[string]any{"a": uint8(0xAA), "b": uint32(0xBBCCDDEE)}
	if err := c.Lower(rec, value, 0, mem, nil, nil); err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if mem.data[0] != 0xAA {
		t.Errorf("field a at offset 0 = 0x%X", mem.data[0])
	}
	if got, _ := mem.ReadU32(4); got != 0xBBCCDDEE {
		t.Errorf("field b at offset 4 = 0x%X", got)
	}
}

func TestRoundTripTuple(t *testing.T) {
	tup := &schema.Tuple{Types: []schema.Type{schema.U32{}, schema.String{}, schema.Bool{}}}
	value := []any{uint32(1), "two", true}

	got := roundTrip(t, tup, value)
	if diff := cmp.Diff(value, got); diff != "" {
		t.Errorf("tuple mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripVariant(t *testing.T) {
	v := &schema.Variant{Cases: []schema.Case{
		{Name: "none"},
		{Name: "num", Type: schema.U64{}},
		{Name: "text", Type: schema.String{}},
	}}

	tests := []struct {
		name  string
		value canon.Variant
	}{
		{"payloadless", canon.Variant{Case: 0}},
		{"numeric", canon.Variant{Case: 1, Payload: uint64(99)}},
		{"text", canon.Variant{Case: 2, Payload: "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, v, tt.value)
			if diff := cmp.Diff(tt.value, got); diff != "" {
				t.Errorf("variant mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVariantPayloadZeroed(t *testing.T) {
	// Lowering a small case over a region that previously held a larger
	// case must blank the stale payload bytes.
	v := &schema.Variant{Cases: []schema.Case{
		{Name: "small", Type: schema.U8{}},
		{Name: "big", Type: schema.U64{}},
	}}

	mem := newMockMemory(64)
	c := New()

	if err := c.Lower(v, canon.Variant{Case: 1, Payload: uint64(math.MaxUint64)}, 0, mem, nil, nil); err != nil {
		t.Fatalf("Lower big: %v", err)
	}
	if err := c.Lower(v, canon.Variant{Case: 0, Payload: uint8(1)}, 0, mem, nil, nil); err != nil {
		t.Fatalf("Lower small: %v", err)
	}

	layout := c.Layouts().Of(v)
	for off := uint32(9); off < layout.Size; off++ {
		if mem.data[off] != 0 {
			t.Errorf("stale payload byte at offset %d: 0x%X", off, mem.data[off])
		}
	}
}

func TestVariantPayloadCasts(t *testing.T) {
	// Mixed-width numeric cases: the payload converts to the declared
	// case's column, the tag stays put.
	v := &schema.Variant{Cases: []schema.Case{
		{Name: "as-s32", Type: schema.S32{}},
		{Name: "as-s64", Type: schema.S64{}},
		{Name: "as-f32", Type: schema.F32{}},
		{Name: "as-f64", Type: schema.F64{}},
	}}

	tests := []struct {
		name string
		in   canon.Variant
		want canon.Variant
	}{
		{"int_to_s32", canon.Variant{Case: 0, Payload: int64(-7)}, canon.Variant{Case: 0, Payload: int32(-7)}},
		{"float_to_s64", canon.Variant{Case: 1, Payload: 9.9}, canon.Variant{Case: 1, Payload: int64(9)}},
		{"int_to_f32", canon.Variant{Case: 2, Payload: 2}, canon.Variant{Case: 2, Payload: float32(2)}},
		{"f32_to_f64", canon.Variant{Case: 3, Payload: float32(3.5)}, canon.Variant{Case: 3, Payload: 3.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, v, tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTripEnum(t *testing.T) {
	e := &schema.Enum{Cases: []string{"red", "green", "blue"}}

	got := roundTrip(t, e, canon.Enum(2))
	if got != canon.Enum(2) {
		t.Errorf("enum = %v, want 2", got)
	}

	// Bare integers are accepted on the way down.
	got = roundTrip(t, e, 1)
	if got != canon.Enum(1) {
		t.Errorf("enum = %v, want 1", got)
	}
}

func TestEnumDiscriminantWidth(t *testing.T) {
	cases := make([]string, 257)
	for i := range cases {
		cases[i] = fmt.Sprintf("c%d", i)
	}
	wide := &schema.Enum{Cases: cases}

	c := New()
	if layout := c.Layouts().Of(wide); layout.Size != 2 {
		t.Fatalf("257-case enum size = %d, want 2", layout.Size)
	}

	got := roundTrip(t, wide, canon.Enum(256))
	if got != canon.Enum(256) {
		t.Errorf("enum = %v, want 256", got)
	}
}

func TestRoundTripOption(t *testing.T) {
	opt := &schema.Option{Some: schema.U32{}}

	got := roundTrip(t, opt, canon.Some(uint32(5)))
	if diff := cmp.Diff(canon.Some(uint32(5)), got); diff != "" {
		t.Errorf("some mismatch (-want +got):\n%s", diff)
	}

	got = roundTrip(t, opt, canon.None())
	if diff := cmp.Diff(canon.None(), got); diff != "" {
		t.Errorf("none mismatch (-want +got):\n%s", diff)
	}

	// Plain nil lowers as none.
	got = roundTrip(t, opt, nil)
	if diff := cmp.Diff(canon.None(), got); diff != "" {
		t.Errorf("nil mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripNestedOption(t *testing.T) {
	// option<option<u32>>: some(none) and none are distinct wire states.
	inner := &schema.Option{Some: schema.U32{}}
	outer := &schema.Option{Some: inner}

	tests := []struct {
		name  string
		value canon.Option
	}{
		{"none", canon.None()},
		{"some_none", canon.Some(canon.None())},
		{"some_some", canon.Some(canon.Some(uint32(3)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, outer, tt.value)
			if diff := cmp.Diff(tt.value, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTripResult(t *testing.T) {
	res := &schema.Result{OK: schema.U32{}, Err: schema.String{}}

	got := roundTrip(t, res, canon.Ok(uint32(1)))
	if diff := cmp.Diff(canon.Ok(uint32(1)), got); diff != "" {
		t.Errorf("ok mismatch (-want +got):\n%s", diff)
	}

	// An err payload is ordinary data, not a fault.
	got = roundTrip(t, res, canon.Err("boom"))
	if diff := cmp.Diff(canon.Err("boom"), got); diff != "" {
		t.Errorf("err mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripBareResult(t *testing.T) {
	res := &schema.Result{}

	got := roundTrip(t, res, canon.Ok(nil))
	if diff := cmp.Diff(canon.Ok(nil), got); diff != "" {
		t.Errorf("ok mismatch (-want +got):\n%s", diff)
	}
	got = roundTrip(t, res, canon.Err(nil))
	if diff := cmp.Diff(canon.Err(nil), got); diff != "" {
		t.Errorf("err mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripListOfVariants(t *testing.T) {
	v := &schema.Variant{Cases: []schema.Case{
		{Name: "empty"},
		{Name: "value", Type: schema.S32{}},
	}}
	l := &schema.List{Elem: v}

	value := []any{
		canon.Variant{Case: 1, Payload: int32(-1)},
		canon.Variant{Case: 0},
		canon.Variant{Case: 1, Payload: int32(7)},
	}

	got := roundTrip(t, l, value)
	if diff := cmp.Diff(value, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripThroughAlias(t *testing.T) {
	named := &schema.Alias{Name: "age", Target: schema.U32{}}
	got := roundTrip(t, named, uint32(30))
	if got != uint32(30) {
		t.Errorf("aliased value = %v, want 30", got)
	}
}

func TestAllocationTracking(t *testing.T) {
	rec := &schema.Record{Fields: []schema.Field{
		{Name: "name", Type: schema.String{}},
		{Name: "tags", Type: &schema.List{Elem: schema.String{}}},
	}}
	value := map[string]any{
		"name": "x",
		"tags": []string{"a", "b"},
	}

	mem := newMockMemory(64 * 1024)
	alloc := newMockAllocator(mem)
	c := New()

	allocs := NewAllocationList()
	if err := c.Lower(rec, value, 0, mem, alloc, allocs); err != nil {
		t.Fatalf("Lower: %v", err)
	}

	// name data, tags data region, plus each tag's bytes.
	if allocs.Count() != 4 {
		t.Errorf("allocation count = %d, want 4", allocs.Count())
	}

	allocs.FreeAndRelease(alloc)
	if alloc.frees != 4 {
		t.Errorf("free count = %d, want 4", alloc.frees)
	}
}
