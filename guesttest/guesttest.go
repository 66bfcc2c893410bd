// Package guesttest provides an in-process guest for exercising full
// boundary crossings without an execution engine. Its memory is a plain
// byte slice, its allocator a bump arena, and its exports are Go functions
// that decode and encode through the same codec a real guest would face.
package guesttest

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/wippyai/canon"
	"github.com/wippyai/canon/codec"
	"github.com/wippyai/canon/dispatch"
	"github.com/wippyai/canon/schema"
)

// Memory is a bounds-checked byte-slice linear memory.
type Memory struct {
	data []byte
}

// NewMemory returns a zeroed memory of the given size.
func NewMemory(size int) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Bytes exposes the raw backing slice for assertions.
func (m *Memory) Bytes() []byte {
	return m.data
}

func (m *Memory) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return fmt.Errorf("memory access [%d, %d) out of bounds (size %d)",
			offset, uint64(offset)+uint64(length), len(m.data))
	}
	return nil
}

func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *Memory) ReadU8(offset uint32) (uint8, error) {
	if err := m.check(offset, 1); err != nil {
		return 0, err
	}
	return m.data[offset], nil
}

func (m *Memory) ReadU16(offset uint32) (uint16, error) {
	if err := m.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.data[offset:]), nil
}

func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	if err := m.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

func (m *Memory) ReadU64(offset uint32) (uint64, error) {
	if err := m.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

func (m *Memory) WriteU8(offset uint32, value uint8) error {
	if err := m.check(offset, 1); err != nil {
		return err
	}
	m.data[offset] = value
	return nil
}

func (m *Memory) WriteU16(offset uint32, value uint16) error {
	if err := m.check(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.data[offset:], value)
	return nil
}

func (m *Memory) WriteU32(offset uint32, value uint32) error {
	if err := m.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[offset:], value)
	return nil
}

func (m *Memory) WriteU64(offset uint32, value uint64) error {
	if err := m.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[offset:], value)
	return nil
}

// Arena is a bump allocator over a Memory. Free only counts calls; arena
// storage is reclaimed by dropping the whole guest.
type Arena struct {
	mem    *Memory
	offset uint32
	allocs int
	frees  int
}

// NewArena starts allocating at base, leaving the low region for callers
// that stage data at fixed addresses.
func NewArena(mem *Memory, base uint32) *Arena {
	return &Arena{mem: mem, offset: base}
}

func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	a.offset = schema.AlignTo(a.offset, align)
	if uint64(a.offset)+uint64(size) > uint64(len(a.mem.data)) {
		return 0, fmt.Errorf("arena exhausted: %d bytes requested at %d", size, a.offset)
	}
	ptr := a.offset
	a.offset += size
	a.allocs++
	return ptr, nil
}

func (a *Arena) Free(ptr, size, align uint32) {
	a.frees++
}

// Allocs returns the number of Alloc calls.
func (a *Arena) Allocs() int { return a.allocs }

// Frees returns the number of Free calls.
func (a *Arena) Frees() int { return a.frees }

// Body is a guest export implementation: lifted arguments in, native
// result out.
type Body func(ctx context.Context, args []any) (any, error)

// Guest implements canon.Guest in process.
type Guest struct {
	mem     *Memory
	arena   *Arena
	cdc     *codec.Codec
	exports map[string]canon.Invoker
}

// New returns a guest with the given memory size. Allocation starts at
// 4096 so low addresses stay free for fixture staging.
func New(size int) *Guest {
	mem := NewMemory(size)
	return &Guest{
		mem:     mem,
		arena:   NewArena(mem, 4096),
		cdc:     codec.New(),
		exports: make(map[string]canon.Invoker),
	}
}

func (g *Guest) Memory() canon.Memory {
	return g.mem
}

func (g *Guest) Allocator() canon.Allocator {
	return g.arena
}

func (g *Guest) Export(name string) canon.Invoker {
	return g.exports[name]
}

// Arena exposes the allocator for assertions on allocation counts.
func (g *Guest) Arena() *Arena {
	return g.arena
}

// Codec returns the guest-side codec.
func (g *Guest) Codec() *codec.Codec {
	return g.cdc
}

// ExportFunc installs body as the export fn.Name. The invoker decodes the
// caller's argument region, runs body, and encodes its result, exactly as
// compiled bindings would.
func (g *Guest) ExportFunc(fn *schema.Func, body Body) {
	g.exports[fn.Name] = canon.InvokerFunc(func(ctx context.Context, argsPtr, retPtr uint32) error {
		return dispatch.Inbound(ctx, g.cdc, fn, g.mem, g.arena, argsPtr, retPtr, dispatch.Handler(body))
	})
}

// ExportRaw installs inv verbatim, for exports that need direct memory
// access, such as deliberately corrupt encodings.
func (g *Guest) ExportRaw(name string, inv canon.Invoker) {
	g.exports[name] = inv
}
