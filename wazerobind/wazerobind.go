// Package wazerobind adapts a wazero module to the Guest contract: its
// linear memory, its exported canonical allocator, and its exported
// function bodies. The package contains no marshalling logic; it only
// bridges interfaces.
package wazerobind

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/canon"
	"github.com/wippyai/canon/link"
	"github.com/wippyai/canon/schema"
)

// reallocExport is the canonical allocator a guest module exports.
const reallocExport = "cabi_realloc"

var (
	_ canon.Memory    = (*Memory)(nil)
	_ canon.Allocator = (*Allocator)(nil)
	_ canon.Guest     = (*Guest)(nil)
)

// Memory adapts api.Memory to canon.Memory.
type Memory struct {
	mem api.Memory
}

// NewMemory wraps a wazero memory.
func NewMemory(mem api.Memory) *Memory {
	return &Memory{mem: mem}
}

func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("memory read [%d, %d) out of range", offset, offset+length)
	}
	return data, nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("memory write [%d, %d) out of range", offset, offset+uint32(len(data)))
	}
	return nil
}

func (m *Memory) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, fmt.Errorf("memory read at %d out of range", offset)
	}
	return v, nil
}

func (m *Memory) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.mem.ReadUint16Le(offset)
	if !ok {
		return 0, fmt.Errorf("memory read at %d out of range", offset)
	}
	return v, nil
}

func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("memory read at %d out of range", offset)
	}
	return v, nil
}

func (m *Memory) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, fmt.Errorf("memory read at %d out of range", offset)
	}
	return v, nil
}

func (m *Memory) WriteU8(offset uint32, value uint8) error {
	if !m.mem.WriteByte(offset, value) {
		return fmt.Errorf("memory write at %d out of range", offset)
	}
	return nil
}

func (m *Memory) WriteU16(offset uint32, value uint16) error {
	if !m.mem.WriteUint16Le(offset, value) {
		return fmt.Errorf("memory write at %d out of range", offset)
	}
	return nil
}

func (m *Memory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return fmt.Errorf("memory write at %d out of range", offset)
	}
	return nil
}

func (m *Memory) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return fmt.Errorf("memory write at %d out of range", offset)
	}
	return nil
}

// Allocator drives the guest's exported canonical realloc.
type Allocator struct {
	realloc api.Function
}

// NewAllocator resolves the guest's allocator export.
func NewAllocator(mod api.Module) (*Allocator, error) {
	fn := mod.ExportedFunction(reallocExport)
	if fn == nil {
		return nil, fmt.Errorf("module does not export %q", reallocExport)
	}
	return &Allocator{realloc: fn}, nil
}

func (a *Allocator) Alloc(size, align uint32) (uint32, error) {
	results, err := a.realloc.Call(context.Background(), 0, 0, uint64(align), uint64(size))
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("%s returned no value", reallocExport)
	}
	return uint32(results[0]), nil
}

// Free releases a region by shrinking it to zero through realloc. Guests
// whose allocator ignores shrinking simply leak until teardown.
func (a *Allocator) Free(ptr, size, align uint32) {
	_, _ = a.realloc.Call(context.Background(), uint64(ptr), uint64(size), uint64(align), 0)
}

// Invoker adapts an exported (args_ptr, ret_ptr) function.
func Invoker(fn api.Function) canon.Invoker {
	return canon.InvokerFunc(func(ctx context.Context, argsPtr, retPtr uint32) error {
		_, err := fn.Call(ctx, uint64(argsPtr), uint64(retPtr))
		return err
	})
}

// Guest implements canon.Guest over an instantiated wazero module.
type Guest struct {
	mod   api.Module
	mem   *Memory
	alloc *Allocator
}

// NewGuest wraps mod. The module must export a linear memory and the
// canonical allocator.
func NewGuest(mod api.Module) (*Guest, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, fmt.Errorf("module exports no memory")
	}
	alloc, err := NewAllocator(mod)
	if err != nil {
		return nil, err
	}
	return &Guest{mod: mod, mem: NewMemory(mem), alloc: alloc}, nil
}

func (g *Guest) Memory() canon.Memory {
	return g.mem
}

func (g *Guest) Allocator() canon.Allocator {
	return g.alloc
}

func (g *Guest) Export(name string) canon.Invoker {
	fn := g.mod.ExportedFunction(name)
	if fn == nil {
		return nil
	}
	return Invoker(fn)
}

// InstallImports builds one host module per import namespace, each function
// forwarding to the instance's import thunk. Call before instantiating the
// guest module so its imports resolve. A thunk error becomes a trap in the
// calling guest.
func InstallImports(ctx context.Context, rt wazero.Runtime, inst *link.Instance, decl *schema.Schema) error {
	byNS := make(map[string][]schema.Import)
	var order []string
	for _, imp := range decl.Imports {
		if _, seen := byNS[imp.Namespace]; !seen {
			order = append(order, imp.Namespace)
		}
		byNS[imp.Namespace] = append(byNS[imp.Namespace], imp)
	}

	for _, ns := range order {
		builder := rt.NewHostModuleBuilder(ns)
		for _, imp := range byNS[ns] {
			inv := inst.Import(imp.Namespace, imp.Func.Name)
			if inv == nil {
				return fmt.Errorf("no binding for import %s#%s", imp.Namespace, imp.Func.Name)
			}
			builder.NewFunctionBuilder().
				WithFunc(func(ctx context.Context, argsPtr, retPtr uint32) {
					if err := inv.Invoke(ctx, argsPtr, retPtr); err != nil {
						// wazero turns a host panic into a guest trap.
						panic(err)
					}
				}).
				Export(imp.Func.Name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return err
		}
	}
	return nil
}
