package canon

import "context"

// Memory represents guest linear memory.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// Allocator allocates regions in guest linear memory.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}

// Invoker transfers control to one function body. Arguments have already
// been lowered into the region at argsPtr; the body writes its result into
// the region at retPtr. A function with no parameters receives argsPtr 0,
// a function with no result receives retPtr 0.
type Invoker interface {
	Invoke(ctx context.Context, argsPtr, retPtr uint32) error
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, argsPtr, retPtr uint32) error

func (f InvokerFunc) Invoke(ctx context.Context, argsPtr, retPtr uint32) error {
	return f(ctx, argsPtr, retPtr)
}

// Guest is the contract with the external execution component: it owns the
// linear memory, the guest-side allocator, and the compiled export bodies.
type Guest interface {
	Memory() Memory
	Allocator() Allocator
	// Export returns the invoker for a guest export, or nil if the guest
	// does not provide it.
	Export(name string) Invoker
}
