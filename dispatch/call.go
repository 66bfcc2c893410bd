package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/canon"
	"github.com/wippyai/canon/codec"
	"github.com/wippyai/canon/errors"
	"github.com/wippyai/canon/schema"
)

// State is a call's position in its lifecycle.
type State uint8

const (
	StateIdle State = iota
	StateArgsLowered
	StateInvoked
	StateResultLifted
	StateDone
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArgsLowered:
		return "args_lowered"
	case StateInvoked:
		return "invoked"
	case StateResultLifted:
		return "result_lifted"
	case StateDone:
		return "done"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Call is one outbound crossing. It is one-shot and not safe for concurrent
// use; the Codec behind it is shared.
type Call struct {
	codec   *codec.Codec
	fn      *schema.Func
	mem     canon.Memory
	alloc   canon.Allocator
	allocs  *codec.AllocationList
	state   State
	argsPtr uint32
	retPtr  uint32
}

// NewCall prepares an outbound call of fn against the given guest memory
// and allocator. Close must be called regardless of outcome.
func NewCall(cdc *codec.Codec, fn *schema.Func, mem canon.Memory, alloc canon.Allocator) *Call {
	return &Call{
		codec:  cdc,
		fn:     fn,
		mem:    mem,
		alloc:  alloc,
		allocs: codec.NewAllocationList(),
		state:  StateIdle,
	}
}

// State returns the call's current lifecycle state.
func (c *Call) State() State {
	return c.state
}

// LowerArgs allocates the argument and result regions and lowers args into
// the argument region, laid out like a record of the parameter types.
func (c *Call) LowerArgs(args ...any) error {
	if c.state != StateIdle {
		return c.fail(stateError(c.fn.Name, c.state, StateIdle))
	}
	if len(args) != len(c.fn.Params) {
		return c.fail(errors.InvalidData(errors.PhaseLower, []string{c.fn.Name},
			"argument count mismatch"))
	}

	types := paramTypes(c.fn)
	offs, size, align := regionLayout(c.codec.Layouts(), types)

	if size > 0 {
		ptr, err := c.alloc.Alloc(size, align)
		if err != nil {
			return c.fail(errors.AllocationFailed(errors.PhaseLower, []string{c.fn.Name}, size, align, err))
		}
		c.allocs.Add(ptr, size, align)
		c.argsPtr = ptr
	}

	if c.fn.Result != nil {
		rl := c.codec.Layouts().Of(c.fn.Result)
		if rl.Size > 0 {
			ptr, err := c.alloc.Alloc(rl.Size, rl.Align)
			if err != nil {
				return c.fail(errors.AllocationFailed(errors.PhaseLower, []string{c.fn.Name}, rl.Size, rl.Align, err))
			}
			c.allocs.Add(ptr, rl.Size, rl.Align)
			c.retPtr = ptr
		}
	}

	for i, p := range c.fn.Params {
		if err := c.codec.Lower(p.Type, args[i], c.argsPtr+offs[i], c.mem, c.alloc, c.allocs); err != nil {
			return c.fail(err)
		}
	}

	c.state = StateArgsLowered
	return nil
}

// Invoke transfers control to the callee. A callee failure is surfaced as a
// trap and faults the call.
func (c *Call) Invoke(ctx context.Context, inv canon.Invoker) error {
	if c.state != StateArgsLowered {
		return c.fail(stateError(c.fn.Name, c.state, StateArgsLowered))
	}

	if err := inv.Invoke(ctx, c.argsPtr, c.retPtr); err != nil {
		Logger().Debug("callee trapped",
			zap.String("func", c.fn.Name),
			zap.Error(err))
		return c.fail(errors.Trap(err))
	}

	c.state = StateInvoked
	return nil
}

// LiftResult decodes the result region. For a func with no declared result
// it only advances the state machine.
func (c *Call) LiftResult() (any, error) {
	if c.state != StateInvoked {
		return nil, c.fail(stateError(c.fn.Name, c.state, StateInvoked))
	}

	if c.fn.Result == nil {
		c.state = StateResultLifted
		return nil, nil
	}

	result, err := c.codec.Lift(c.fn.Result, c.retPtr, c.mem)
	if err != nil {
		return nil, c.fail(err)
	}

	c.state = StateResultLifted
	return result, nil
}

// Close frees every region the call allocated and retires the call. Safe to
// call at any state, once.
func (c *Call) Close() {
	if c.allocs != nil {
		c.allocs.FreeAndRelease(c.alloc)
		c.allocs = nil
	}
	if c.state != StateFaulted {
		c.state = StateDone
	}
}

func (c *Call) fail(err error) error {
	c.state = StateFaulted
	return err
}

func stateError(fn string, got, want State) error {
	return errors.New(errors.PhaseInvoke, errors.KindInvalidData).
		Path(fn).
		Detail("call in state %s, expected %s", got, want).
		Build()
}

// Outbound runs one complete host-to-guest call: lower, invoke, lift, free.
func Outbound(ctx context.Context, cdc *codec.Codec, fn *schema.Func, mem canon.Memory, alloc canon.Allocator, inv canon.Invoker, args ...any) (any, error) {
	Logger().Debug("outbound call",
		zap.String("func", fn.Name),
		zap.Int("args", len(args)))

	call := NewCall(cdc, fn, mem, alloc)
	defer call.Close()

	if err := call.LowerArgs(args...); err != nil {
		return nil, err
	}
	if err := call.Invoke(ctx, inv); err != nil {
		return nil, err
	}
	return call.LiftResult()
}

// Handler is the host-side body behind an imported function.
type Handler func(ctx context.Context, args []any) (any, error)

// Inbound services one guest-to-host call: lift the arguments from the
// caller's region, run the handler, lower its result into the result
// region. Result allocations transfer to the guest on success and are
// unwound on failure.
func Inbound(ctx context.Context, cdc *codec.Codec, fn *schema.Func, mem canon.Memory, alloc canon.Allocator, argsPtr, retPtr uint32, h Handler) error {
	Logger().Debug("inbound call",
		zap.String("func", fn.Name),
		zap.Uint32("args_ptr", argsPtr),
		zap.Uint32("ret_ptr", retPtr))

	types := paramTypes(fn)
	offs, _, _ := regionLayout(cdc.Layouts(), types)

	args := make([]any, len(types))
	for i, t := range types {
		v, err := cdc.Lift(t, argsPtr+offs[i], mem)
		if err != nil {
			return err
		}
		args[i] = v
	}

	result, err := h(ctx, args)
	if err != nil {
		return err
	}

	if fn.Result == nil {
		return nil
	}

	allocs := codec.NewAllocationList()
	if err := cdc.Lower(fn.Result, result, retPtr, mem, alloc, allocs); err != nil {
		allocs.FreeAndRelease(alloc)
		return err
	}
	allocs.Release()
	return nil
}

func paramTypes(fn *schema.Func) []schema.Type {
	out := make([]schema.Type, len(fn.Params))
	for i, p := range fn.Params {
		out[i] = p.Type
	}
	return out
}

// regionLayout lays out a slice of types like record fields: per-type
// offsets plus the padded size and alignment of the whole region.
func regionLayout(l *schema.Layouts, types []schema.Type) ([]uint32, uint32, uint32) {
	if len(types) == 0 {
		return nil, 0, 1
	}

	offs := l.FieldOffsets(types)
	align := uint32(1)
	end := uint32(0)
	for i, t := range types {
		tl := l.Of(t)
		if tl.Align > align {
			align = tl.Align
		}
		if e := offs[i] + tl.Size; e > end {
			end = e
		}
	}
	return offs, schema.AlignTo(end, align), align
}
