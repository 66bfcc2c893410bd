package link

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/canon"
	"github.com/wippyai/canon/codec"
	"github.com/wippyai/canon/dispatch"
	"github.com/wippyai/canon/errors"
	"github.com/wippyai/canon/schema"
)

// Options configure instantiation.
type Options struct {
	// Limits bound per-value sizes in the codec.
	Limits codec.Limits
	// Layouts optionally shares a layout cache across instances of the
	// same declaration. Nil creates a fresh cache.
	Layouts *schema.Layouts
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{Limits: codec.DefaultLimits()}
}

// Instance is one linked unit: a guest bound to its host implementations.
type Instance struct {
	codec   *codec.Codec
	guest   canon.Guest
	ctx     *Context
	exports map[string]schema.Func
	imports map[string]hostEntry
}

// Instantiate checks decl's imports against the registry and binds the
// guest. The registry is sealed as a side effect. Linking is all-or-nothing:
// on any unresolved or mismatched import the returned error is a
// *errors.LinkError listing every failure, and no instance exists.
func Instantiate(decl *schema.Schema, reg *Registry, guest canon.Guest, opts Options) (*Instance, error) {
	if err := schema.ValidateSchema(decl); err != nil {
		return nil, err
	}

	reg.Seal()

	linkErr := &errors.LinkError{}
	imports := make(map[string]hostEntry, len(decl.Imports))
	for _, imp := range decl.Imports {
		entry, ok := reg.lookup(imp.Namespace, imp.Func.Name)
		if !ok {
			linkErr.Missing = append(linkErr.Missing, errors.UnresolvedImport{
				Namespace: imp.Namespace,
				Function:  imp.Func.Name,
			})
			continue
		}
		if !schema.EqualFunc(entry.fn, imp.Func) {
			linkErr.Mismatched = append(linkErr.Mismatched, errors.SignatureMismatch{
				Namespace: imp.Namespace,
				Function:  imp.Func.Name,
				Reason:    "registered signature differs from declaration",
			})
			continue
		}
		// Bind against the guest's declaration, not the registration: the
		// declaration is what the guest lowered its arguments against.
		imports[importKey(imp.Namespace, imp.Func.Name)] = hostEntry{
			fn:   imp.Func,
			impl: entry.impl,
		}
	}

	if !linkErr.Empty() {
		Logger().Warn("instantiation failed",
			zap.Int("missing", len(linkErr.Missing)),
			zap.Int("mismatched", len(linkErr.Mismatched)))
		return nil, linkErr
	}

	exports := make(map[string]schema.Func, len(decl.Exports))
	for _, exp := range decl.Exports {
		exports[exp.Func.Name] = exp.Func
	}

	layouts := opts.Layouts
	if layouts == nil {
		layouts = schema.NewLayouts()
	}

	Logger().Debug("instantiated",
		zap.Int("imports", len(imports)),
		zap.Int("exports", len(exports)))

	return &Instance{
		codec:   codec.NewWithLimits(layouts, opts.Limits),
		guest:   guest,
		ctx:     newContext(),
		exports: exports,
		imports: imports,
	}, nil
}

// Context returns the instance's host-side state store.
func (i *Instance) Context() *Context {
	return i.ctx
}

// Codec returns the codec bound to this instance.
func (i *Instance) Codec() *codec.Codec {
	return i.codec
}

// Call invokes the named guest export with native arguments and returns its
// lifted result.
func (i *Instance) Call(ctx context.Context, name string, args ...any) (any, error) {
	fn, ok := i.exports[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseInvoke, "export", name)
	}
	inv := i.guest.Export(name)
	if inv == nil {
		return nil, errors.NotFound(errors.PhaseInvoke, "guest export", name)
	}
	return dispatch.Outbound(ctx, i.codec, &fn, i.guest.Memory(), i.guest.Allocator(), inv, args...)
}

// Exports lists the callable export names.
func (i *Instance) Exports() []string {
	out := make([]string, 0, len(i.exports))
	for name := range i.exports {
		out = append(out, name)
	}
	return out
}

// Import returns the invoker the execution layer installs for a declared
// import, or nil if the declaration has no such import. The invoker lifts
// the guest's arguments, runs the bound host implementation with this
// instance's Context, and lowers the result.
func (i *Instance) Import(namespace, name string) canon.Invoker {
	entry, ok := i.imports[importKey(namespace, name)]
	if !ok {
		return nil
	}
	fn := entry.fn
	return canon.InvokerFunc(func(ctx context.Context, argsPtr, retPtr uint32) error {
		return dispatch.Inbound(ctx, i.codec, &fn, i.guest.Memory(), i.guest.Allocator(), argsPtr, retPtr,
			func(ctx context.Context, args []any) (any, error) {
				return entry.impl(ctx, i.ctx, args)
			})
	})
}
