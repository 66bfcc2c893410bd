package link

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/canon/errors"
	"github.com/wippyai/canon/schema"
)

// HostFunc is a host implementation of a guest import. Arguments arrive
// already lifted; the returned value is lowered into the caller's result
// region. A returned error aborts the guest call as a trap.
type HostFunc func(ctx context.Context, ictx *Context, args []any) (any, error)

type hostEntry struct {
	fn   schema.Func
	impl HostFunc
}

// Registry collects host implementations before instantiation. Safe for
// concurrent use. The first Instantiate seals it; registration after that
// fails.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]hostEntry
	sealed  bool
}

// NewRegistry returns an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]hostEntry)}
}

// Register binds impl to the import namespace#fn.Name. The declared
// signature is validated and later checked against the guest's declaration
// at instantiation.
func (r *Registry) Register(namespace string, fn schema.Func, impl HostFunc) error {
	if impl == nil {
		return errors.InvalidData(errors.PhaseRegister, []string{namespace, fn.Name}, "nil implementation")
	}
	for _, p := range fn.Params {
		if err := schema.Validate(p.Type); err != nil {
			return err
		}
	}
	if fn.Result != nil {
		if err := schema.Validate(fn.Result); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.Sealed(namespace, fn.Name)
	}

	key := importKey(namespace, fn.Name)
	if _, exists := r.entries[key]; exists {
		return errors.InvalidData(errors.PhaseRegister, []string{namespace, fn.Name},
			"already registered")
	}
	r.entries[key] = hostEntry{fn: fn, impl: impl}

	Logger().Debug("registered host function",
		zap.String("namespace", namespace),
		zap.String("func", fn.Name))
	return nil
}

// Seal closes the registry to further registration. Idempotent.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether registration is closed.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

func (r *Registry) lookup(namespace, name string) (hostEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[importKey(namespace, name)]
	return e, ok
}

func importKey(namespace, name string) string {
	return namespace + "#" + name
}
