// Package schema defines the immutable type-descriptor trees consumed by
// the codec, dispatcher, and linker.
//
// A tree is built once, validated, and then shared read-only by every call
// on the interface that declared it. Primitives are zero-size singletons
// (Bool{}, U32{}, ...); composites are pointer nodes (*Record, *Variant,
// *List, ...). *Alias is transparent: it names another type and has no wire
// effect; Resolve follows alias chains and Validate guarantees they
// terminate.
//
// The package also computes the canonical wire layout (size, alignment,
// field offsets, discriminant width) for every node, caches it per node,
// and provides structural equality up to alias resolution for the linker's
// signature checks.
//
// FromWIT adapts externally produced go.bytecodealliance.org/wit type trees
// into this package's representation. DecodeJSON/EncodeJSON round-trip a
// declarative JSON descriptor form used by tooling; neither is the textual
// WIT compiler, which stays outside this engine.
package schema
