// Package codec lowers native values to the canonical wire shape and lifts
// wire bytes back into native values.
//
// Lowering walks the schema tree and writes bytes into guest memory at a
// caller-supplied address; strings and lists allocate their backing regions
// through the guest Allocator and record each allocation in an
// AllocationList so a faulted call can release everything it wrote.
// Lifting reads the same layout back and validates every byte it interprets:
// bool bytes outside {0,1}, discriminants at or above the case count,
// invalid UTF-8, chars that are not Unicode scalar values, truncated or
// misaligned regions are all decode faults, never silently coerced values.
//
// The codec is a generic interpreter over the schema tree with fast paths
// for primitive-element lists (bulk byte copies). It holds no per-call
// state and is safe for concurrent use; share one Codec per linked unit so
// layout computations are cached once.
//
// Numeric payloads convert deterministically when the declared type differs
// from the value in hand: widening sign- or zero-extends per the source's
// signedness, narrowing keeps the low-order bits without a range fault,
// int→float is exact-or-nearest, float→int truncates toward zero. Only the
// payload representation converts; a case tag is never promoted.
package codec
