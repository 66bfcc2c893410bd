// Package dispatch drives single calls across the boundary in either
// direction, sequencing the codec around a control transfer.
//
// An outbound call (host calling a guest export) moves through a fixed
// progression: arguments are lowered into a freshly allocated args region,
// control transfers to the callee, the result is lifted out of the result
// region, and every region the call allocated is freed. An inbound call
// (guest calling a host import) runs the mirror image: arguments are lifted
// from the caller-provided region, the host body runs, and its return value
// is lowered into the result region.
//
// Each Call is a one-shot state machine:
//
//	Idle -> ArgsLowered -> Invoked -> ResultLifted -> Done
//
// Any step that fails moves the call to Faulted, a terminal state; the
// call's allocations are released either way when it is closed. A callee
// that aborts surfaces as a trap, which is distinct from the decode faults
// the codec raises and from an err-carrying result payload, which is
// ordinary data.
//
// Calls are not safe for concurrent use; create one per crossing. The
// shared Codec behind them is.
package dispatch
