// Package link binds a declared interface to running code on both sides of
// the boundary.
//
// The host registers implementations for the functions a guest declares as
// imports, keyed by namespace and function name. Instantiate checks the
// declaration against the registrations and either produces an Instance or
// fails with a LinkError listing every unresolved and mismatched import;
// linking is all-or-nothing, so a partial instance never exists. The first
// instantiation seals the registry against further registration.
//
// An Instance exposes the guest's exports as host-callable functions and
// the guest's imports as invokers the execution layer installs as host
// functions. Host implementations receive the instance's Context, a small
// mutable key/value store scoped to one instantiation, for state that must
// survive across calls.
package link
