// Package vm defines the execution engine contract used by genesis
// assembly and rescue computations, plus a reference engine that runs
// framework entry functions as registered Go natives.
//
// A Session executes functions against a read-only StateView and buffers
// every effect in a change set. Nothing touches storage; the caller
// decides what to do with the result of Finish.
//
// Each Execute call is atomic: a native that returns an error leaves the
// session exactly as it was before the call.
package vm
