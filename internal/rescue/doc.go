// Package rescue computes and commits out-of-band state transitions
// against a ledger.
//
// Phase 1 (ComputePayload) runs a computation in an execution session over
// the latest version of a ledger opened read-only and captures the result
// as a Payload, which travels as a single rescue.blob file.
//
// Phase 2 is a state machine over a writable ledger:
//
//	Prepare ──▶ Computed ──Verify──▶ Verified ──Commit──▶ Committed
//
// Prepare derives the waypoint the payload would produce without writing.
// Verify compares it with an operator-supplied waypoint. Only a verified
// bootstrap commits, and it commits at most once.
package rescue
