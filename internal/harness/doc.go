// Package harness runs YAML migration scenarios end to end: a recovery
// snapshot goes through repair and genesis assembly, optionally followed
// by a rescue upgrade on a scratch ledger, and assertions are evaluated
// against the resulting state.
//
// # Scenario Format
//
//	name: rotated_key
//	description: "What this scenario validates"
//	chain: testing
//	records:
//	  - {account: "0xaa", auth_key: "…", balance: 100}
//	drop: ["0xdd"]
//	validators:
//	  - {owner: "0xf1", stake: 100}
//	supply: {target_supply: 1000, escrow_pct: 10}
//	rescue: {framework: 2}
//	assertions:
//	  - type: resource
//	    address: "0xaa"
//	    resource: coin::CoinStore
//	    expect: {value: 100}
//	  - type: event_order
//	    events: [0x1::genesis::GenesisEndEvent, 0x1::reconfiguration::NewEpochEvent]
//
// A scenario may set snapshot (a path relative to the scenario file)
// instead of inline records, and config (a CUE file) instead of chain
// defaults. expect_error names a genesis error code the run must fail
// with.
//
// # Assertion Types
//
//   - resource: a resource exists and contains expect (subset match)
//   - absent: a resource does not exist
//   - event_order: event types appear in this order
//   - event_count: an event type appears exactly count times
//   - clamped, dropped: the repair report lists exactly these addresses
//   - summary: the genesis summary contains expect
//   - ledger_version: the rescue ledger ends at version
//
// # Deterministic Testing
//
// Every run uses fixed run ids and a deterministic clock, so identical
// scenarios produce identical traces for golden comparison.
package harness
