// Package ledger provides a SQLite-backed versioned ledger: state values
// per version, emitted events, a state root per version and a commit log.
//
// # Model
//
//   - versions: one row per committed version (0 is genesis) with its
//     state root and the hash of the change set that produced it
//   - state_values: (key, version) → value; a NULL value deletes the key
//     from that version on
//   - events: ordered events emitted by each version
//   - commit_log: which run committed which version, keyed by run id
//
// Reads at version v see, for each key, the row with the greatest
// version ≤ v. Queries order by key with BINARY collation, so iteration
// order equals Go string order.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//   - one connection per handle: a run owns its handle exclusively
package ledger
