// Package genesis assembles the genesis state transition of a successor
// chain from a configuration, repaired legacy records and a framework
// bundle.
//
// Assembly runs two sessions. The first is seeded only with framework
// modules and performs chain initialization, account migration,
// validator registration and the closing genesis events. The second runs
// over an empty view and publishes the bundle. The two change sets are
// squashed into the artifact, which must be free of deletions and deltas
// and must end with the genesis reconfiguration event.
package genesis
