// Package changeset is the portable output of simulated execution: keyed
// write operations, an ordered event stream, and deferred numeric deltas.
//
// Genesis and rescue artifacts are ChangeSets. A finished artifact has no
// deletions and no deltas; Validate checks both. Two change sets produced
// by consecutive phases are merged with Squash.
//
// ChangeSets serialize to RFC 8785 canonical JSON (see internal/ir), so
// an artifact's bytes and Hash depend only on its content.
package changeset
