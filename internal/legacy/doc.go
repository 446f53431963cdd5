// Package legacy models one legacy account's recoverable state and reads
// and writes recovery snapshot files.
//
// A snapshot is a JSON array of RecoveryRecord. Records are sparse: every
// typed field is optional, and members this package does not model are
// carried opaquely in RecoveryRecord.Resources so a rewrite never loses
// data. A record with no account is retained as-is; downstream passes
// skip it rather than treating it as a parse error.
package legacy
