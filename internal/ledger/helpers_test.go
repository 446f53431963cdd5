package ledger

import (
	"path/filepath"
	"testing"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/ir"
)

// createTestDB creates a new ledger in a temp dir.
func createTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// writes builds a change set of integer writes.
func writes(t *testing.T, kv map[string]int64) *changeset.ChangeSet {
	t.Helper()
	cs := changeset.New()
	for k, v := range kv {
		if err := cs.PutValue(changeset.StateKey(k), ir.Int(v)); err != nil {
			t.Fatalf("PutValue(%s) failed: %v", k, err)
		}
	}
	return cs
}
