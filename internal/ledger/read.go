package ledger

import (
	"context"
	"fmt"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/ir"
)

// Events returns the events committed by version in emission order.
// Returns an empty slice (not nil) if the version emitted none.
func (d *DB) Events(ctx context.Context, version uint64) ([]changeset.Event, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT stream, seq, type, data
		FROM events
		WHERE version = ?
		ORDER BY idx ASC
	`, int64(version))
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []changeset.Event{}
	for rows.Next() {
		var (
			ev   changeset.Event
			seq  int64
			data string
		)
		if err := rows.Scan(&ev.Key, &seq, &ev.Type, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Seq = uint64(seq)
		if ev.Data, err = ir.ParseObject([]byte(data)); err != nil {
			return nil, fmt.Errorf("decode event data: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// CommitEntry is one row of the commit log.
type CommitEntry struct {
	RunID       string `json:"run_id"`
	Version     uint64 `json:"version"`
	Kind        string `json:"kind"`
	CommittedAt string `json:"committed_at"`
}

// CommitLog returns every commit ordered by version.
func (d *DB) CommitLog(ctx context.Context) ([]CommitEntry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT run_id, version, kind, committed_at
		FROM commit_log
		ORDER BY version ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query commit log: %w", err)
	}
	defer rows.Close()

	entries := []CommitEntry{}
	for rows.Next() {
		var (
			e CommitEntry
			v int64
		)
		if err := rows.Scan(&e.RunID, &v, &e.Kind, &e.CommittedAt); err != nil {
			return nil, fmt.Errorf("scan commit log: %w", err)
		}
		e.Version = uint64(v)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commit log: %w", err)
	}
	return entries, nil
}

// ChangeSetHash returns the recorded hash of the change set that
// produced version.
func (d *DB) ChangeSetHash(ctx context.Context, version uint64) (string, error) {
	var hash string
	if err := d.db.QueryRowContext(ctx,
		`SELECT changeset_hash FROM versions WHERE version = ?`, int64(version)).Scan(&hash); err != nil {
		return "", fmt.Errorf("query change set hash %d: %w", version, err)
	}
	return hash, nil
}
