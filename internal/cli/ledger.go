package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/reforge/internal/genesis"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/ledger"
)

// LedgerInitResult is the output of ledger init.
type LedgerInitResult struct {
	DB       string `json:"db"`
	RunID    string `json:"run_id"`
	Waypoint string `json:"waypoint"`
}

// LedgerEvent is one committed event as printed by ledger events.
type LedgerEvent struct {
	Stream string    `json:"stream"`
	Seq    uint64    `json:"seq"`
	Type   string    `json:"type"`
	Data   ir.Object `json:"data"`
}

// NewLedgerCommand groups the ledger commands.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Initialize and inspect a ledger database",
	}
	cmd.AddCommand(newLedgerInitCommand(rootOpts))
	cmd.AddCommand(newLedgerWaypointCommand(rootOpts))
	cmd.AddCommand(newLedgerLogCommand(rootOpts))
	cmd.AddCommand(newLedgerEventsCommand(rootOpts))
	return cmd
}

func newLedgerInitCommand(rootOpts *RootOptions) *cobra.Command {
	var genesisPath string

	cmd := &cobra.Command{
		Use:   "init <db-dir>",
		Short: "Commit a genesis artifact as ledger version 0",
		Long: `Create the ledger in <db-dir> and commit a verified genesis artifact as
version 0. A ledger can be initialized once.

Exit codes:
  0 - Genesis committed
  1 - Artifact invalid or ledger already initialized
  2 - Command error (missing artifact)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			dir := args[0]

			cs, err := genesis.ReadArtifact(genesisPath)
			if err != nil {
				return f.Fail("read genesis", err, nil)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return f.Reject("create ledger directory", err)
			}
			db, err := ledger.Open(ledger.PathIn(dir))
			if err != nil {
				return f.Fail("open ledger", err, nil)
			}
			defer db.Close()

			runID := ledger.UUIDv7Generator{}.Generate()
			w, err := db.Init(cmd.Context(), cs, runID)
			if err != nil {
				return f.Fail("init ledger", err, nil)
			}
			rootOpts.logger().Info("ledger initialized", "db", db.Path(), "run_id", runID, "waypoint", w.String())

			result := LedgerInitResult{DB: db.Path(), RunID: runID, Waypoint: w.String()}
			return f.Success(result, func(w io.Writer) {
				fmt.Fprintf(w, "Ledger initialized at %s\n", result.DB)
				fmt.Fprintf(w, "  run:      %s\n", result.RunID)
				fmt.Fprintf(w, "  waypoint: %s\n", result.Waypoint)
			})
		},
	}

	cmd.Flags().StringVar(&genesisPath, "genesis", "genesis.json", "genesis artifact")
	return cmd
}

func newLedgerWaypointCommand(rootOpts *RootOptions) *cobra.Command {
	var version int64

	cmd := &cobra.Command{
		Use:   "waypoint <db-dir>",
		Short: "Print the waypoint of a committed version",
		Long: `Print "<version>:<state root>" for the latest version, or for --version.
The ledger is opened read-only.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			db, err := ledger.OpenReadOnly(ledger.PathIn(args[0]))
			if err != nil {
				return f.Fail("open ledger", err, nil)
			}
			defer db.Close()

			v, err := versionOrLatest(cmd, db, version)
			if err != nil {
				return f.Fail("read ledger", err, nil)
			}
			w, err := db.WaypointAt(cmd.Context(), v)
			if err != nil {
				return f.Fail("derive waypoint", err, nil)
			}
			return f.Success(map[string]any{"version": w.Version, "waypoint": w.String()}, func(out io.Writer) {
				fmt.Fprintln(out, w.String())
			})
		},
	}

	cmd.Flags().Int64Var(&version, "version", -1, "ledger version (default latest)")
	return cmd
}

func newLedgerLogCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "log <db-dir>",
		Short:         "List the runs committed to a ledger",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			db, err := ledger.OpenReadOnly(ledger.PathIn(args[0]))
			if err != nil {
				return f.Fail("open ledger", err, nil)
			}
			defer db.Close()

			entries, err := db.CommitLog(cmd.Context())
			if err != nil {
				return f.Fail("read commit log", err, nil)
			}
			return f.Success(entries, func(w io.Writer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%d\t%-8s\t%s\t%s\n", e.Version, e.Kind, e.RunID, e.CommittedAt)
				}
			})
		},
	}
}

func newLedgerEventsCommand(rootOpts *RootOptions) *cobra.Command {
	var version int64

	cmd := &cobra.Command{
		Use:           "events <db-dir>",
		Short:         "List the events a version emitted",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			db, err := ledger.OpenReadOnly(ledger.PathIn(args[0]))
			if err != nil {
				return f.Fail("open ledger", err, nil)
			}
			defer db.Close()

			v, err := versionOrLatest(cmd, db, version)
			if err != nil {
				return f.Fail("read ledger", err, nil)
			}
			events, err := db.Events(cmd.Context(), v)
			if err != nil {
				return f.Fail("read events", err, nil)
			}
			out := make([]LedgerEvent, len(events))
			for i, ev := range events {
				out[i] = LedgerEvent{Stream: ev.Key, Seq: ev.Seq, Type: ev.Type, Data: ev.Data}
			}
			return f.Success(out, func(w io.Writer) {
				for _, ev := range out {
					fmt.Fprintf(w, "%s #%d (%s)\n", ev.Type, ev.Seq, ev.Stream)
				}
			})
		},
	}

	cmd.Flags().Int64Var(&version, "version", -1, "ledger version (default latest)")
	return cmd
}

// versionOrLatest returns version, or the latest version when it is negative.
func versionOrLatest(cmd *cobra.Command, db *ledger.DB, version int64) (uint64, error) {
	if version >= 0 {
		return uint64(version), nil
	}
	return db.LatestVersion(cmd.Context())
}
