package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/reforge/internal/ledger"
	"github.com/roach88/reforge/internal/rescue"
)

// RescuePayloadResult describes one payload written by rescue compute.
type RescuePayloadResult struct {
	DBDir       string `json:"db_dir"`
	Payload     string `json:"payload"`
	BaseVersion uint64 `json:"base_version"`
	Writes      int    `json:"writes"`
	Events      int    `json:"events"`
}

// RescueBootstrapResult is the output of rescue bootstrap.
type RescueBootstrapResult struct {
	Waypoint  string `json:"waypoint"`
	State     string `json:"state"`
	Committed bool   `json:"committed"`
}

// NewRescueCommand groups the rescue commands.
func NewRescueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rescue",
		Short: "Repair a halted chain with an out-of-band change set",
	}
	cmd.AddCommand(newRescueComputeCommand(rootOpts))
	cmd.AddCommand(newRescueBootstrapCommand(rootOpts))
	return cmd
}

func newRescueComputeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		bundlePath string
		rev        int
	)

	cmd := &cobra.Command{
		Use:   "compute <db-dir>...",
		Short: "Compute a framework upgrade payload against each ledger",
		Long: `Publish a framework bundle and start a new epoch in a session over the
latest version of each ledger, then write the resulting payload to
<db-dir>/rescue.blob. Ledgers are opened read-only and are computed
concurrently.

Examples:
  reforge rescue compute ./db --framework-rev 2
  reforge rescue compute ./node1 ./node2 --framework head.mrb`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			bundle, err := loadBundle(bundlePath, rev)
			if err != nil {
				return f.Reject("load framework", err)
			}
			paths := make([]string, len(args))
			for i, dir := range args {
				paths[i] = ledger.PathIn(dir)
			}

			payloads, err := rescue.ComputeAll(cmd.Context(), paths, rescue.PublishFramework(bundle),
				rescue.WithLogger(rootOpts.logger()))
			if err != nil {
				return f.Fail("compute payload", err, nil)
			}

			results := make([]RescuePayloadResult, len(payloads))
			for i, p := range payloads {
				file, err := p.WritePayload(args[i])
				if err != nil {
					return f.Fail("write payload", err, nil)
				}
				results[i] = RescuePayloadResult{
					DBDir:       args[i],
					Payload:     file,
					BaseVersion: p.BaseVersion,
					Writes:      p.ChangeSet.Len(),
					Events:      len(p.ChangeSet.Events()),
				}
			}
			return f.Success(results, func(w io.Writer) {
				for _, r := range results {
					fmt.Fprintf(w, "Payload written to %s (base version %d, %d writes, %d events)\n",
						r.Payload, r.BaseVersion, r.Writes, r.Events)
				}
			})
		},
	}

	cmd.Flags().StringVar(&bundlePath, "framework", "", "framework bundle (.mrb)")
	cmd.Flags().IntVar(&rev, "framework-rev", 1, "in-tree framework revision when --framework is not set")
	return cmd
}

func newRescueBootstrapCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		opts     rescue.BootstrapOpts
		waypoint string
	)

	cmd := &cobra.Command{
		Use:   "bootstrap <db-dir>",
		Short: "Derive, verify and optionally commit a rescue payload",
		Long: `Derive the waypoint the payload would produce on top of the ledger's
latest version. With --waypoint the derived waypoint must match. With
--commit the payload is applied as the next version; without it the ledger
is opened read-only and nothing is written.

Exit codes:
  0 - Waypoint derived (and committed with --commit)
  1 - Waypoint mismatch or the ledger moved
  2 - Command error (missing payload, malformed waypoint)

Examples:
  reforge rescue bootstrap ./db
  reforge rescue bootstrap ./db --waypoint 1:ab12... --commit`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			opts.DBDir = args[0]
			if opts.PayloadFile == "" {
				opts.PayloadFile = filepath.Join(args[0], rescue.PayloadFileName)
			}
			if waypoint != "" {
				w, err := ledger.ParseWaypoint(waypoint)
				if err != nil {
					return f.Reject("invalid --waypoint", err)
				}
				opts.WaypointToVerify = &w
			}

			res, err := opts.Run(cmd.Context(), rescue.WithLogger(rootOpts.logger()))
			if err != nil {
				var mismatch *rescue.WaypointMismatchError
				if errors.As(err, &mismatch) {
					return f.Fail("verify waypoint", err, map[string]string{
						"expected": mismatch.Expected.String(),
						"derived":  mismatch.Derived.String(),
					})
				}
				if errors.Is(err, rescue.ErrMalformedPayload) {
					return f.Reject("read payload", err)
				}
				return f.Fail("bootstrap", err, nil)
			}

			result := RescueBootstrapResult{
				Waypoint:  res.Waypoint.String(),
				State:     res.State.String(),
				Committed: res.Committed,
			}
			return f.Success(result, func(w io.Writer) {
				if result.Committed {
					fmt.Fprintf(w, "✓ Committed %s\n", result.Waypoint)
					return
				}
				fmt.Fprintf(w, "Waypoint: %s (%s, not committed)\n", result.Waypoint, result.State)
			})
		},
	}

	cmd.Flags().StringVar(&opts.PayloadFile, "payload", "", "payload file (default <db-dir>/rescue.blob)")
	cmd.Flags().StringVar(&waypoint, "waypoint", "", "waypoint the derived waypoint must equal")
	cmd.Flags().BoolVar(&opts.Commit, "commit", false, "apply the payload after verification")
	return cmd
}
