package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/reforge/internal/legacy"
	"github.com/roach88/reforge/internal/repair"
)

// RecoveryCheckResult is the output of recovery check.
type RecoveryCheckResult struct {
	Snapshot string           `json:"snapshot"`
	Stats    legacy.Stats     `json:"stats"`
	Clamped  []legacy.Address `json:"clamped"`
}

// NewRecoveryCommand groups the snapshot inspection and repair commands.
func NewRecoveryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recovery",
		Short: "Inspect and repair a legacy recovery snapshot",
	}
	cmd.AddCommand(newRecoveryCheckCommand(rootOpts))
	cmd.AddCommand(newRecoveryDropCommand(rootOpts))
	return cmd
}

func newRecoveryCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <snapshot>",
		Short: "Parse a snapshot and report what migration would repair",
		Long: `Parse a recovery snapshot and print its totals along with the slow
wallets that would be clamped. The snapshot file is not modified.

Exit codes:
  0 - Snapshot parsed
  2 - Snapshot missing or malformed`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			records, err := legacy.ReadRecoveryFile(args[0])
			if err != nil {
				return f.Fail("read snapshot", err, nil)
			}
			stats, err := legacy.Summarize(records)
			if err != nil {
				return f.Fail("summarize snapshot", err, nil)
			}
			clamped := nonNil(repair.FixSlowWallets(records))
			rootOpts.logger().Debug("snapshot checked", "path", args[0], "records", stats.Records)

			result := RecoveryCheckResult{Snapshot: args[0], Stats: stats, Clamped: clamped}
			return f.Success(result, func(w io.Writer) {
				fmt.Fprintf(w, "Snapshot: %s\n", result.Snapshot)
				fmt.Fprintf(w, "  records:       %d (%d addressable, %d tombstones)\n",
					stats.Records, stats.Addressable, stats.Tombstones)
				fmt.Fprintf(w, "  total balance: %d\n", stats.TotalBalance)
				fmt.Fprintf(w, "  slow wallets:  %d (%d locked)\n", stats.SlowWallets, stats.SlowLocked)
				writeAddresses(w, "would clamp", clamped)
			})
		},
	}
}

func newRecoveryDropCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <snapshot> <drop-list>",
		Short: "Tombstone the accounts on a drop list",
		Long: `Clamp slow wallets, tombstone every account on the drop list and write
the full sanitized snapshot next to the original with a "_sanitized" suffix.

The drop list is a JSON array or YAML sequence of addresses. A drop list
that cannot be read or parsed aborts the command.

Exit codes:
  0 - Sanitized snapshot written
  2 - Snapshot or drop list missing or malformed`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			_, report, err := repair.Recover(args[0], args[1])
			if err != nil {
				return f.Fail("repair snapshot", err, nil)
			}
			rootOpts.logger().Info("snapshot sanitized", "path", report.SanitizedPath, "dropped", len(report.Dropped))

			return f.Success(report, func(w io.Writer) {
				fmt.Fprintf(w, "Sanitized snapshot: %s\n", report.SanitizedPath)
				writeAddresses(w, "clamped", report.Clamped)
				writeAddresses(w, "dropped", report.Dropped)
			})
		},
	}
}

func writeAddresses(w io.Writer, label string, addrs []legacy.Address) {
	fmt.Fprintf(w, "  %s: %d\n", label, len(addrs))
	for _, a := range addrs {
		fmt.Fprintf(w, "    %s\n", a.Short())
	}
}
