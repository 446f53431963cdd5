package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reforge/internal/framework"
	"github.com/roach88/reforge/internal/genesis"
	"github.com/roach88/reforge/internal/legacy"
	"github.com/roach88/reforge/internal/natives"
	"github.com/roach88/reforge/internal/repair"
	"github.com/roach88/reforge/internal/vm"
)

// GenesisBuildOptions holds flags for genesis build.
type GenesisBuildOptions struct {
	*RootOptions
	Snapshot     string
	DropList     string
	Config       string
	Validators   []string // owner=stake
	Framework    string   // .mrb bundle path
	FrameworkRev int
	TargetSupply uint64
	EscrowPct    uint64
	Output       string
}

// GenesisBuildResult is the output of genesis build.
type GenesisBuildResult struct {
	Artifact string           `json:"artifact"`
	Summary  genesis.Summary  `json:"summary"`
	Clamped  []legacy.Address `json:"clamped"`
	Dropped  []legacy.Address `json:"dropped"`
}

// NewGenesisCommand groups the genesis commands.
func NewGenesisCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "Build and verify genesis artifacts",
	}
	cmd.AddCommand(newGenesisBuildCommand(rootOpts))
	cmd.AddCommand(newGenesisVerifyCommand(rootOpts))
	return cmd
}

func newGenesisBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenesisBuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble a genesis artifact from a recovery snapshot",
		Long: `Assemble a genesis change set and write it as canonical JSON.

Chain parameters come from a CUE file (--config) or from the defaults of
--chain. Validators given with --validator replace those of the config.

Exit codes:
  0 - Artifact written
  1 - Migration or verification failed; nothing was written
  2 - Command error (missing input, invalid config)

Examples:
  reforge genesis build --config chain.cue --snapshot recovery.json -o genesis.json
  reforge genesis build --chain testing --validator 0xf1=100 -o genesis.json
  reforge genesis build --config chain.cue --snapshot recovery.json --drop drop.yaml -o genesis.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenesisBuild(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "legacy recovery snapshot (JSON)")
	cmd.Flags().StringVar(&opts.DropList, "drop", "", "drop list of accounts to tombstone")
	cmd.Flags().StringVar(&opts.Config, "config", "", "genesis configuration (CUE)")
	cmd.Flags().StringArrayVar(&opts.Validators, "validator", nil, "validator as owner=stake (repeatable)")
	cmd.Flags().StringVar(&opts.Framework, "framework", "", "framework bundle (.mrb)")
	cmd.Flags().IntVar(&opts.FrameworkRev, "framework-rev", 1, "in-tree framework revision when --framework is not set")
	cmd.Flags().Uint64Var(&opts.TargetSupply, "target-supply", 0, "rescale legacy balances to this total")
	cmd.Flags().Uint64Var(&opts.EscrowPct, "escrow-pct", 0, "percent of the target supply held in escrow")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "genesis.json", "artifact output path")

	return cmd
}

func runGenesisBuild(cmd *cobra.Command, opts *GenesisBuildOptions) error {
	f := opts.formatter(cmd)
	logger := opts.logger()

	cfg, err := opts.config(cmd)
	if err != nil {
		return err
	}
	bundle, err := loadBundle(opts.Framework, opts.FrameworkRev)
	if err != nil {
		return f.Reject("load framework", err)
	}

	var (
		records []legacy.RecoveryRecord
		report  repair.Report
	)
	if opts.Snapshot != "" {
		records, report, err = repair.Recover(opts.Snapshot, opts.DropList)
		if err != nil {
			return f.Fail("recover snapshot", err, nil)
		}
	} else if opts.DropList != "" {
		return NewExitError(ExitCommandError, "--drop requires --snapshot")
	}

	assembler := genesis.NewAssembler(vm.New(natives.Standard()), genesis.WithLogger(logger))
	cs, err := assembler.Build(cmd.Context(), cfg, records, bundle)
	if err != nil {
		return f.Fail("build genesis", err, nil)
	}
	if err := genesis.WriteArtifact(opts.Output, cs); err != nil {
		return f.Fail("write artifact", err, nil)
	}
	summary, err := genesis.Summarize(cs)
	if err != nil {
		return f.Fail("summarize artifact", err, nil)
	}
	logger.Info("genesis written", "path", opts.Output, "hash", summary.Hash)

	result := GenesisBuildResult{
		Artifact: opts.Output,
		Summary:  summary,
		Clamped:  nonNil(report.Clamped),
		Dropped:  nonNil(report.Dropped),
	}
	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Genesis written to %s\n", result.Artifact)
		writeSummary(w, summary)
		writeAddresses(w, "clamped", result.Clamped)
		writeAddresses(w, "dropped", result.Dropped)
	})
}

// config resolves the genesis configuration from flags.
func (o *GenesisBuildOptions) config(cmd *cobra.Command) (genesis.Config, error) {
	var cfg genesis.Config
	switch {
	case o.Config != "":
		loaded, err := genesis.LoadConfig(o.Config)
		if err != nil {
			return genesis.Config{}, o.formatter(cmd).Fail("load config", err, nil)
		}
		cfg = loaded
	case o.Chain != "":
		chain, err := genesis.ParseNamedChain(o.Chain)
		if err != nil {
			return genesis.Config{}, WrapExitError(ExitCommandError, "invalid chain", err)
		}
		cfg = genesis.DefaultConfig(chain)
	default:
		return genesis.Config{}, NewExitError(ExitCommandError, "one of --config or --chain is required")
	}

	if len(o.Validators) > 0 {
		cfg.Validators = nil
		for _, s := range o.Validators {
			v, err := parseValidatorFlag(s)
			if err != nil {
				return genesis.Config{}, WrapExitError(ExitCommandError, "invalid --validator", err)
			}
			cfg.Validators = append(cfg.Validators, v)
		}
	}
	if cmd.Flags().Changed("target-supply") {
		cfg.Supply.TargetSupply = o.TargetSupply
	}
	if cmd.Flags().Changed("escrow-pct") {
		cfg.Supply.EscrowPct = o.EscrowPct
	}
	return cfg, nil
}

// parseValidatorFlag parses "owner=stake".
func parseValidatorFlag(s string) (genesis.Validator, error) {
	owner, stake, ok := strings.Cut(s, "=")
	if !ok {
		return genesis.Validator{}, fmt.Errorf("%q: want owner=stake", s)
	}
	addr, err := legacy.ParseAddress(owner)
	if err != nil {
		return genesis.Validator{}, err
	}
	n, err := strconv.ParseUint(stake, 10, 64)
	if err != nil {
		return genesis.Validator{}, fmt.Errorf("%q: stake: %w", s, err)
	}
	return genesis.NewValidator(addr, n), nil
}

// loadBundle reads path when set, otherwise returns the in-tree
// framework at rev.
func loadBundle(path string, rev int) (*framework.Bundle, error) {
	if path != "" {
		return framework.Load(path)
	}
	if rev < 1 {
		return nil, fmt.Errorf("framework revision must be positive, got %d", rev)
	}
	return framework.Head(rev), nil
}

func newGenesisVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <artifact>",
		Short: "Check a genesis artifact's invariants",
		Long: `Decode a genesis artifact and check it holds no deltas or deletions and
ends with exactly one GenesisEndEvent followed by the epoch 1
NewEpochEvent.

Exit codes:
  0 - Artifact is valid
  1 - Artifact is invalid
  2 - Artifact not found`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			cs, err := genesis.ReadArtifact(args[0])
			if err != nil {
				return f.Fail("verify genesis", err, map[string]string{"artifact": args[0]})
			}
			summary, err := genesis.Summarize(cs)
			if err != nil {
				return f.Fail("summarize artifact", err, nil)
			}
			return f.Success(summary, func(w io.Writer) {
				fmt.Fprintf(w, "✓ %s is a valid genesis\n", args[0])
				writeSummary(w, summary)
			})
		},
	}
}

func writeSummary(w io.Writer, s genesis.Summary) {
	fmt.Fprintf(w, "  hash:       %s\n", s.Hash)
	fmt.Fprintf(w, "  writes:     %d\n", s.Writes)
	fmt.Fprintf(w, "  events:     %d\n", s.Events)
	fmt.Fprintf(w, "  accounts:   %d\n", s.Accounts)
	fmt.Fprintf(w, "  modules:    %d\n", s.Modules)
	fmt.Fprintf(w, "  validators: %d\n", s.Validators)
}

func nonNil(addrs []legacy.Address) []legacy.Address {
	if addrs == nil {
		return []legacy.Address{}
	}
	return addrs
}
