package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/framework"
	"github.com/roach88/reforge/internal/genesis"
	"github.com/roach88/reforge/internal/ledger"
	"github.com/roach88/reforge/internal/legacy"
	"github.com/roach88/reforge/internal/natives"
	"github.com/roach88/reforge/internal/repair"
	"github.com/roach88/reforge/internal/rescue"
	"github.com/roach88/reforge/internal/testutil"
	"github.com/roach88/reforge/internal/vm"
)

// Harness executes scenarios.
type Harness struct {
	engine vm.Engine
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger. Defaults to discarding everything.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithEngine sets the execution engine. Defaults to the native engine
// over natives.Standard().
func WithEngine(e vm.Engine) Option {
	return func(h *Harness) { h.engine = e }
}

// New returns a harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}
	if h.engine == nil {
		h.engine = vm.New(natives.Standard(), vm.WithLogger(h.logger))
	}
	return h
}

// Run executes scenario with a default harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load and repair the snapshot, then apply the drop list
//  2. Build the configuration
//  3. Assemble genesis
//  4. Optionally commit genesis to a scratch ledger and run a rescue upgrade
//  5. Evaluate assertions
//
// An error is returned when the scenario cannot be executed at all;
// failed expectations are reported in the result.
func (h *Harness) Run(ctx context.Context, s *Scenario) (*Result, error) {
	result := NewResult()

	records, err := loadRecords(s)
	if err != nil {
		return nil, err
	}
	for _, a := range repair.FixSlowWallets(records) {
		result.Clamped = append(result.Clamped, a.String())
	}
	if len(s.Drop) > 0 {
		drop := make([]legacy.Address, 0, len(s.Drop))
		for _, a := range s.Drop {
			addr, err := legacy.ParseAddress(a)
			if err != nil {
				return nil, fmt.Errorf("drop list: %w", err)
			}
			drop = append(drop, addr)
		}
		var dropped []legacy.Address
		records, dropped = repair.DropAccounts(records, drop)
		for _, a := range dropped {
			result.Dropped = append(result.Dropped, a.String())
		}
	}

	cfg, err := buildConfig(s)
	if err != nil {
		return nil, err
	}

	revision := s.Framework
	if revision == 0 {
		revision = 1
	}
	assembler := genesis.NewAssembler(h.engine, genesis.WithLogger(h.logger))
	cs, err := assembler.Build(ctx, cfg, records, framework.Head(revision))

	switch {
	case s.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("expected genesis to fail with %s, it succeeded", s.ExpectError))
	case s.ExpectError != "" && !genesis.IsCode(err, genesis.Code(s.ExpectError)):
		result.AddError(fmt.Sprintf("expected genesis to fail with %s, got: %v", s.ExpectError, err))
	case s.ExpectError == "" && err != nil:
		return nil, fmt.Errorf("genesis: %w", err)
	case err == nil:
		if err := h.record(ctx, s, cs, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) record(ctx context.Context, s *Scenario, cs *changeset.ChangeSet, result *Result) error {
	summary, err := genesis.Summarize(cs)
	if err != nil {
		return err
	}
	result.Summary = &summary
	result.ChangeSet = cs
	result.addEvents("genesis", cs.Events())

	if s.Rescue == nil {
		return nil
	}
	return h.rescue(ctx, s.Rescue, cs, result)
}

// rescue commits genesis to a scratch ledger, then upgrades the framework
// with a dry run followed by a verified commit.
func (h *Harness) rescue(ctx context.Context, step *RescueStep, cs *changeset.ChangeSet, result *Result) error {
	dir, err := os.MkdirTemp("", "reforge-harness-*")
	if err != nil {
		return fmt.Errorf("rescue: %w", err)
	}
	defer os.RemoveAll(dir)

	clock := testutil.NewDeterministicClock()
	db, err := ledger.Open(ledger.PathIn(dir))
	if err != nil {
		return fmt.Errorf("rescue: %w", err)
	}
	_, err = db.Init(ctx, cs, "harness-genesis", ledger.WithClock(clock.Now))
	db.Close()
	if err != nil {
		return fmt.Errorf("rescue: %w", err)
	}

	opts := []rescue.Option{
		rescue.WithEngine(h.engine),
		rescue.WithLogger(h.logger),
		rescue.WithRunIDs(testutil.NewFixedRunIDGenerator("harness-rescue")),
	}
	payload, err := rescue.StdlibPayload(ctx, ledger.PathIn(dir), framework.Head(step.Framework), opts...)
	if err != nil {
		return fmt.Errorf("rescue: %w", err)
	}
	file, err := payload.WritePayload(dir)
	if err != nil {
		return fmt.Errorf("rescue: %w", err)
	}

	dry, err := rescue.BootstrapOpts{DBDir: dir, PayloadFile: file}.Run(ctx, opts...)
	if err != nil {
		return fmt.Errorf("rescue dry run: %w", err)
	}
	waypoint := dry.Waypoint
	committed, err := rescue.BootstrapOpts{
		DBDir:            dir,
		PayloadFile:      file,
		WaypointToVerify: &waypoint,
		Commit:           true,
	}.Run(ctx, opts...)
	if err != nil {
		return fmt.Errorf("rescue commit: %w", err)
	}

	version := committed.Waypoint.Version
	result.Waypoint = committed.Waypoint.String()
	result.LedgerVersion = &version
	result.addEvents("rescue", payload.ChangeSet.Events())

	combined := cs.Clone()
	if err := combined.Absorb(payload.ChangeSet); err != nil {
		return fmt.Errorf("rescue: %w", err)
	}
	result.ChangeSet = combined
	return nil
}

func loadRecords(s *Scenario) ([]legacy.RecoveryRecord, error) {
	if s.Snapshot != "" {
		return legacy.ReadRecoveryFile(s.Snapshot)
	}
	if len(s.Records) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(s.Records)
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}
	return legacy.ParseRecovery(data)
}

func buildConfig(s *Scenario) (genesis.Config, error) {
	var cfg genesis.Config
	if s.Config != "" {
		loaded, err := genesis.LoadConfig(s.Config)
		if err != nil {
			return genesis.Config{}, err
		}
		cfg = loaded
	} else {
		chain := genesis.Testing
		if s.Chain != "" {
			parsed, err := genesis.ParseNamedChain(s.Chain)
			if err != nil {
				return genesis.Config{}, err
			}
			chain = parsed
		}
		cfg = genesis.DefaultConfig(chain)
	}

	if len(s.Validators) > 0 {
		cfg.Validators = nil
		for i, v := range s.Validators {
			val, err := v.toValidator()
			if err != nil {
				return genesis.Config{}, fmt.Errorf("validators[%d]: %w", i, err)
			}
			cfg.Validators = append(cfg.Validators, val)
		}
	}
	if s.Supply != nil {
		cfg.Supply = genesis.SupplySettings{
			TargetSupply: s.Supply.TargetSupply,
			EscrowPct:    s.Supply.EscrowPct,
		}
	}
	return cfg, nil
}

func (v ValidatorStep) toValidator() (genesis.Validator, error) {
	owner, err := legacy.ParseAddress(v.Owner)
	if err != nil {
		return genesis.Validator{}, err
	}
	val := genesis.NewValidator(owner, v.Stake)
	if v.Operator != "" {
		op, err := legacy.ParseAddress(v.Operator)
		if err != nil {
			return genesis.Validator{}, err
		}
		val.OperatorAddress = &op
	}
	if v.AuthKey != "" {
		if err := val.AuthKey.UnmarshalText([]byte(v.AuthKey)); err != nil {
			return genesis.Validator{}, err
		}
	}
	if v.ConsensusPubkey != "" {
		val.ConsensusPubkey = v.ConsensusPubkey
	}
	if len(v.NetworkAddresses) > 0 {
		val.NetworkAddresses = v.NetworkAddresses
	}
	return val, nil
}
