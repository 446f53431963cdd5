package genesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/framework"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/legacy"
	"github.com/roach88/reforge/internal/natives"
	"github.com/roach88/reforge/internal/vm"
)

// Session ids of the two genesis phases.
var (
	initSessionID    = vm.SessionIDAt(0)
	publishSessionID = vm.SessionIDAt(1)
)

// Assembler drives an engine through genesis.
type Assembler struct {
	engine vm.Engine
	logger *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = l
	}
}

// NewAssembler returns an assembler over engine.
func NewAssembler(engine vm.Engine, opts ...Option) *Assembler {
	a := &Assembler{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MigrationGenesis builds genesis with DefaultConfig(chain) and the
// reference engine.
func MigrationGenesis(
	ctx context.Context,
	chain NamedChain,
	validators []Validator,
	records []legacy.RecoveryRecord,
	bundle *framework.Bundle,
	supply SupplySettings,
) (*changeset.ChangeSet, error) {
	cfg := DefaultConfig(chain)
	cfg.Validators = validators
	cfg.Supply = supply
	return NewAssembler(vm.New(natives.Standard())).Build(ctx, cfg, records, bundle)
}

// Build assembles the genesis change set. records may be empty. A
// failure at any step aborts the run and nothing is returned.
func (a *Assembler) Build(
	ctx context.Context,
	cfg Config,
	records []legacy.RecoveryRecord,
	bundle *framework.Bundle,
) (*changeset.ChangeSet, error) {
	// Step 1: validate before anything executes.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if bundle == nil {
		return nil, invalidConfig("framework bundle is required")
	}
	if err := bundle.Validate(); err != nil {
		return nil, &Error{Code: CodeInvalidConfig, Message: "framework bundle", Err: err}
	}
	modules := bundle.CodeAndModules()

	// Step 2: a view holding nothing but framework code.
	view := vm.NewMapView()
	if err := view.AddModules(modules); err != nil {
		return nil, fmt.Errorf("seed genesis view: %w", err)
	}
	session := a.engine.NewSession(view, initSessionID)

	// Steps 3 and 4.
	if err := a.initializeChain(ctx, session, cfg); err != nil {
		return nil, err
	}

	// Step 5.
	migrated := 0
	if len(records) > 0 {
		n, err := a.migrateAccounts(ctx, session, cfg.Supply, records)
		if err != nil {
			return nil, err
		}
		migrated = n
	}

	// Step 6 runs after migration so owners resolve through the
	// originating-address table it filled.
	if err := a.registerValidators(ctx, session, cfg.Validators); err != nil {
		return nil, err
	}

	// Step 7: the reconfiguration event is the last action.
	if err := session.Execute(ctx, natives.GenesisSetEnd, nil); err != nil {
		return nil, fmt.Errorf("set genesis end: %w", err)
	}
	if err := session.Execute(ctx, natives.ReconfigureGenesis, nil); err != nil {
		return nil, fmt.Errorf("emit genesis reconfiguration: %w", err)
	}

	// Step 8.
	initCS, err := session.Finish()
	if err != nil {
		return nil, fmt.Errorf("finish initialization session: %w", err)
	}
	if initCS.HasDeltas() {
		return nil, &Error{
			Code:    CodeUnexpectedDelta,
			Message: fmt.Sprintf("initialization phase left %d unresolved deltas", len(initCS.DeltaKeys())),
		}
	}

	// Step 9: fresh, unseeded session with its own id.
	publish := a.engine.NewSession(vm.NewMapView(), publishSessionID)
	if err := publish.PublishModuleBundle(modules, legacy.CoreAddress); err != nil {
		return nil, fmt.Errorf("publish framework: %w", err)
	}
	publishCS, err := publish.Finish()
	if err != nil {
		return nil, fmt.Errorf("finish publish session: %w", err)
	}

	// Step 10.
	combined, err := combine(initCS, publishCS)
	if err != nil {
		return nil, err
	}
	if err := VerifyGenesisWriteSet(combined.Events()); err != nil {
		return nil, err
	}
	if err := verifyWrites(combined, modules); err != nil {
		return nil, err
	}

	a.logger.Info("genesis assembled",
		"chain", string(cfg.Chain),
		"bundle", bundle.Name,
		"accounts", migrated,
		"validators", len(cfg.Validators),
		"writes", combined.Len(),
		"events", len(combined.Events()))
	return combined, nil
}

func combine(initCS, publishCS *changeset.ChangeSet) (*changeset.ChangeSet, error) {
	for _, cs := range []*changeset.ChangeSet{initCS, publishCS} {
		if n := cs.Deletions(); n > 0 {
			return nil, &Error{Code: CodeUnexpectedDeletion, Message: fmt.Sprintf("genesis phase deletes %d keys", n)}
		}
	}
	combined, err := changeset.Squash(initCS, publishCS)
	if errors.Is(err, changeset.ErrUnsupportedDeletionMerge) {
		return nil, &Error{Code: CodeUnexpectedDeletion, Message: "combine genesis phases", Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("combine genesis phases: %w", err)
	}
	if n := combined.Deletions(); n > 0 {
		return nil, &Error{Code: CodeUnexpectedDeletion, Message: fmt.Sprintf("genesis deletes %d keys", n)}
	}
	if combined.HasDeltas() {
		return nil, &Error{Code: CodeUnexpectedDelta, Message: "combined genesis has unresolved deltas"}
	}
	return combined, nil
}

// initializeChain runs core initialization, then features, currency and
// governance.
func (a *Assembler) initializeChain(ctx context.Context, s vm.Session, cfg Config) error {
	var enc encoder

	gasEntries := make(ir.Array, len(cfg.GasSchedule.Entries))
	for i, e := range cfg.GasSchedule.Entries {
		gasEntries[i] = ir.Object{
			"name":  ir.String(e.Name),
			"value": enc.uint("gas_schedule."+e.Name, e.Value),
		}
	}
	initArgs := ir.Object{
		"chain_id": ir.Int(cfg.ChainID),
		"consensus_config": ir.Object{
			"back_pressure_limit":    enc.uint("consensus.back_pressure_limit", cfg.Consensus.BackPressureLimit),
			"decoupled_execution":    ir.Bool(cfg.Consensus.DecoupledExecution),
			"exclude_round":          enc.uint("consensus.exclude_round", cfg.Consensus.ExcludeRound),
			"proposer_election_type": ir.String(cfg.Consensus.ProposerElectionType),
		},
		"execution_config": ir.Object{
			"block_gas_limit":           enc.uint("execution.block_gas_limit", cfg.Execution.BlockGasLimit),
			"transaction_shuffler_type": ir.String(cfg.Execution.TransactionShufflerType),
		},
		"gas_schedule": ir.Object{
			"entries":         gasEntries,
			"feature_version": enc.uint("gas_schedule.feature_version", cfg.GasSchedule.FeatureVersion),
		},
		"epoch_interval_microsecs":       enc.uint("epoch_duration_secs", cfg.EpochDurationSecs*1_000_000),
		"min_stake":                      enc.uint("min_stake", cfg.MinStake),
		"max_stake":                      enc.uint("max_stake", cfg.MaxStake),
		"recurring_lockup_duration_secs": enc.uint("recurring_lockup_duration_secs", cfg.RecurringLockupDurationSecs),
		"rewards_apy_percentage":         enc.uint("rewards_apy_percentage", cfg.RewardsAPYPercentage),
		"voting_power_increase_limit":    enc.uint("voting_power_increase_limit", cfg.VotingPowerIncreaseLimit),
		"allow_validator_set_change":     ir.Bool(cfg.AllowNewValidators),
	}

	features := make(ir.Array, len(cfg.Features))
	for i, f := range cfg.Features {
		features[i] = enc.uint("features", f)
	}
	coinArgs := ir.Object{
		"name":     ir.String(cfg.Coin.Name),
		"symbol":   ir.String(cfg.Coin.Symbol),
		"decimals": enc.uint("coin.decimals", cfg.Coin.Decimals),
	}
	govArgs := ir.Object{
		"min_voting_threshold":    enc.uint("min_voting_threshold", cfg.MinVotingThreshold),
		"required_proposer_stake": enc.uint("required_proposer_stake", cfg.RequiredProposerStake),
		"voting_duration_secs":    enc.uint("voting_duration_secs", cfg.VotingDurationSecs),
	}
	if enc.err != nil {
		return enc.err
	}

	steps := []struct {
		fn   vm.FunctionID
		args ir.Object
	}{
		{natives.GenesisInitialize, initArgs},
		{natives.FeaturesSet, ir.Object{"enable": features}},
		{natives.CoinInitialize, coinArgs},
		{natives.GovernanceInitialize, govArgs},
	}
	for _, step := range steps {
		if err := s.Execute(ctx, step.fn, step.args); err != nil {
			return fmt.Errorf("genesis step %s: %w", step.fn, err)
		}
		a.logger.Debug("genesis step complete", "function", step.fn.String())
	}
	return nil
}

func (a *Assembler) registerValidators(ctx context.Context, s vm.Session, validators []Validator) error {
	for i, v := range validators {
		netAddrs := make(ir.Array, len(v.NetworkAddresses))
		for j, na := range v.NetworkAddresses {
			netAddrs[j] = ir.String(na)
		}
		stake, err := ir.Uint(v.Stake)
		if err != nil {
			return invalidConfig("validator %d: stake: %v", i, err)
		}
		args := ir.Object{
			"owner_address":      natives.Address(v.OwnerAddress),
			"authentication_key": natives.AuthKey(v.AuthKey),
			"consensus_pubkey":   ir.String(v.ConsensusPubkey),
			"network_addresses":  netAddrs,
			"stake":              stake,
		}
		if v.OperatorAddress != nil {
			args["operator_address"] = natives.Address(*v.OperatorAddress)
		}
		if err := s.Execute(ctx, natives.StakeInitValidator, args); err != nil {
			return &Error{
				Code:    CodeValidatorRegistration,
				Message: fmt.Sprintf("register validator %d (owner %s)", i, v.OwnerAddress.Short()),
				Err:     err,
			}
		}
	}
	a.logger.Debug("validators registered", "count", len(validators))
	return nil
}

// encoder converts configuration integers to engine arguments, keeping
// the first out-of-range field as an error.
type encoder struct {
	err error
}

func (e *encoder) uint(field string, v uint64) ir.Int {
	n, err := ir.Uint(v)
	if err != nil && e.err == nil {
		e.err = invalidConfig("%s: %v", field, err)
	}
	return n
}
