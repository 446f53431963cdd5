// Package natives implements the framework's entry functions as Go
// natives for the reference engine in package vm.
//
// Every function reads and writes state only through *vm.Call, so the
// engine's atomicity and layering rules apply unchanged.
package natives

import (
	"fmt"
	"slices"

	"github.com/roach88/reforge/internal/framework"
	"github.com/roach88/reforge/internal/vm"
)

// Registry maps function ids to natives. It implements vm.Registry.
type Registry struct {
	fns map[string]vm.NativeFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]vm.NativeFunc)}
}

// Register adds fn. Registering the same id twice is an error.
func (r *Registry) Register(id vm.FunctionID, fn vm.NativeFunc) error {
	key := id.String()
	if _, dup := r.fns[key]; dup {
		return fmt.Errorf("native %s already registered", key)
	}
	r.fns[key] = fn
	return nil
}

// Lookup implements vm.Registry.
func (r *Registry) Lookup(id vm.FunctionID) (vm.NativeFunc, bool) {
	fn, ok := r.fns[id.String()]
	return fn, ok
}

// Functions returns registered ids in sorted order.
func (r *Registry) Functions() []string {
	out := make([]string, 0, len(r.fns))
	for k := range r.fns {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Entry function ids.
var (
	GenesisInitialize      = vm.Fn(framework.ModGenesis, "initialize")
	GenesisSetEnd          = vm.Fn(framework.ModGenesis, "set_genesis_end")
	FeaturesSet            = vm.Fn(framework.ModFeatures, "set_features")
	CoinInitialize         = vm.Fn(framework.ModCoin, "initialize")
	CoinMintTo             = vm.Fn(framework.ModCoin, "mint_to")
	GovernanceInitialize   = vm.Fn(framework.ModGovernance, "initialize")
	AccountCreate          = vm.Fn(framework.ModAccount, "create_account")
	SlowWalletSet          = vm.Fn(framework.ModSlowWallet, "set")
	LegacyStoreResource    = vm.Fn(framework.ModLegacy, "store_resource")
	SupplyInitialize       = vm.Fn(framework.ModSupply, "initialize")
	StakeInitValidator     = vm.Fn(framework.ModStake, "initialize_validator")
	ReconfigureGenesis     = vm.Fn(framework.ModReconfiguration, "emit_genesis_reconfiguration_event")
	Reconfigure            = vm.Fn(framework.ModReconfiguration, "reconfigure")
	GasScheduleSet         = vm.Fn(framework.ModGasSchedule, "set")
	ConsensusConfigSet     = vm.Fn(framework.ModConsensusConfig, "set")
	ExecutionConfigSet     = vm.Fn(framework.ModExecutionConfig, "set")
	AccountRotateAuthKey   = vm.Fn(framework.ModAccount, "rotate_authentication_key")
	LegacyRemoveResource   = vm.Fn(framework.ModLegacy, "remove_resource")
	CoinBurnFrom           = vm.Fn(framework.ModCoin, "burn_from")
	StakeSetOperator       = vm.Fn(framework.ModStake, "set_operator")
	GovernanceSetThreshold = vm.Fn(framework.ModGovernance, "set_min_voting_threshold")
)

// Standard returns a registry with every function of the head framework.
func Standard() *Registry {
	r := NewRegistry()
	for id, fn := range map[vm.FunctionID]vm.NativeFunc{
		GenesisInitialize:      genesisInitialize,
		GenesisSetEnd:          genesisSetEnd,
		FeaturesSet:            featuresSet,
		CoinInitialize:         coinInitialize,
		CoinMintTo:             coinMintTo,
		CoinBurnFrom:           coinBurnFrom,
		GovernanceInitialize:   governanceInitialize,
		GovernanceSetThreshold: governanceSetThreshold,
		AccountCreate:          accountCreate,
		AccountRotateAuthKey:   accountRotateAuthKey,
		SlowWalletSet:          slowWalletSet,
		LegacyStoreResource:    legacyStoreResource,
		LegacyRemoveResource:   legacyRemoveResource,
		SupplyInitialize:       supplyInitialize,
		StakeInitValidator:     stakeInitializeValidator,
		StakeSetOperator:       stakeSetOperator,
		ReconfigureGenesis:     reconfigureGenesis,
		Reconfigure:            reconfigure,
		GasScheduleSet:         gasScheduleSet,
		ConsensusConfigSet:     consensusConfigSet,
		ExecutionConfigSet:     executionConfigSet,
	} {
		// ids are distinct map keys, so Register cannot fail here.
		_ = r.Register(id, fn)
	}
	return r
}

var _ vm.Registry = (*Registry)(nil)
