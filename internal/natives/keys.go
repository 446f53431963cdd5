package natives

import (
	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/legacy"
)

// Resource struct tags written by the natives.
const (
	TagAccount            = "account::Account"
	TagOriginatingAddress = "account::OriginatingAddress"
	TagChainID            = "chain_id::ChainId"
	TagCoinInfo           = "coin::CoinInfo"
	TagCoinStore          = "coin::CoinStore"
	TagConsensusConfig    = "consensus_config::ConsensusConfig"
	TagExecutionConfig    = "execution_config::ExecutionConfig"
	TagFeatures           = "features::Features"
	TagGasSchedule        = "gas_schedule::GasScheduleV2"
	TagGenesisState       = "genesis::GenesisState"
	TagGovernanceConfig   = "governance::GovernanceConfig"
	TagConfiguration      = "reconfiguration::Configuration"
	TagSlowWallet         = "slow_wallet::SlowWallet"
	TagStakingConfig      = "stake::StakingConfig"
	TagStakePool          = "stake::StakePool"
	TagValidatorConfig    = "stake::ValidatorConfig"
	TagValidatorSet       = "stake::ValidatorSet"
	TagSupply             = "supply::Supply"

	// LegacyPrefix prefixes the tag of every carried-over legacy resource.
	LegacyPrefix = "legacy::"
)

// Event streams. Each stream's type equals its name.
const (
	GenesisEndEvent = "0x1::genesis::GenesisEndEvent"
	NewEpochEvent   = "0x1::reconfiguration::NewEpochEvent"
)

func coreKey(tag string) changeset.StateKey {
	return changeset.ResourceKey(legacy.CoreAddress, tag)
}

// AccountKey is the key of addr's account resource.
func AccountKey(addr legacy.Address) changeset.StateKey {
	return changeset.ResourceKey(addr, TagAccount)
}

// CoinStoreKey is the key of addr's coin balance.
func CoinStoreKey(addr legacy.Address) changeset.StateKey {
	return changeset.ResourceKey(addr, TagCoinStore)
}

// SlowWalletKey is the key of addr's slow wallet.
func SlowWalletKey(addr legacy.Address) changeset.StateKey {
	return changeset.ResourceKey(addr, TagSlowWallet)
}

// LegacyResourceKey is the key of a carried-over resource.
func LegacyResourceKey(addr legacy.Address, name string) changeset.StateKey {
	return changeset.ResourceKey(addr, LegacyPrefix+name)
}

// StakePoolKey is the key of owner's stake pool.
func StakePoolKey(owner legacy.Address) changeset.StateKey {
	return changeset.ResourceKey(owner, TagStakePool)
}

// ValidatorConfigKey is the key of owner's validator config.
func ValidatorConfigKey(owner legacy.Address) changeset.StateKey {
	return changeset.ResourceKey(owner, TagValidatorConfig)
}

// Core resource keys.
var (
	ChainIDKey            = coreKey(TagChainID)
	CoinInfoKey           = coreKey(TagCoinInfo)
	ConfigurationKey      = coreKey(TagConfiguration)
	ConsensusConfigKey    = coreKey(TagConsensusConfig)
	ExecutionConfigKey    = coreKey(TagExecutionConfig)
	FeaturesKey           = coreKey(TagFeatures)
	GasScheduleKey        = coreKey(TagGasSchedule)
	GenesisStateKey       = coreKey(TagGenesisState)
	GovernanceConfigKey   = coreKey(TagGovernanceConfig)
	OriginatingAddressKey = coreKey(TagOriginatingAddress)
	StakingConfigKey      = coreKey(TagStakingConfig)
	SupplyKey             = coreKey(TagSupply)
	ValidatorSetKey       = coreKey(TagValidatorSet)
)
