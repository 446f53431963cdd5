package genesis

import (
	"fmt"
	"math"

	"github.com/roach88/reforge/internal/legacy"
)

// NamedChain selects chain-dependent defaults. It is passed explicitly to
// every entry point that needs it.
type NamedChain string

const (
	Mainnet NamedChain = "mainnet"
	Testnet NamedChain = "testnet"
	Devnet  NamedChain = "devnet"
	Testing NamedChain = "testing"
)

var chainIDs = map[NamedChain]uint8{
	Mainnet: 1,
	Testnet: 2,
	Devnet:  3,
	Testing: 4,
}

// ParseNamedChain parses a chain name.
func ParseNamedChain(s string) (NamedChain, error) {
	c := NamedChain(s)
	if _, ok := chainIDs[c]; !ok {
		return "", fmt.Errorf("unknown chain %q (want mainnet, testnet, devnet or testing)", s)
	}
	return c, nil
}

// ChainID returns the numeric id of a named chain, or 0 if unknown.
func (c NamedChain) ChainID() uint8 {
	return chainIDs[c]
}

// ConsensusConfig holds on-chain consensus parameters.
type ConsensusConfig struct {
	DecoupledExecution   bool   `json:"decoupled_execution"`
	BackPressureLimit    uint64 `json:"back_pressure_limit"`
	ExcludeRound         uint64 `json:"exclude_round"`
	ProposerElectionType string `json:"proposer_election_type"`
}

// ExecutionConfig holds on-chain execution parameters.
type ExecutionConfig struct {
	TransactionShufflerType string `json:"transaction_shuffler_type"`
	BlockGasLimit           uint64 `json:"block_gas_limit"`
}

// GasEntry is one named gas parameter.
type GasEntry struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

// GasSchedule is an ordered list of gas parameters.
type GasSchedule struct {
	FeatureVersion uint64     `json:"feature_version"`
	Entries        []GasEntry `json:"entries"`
}

// CoinSettings describes the native currency.
type CoinSettings struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint64 `json:"decimals"`
}

// Validator is one genesis validator.
type Validator struct {
	OwnerAddress     legacy.Address  `json:"owner_address"`
	OperatorAddress  *legacy.Address `json:"operator_address,omitempty"`
	AuthKey          legacy.AuthKey  `json:"auth_key"`
	ConsensusPubkey  string          `json:"consensus_pubkey"`
	NetworkAddresses []string        `json:"network_addresses"`
	Stake            uint64          `json:"stake"`
}

// NewValidator returns a validator owned by owner with the owner's
// derived auth key, a placeholder consensus key and a loopback network
// address.
func NewValidator(owner legacy.Address, stake uint64) Validator {
	return Validator{
		OwnerAddress:     owner,
		AuthKey:          legacy.AuthKey(owner),
		ConsensusPubkey:  "0x" + owner.String()[50:],
		NetworkAddresses: []string{"/ip4/127.0.0.1/tcp/6180"},
		Stake:            stake,
	}
}

// SupplySettings rescales legacy balances. A zero TargetSupply keeps
// balances as they are.
type SupplySettings struct {
	TargetSupply uint64 `json:"target_supply"`
	EscrowPct    uint64 `json:"escrow_pct"`
}

// Config is the immutable input of one genesis run.
type Config struct {
	Chain       NamedChain      `json:"chain"`
	ChainID     uint8           `json:"chain_id"`
	Consensus   ConsensusConfig `json:"consensus"`
	Execution   ExecutionConfig `json:"execution"`
	GasSchedule GasSchedule     `json:"gas_schedule"`
	Features    []uint64        `json:"features"`
	Coin        CoinSettings    `json:"coin"`

	AllowNewValidators          bool   `json:"allow_new_validators"`
	EpochDurationSecs           uint64 `json:"epoch_duration_secs"`
	MinStake                    uint64 `json:"min_stake"`
	MaxStake                    uint64 `json:"max_stake"`
	RecurringLockupDurationSecs uint64 `json:"recurring_lockup_duration_secs"`
	RequiredProposerStake       uint64 `json:"required_proposer_stake"`
	RewardsAPYPercentage        uint64 `json:"rewards_apy_percentage"`
	VotingDurationSecs          uint64 `json:"voting_duration_secs"`
	VotingPowerIncreaseLimit    uint64 `json:"voting_power_increase_limit"`
	MinVotingThreshold          uint64 `json:"min_voting_threshold"`

	Validators []Validator    `json:"validators"`
	Supply     SupplySettings `json:"supply"`
}

// DefaultConfig returns the standard parameters for chain, with no
// validators.
func DefaultConfig(chain NamedChain) Config {
	return Config{
		Chain:   chain,
		ChainID: chain.ChainID(),
		Consensus: ConsensusConfig{
			DecoupledExecution:   true,
			BackPressureLimit:    10,
			ExcludeRound:         40,
			ProposerElectionType: "leader_reputation",
		},
		Execution: ExecutionConfig{
			TransactionShufflerType: "sender_aware",
			BlockGasLimit:           35000,
		},
		GasSchedule: GasSchedule{
			FeatureVersion: 12,
			Entries: []GasEntry{
				{Name: "txn.min_transaction_gas_units", Value: 1_500_000},
				{Name: "txn.maximum_number_of_gas_units", Value: 2_000_000},
				{Name: "txn.gas_unit_scaling_factor", Value: 1_000_000},
				{Name: "txn.max_transaction_size_in_bytes", Value: 65536},
			},
		},
		Features: []uint64{1, 2, 3, 4, 5, 6, 8, 9},
		Coin: CoinSettings{
			Name:     "Libra",
			Symbol:   "LBR",
			Decimals: 6,
		},
		AllowNewValidators:          true,
		EpochDurationSecs:           86400,
		MinStake:                    0,
		MaxStake:                    math.MaxInt64,
		RecurringLockupDurationSecs: 86400,
		RequiredProposerStake:       0,
		RewardsAPYPercentage:        10,
		VotingDurationSecs:          43200,
		VotingPowerIncreaseLimit:    20,
		MinVotingThreshold:          0,
	}
}

// Validate checks internal consistency. The first violated constraint is
// returned as an *Error with CodeInvalidConfig.
func (c Config) Validate() error {
	if c.Chain.ChainID() == 0 {
		return invalidConfig("unknown chain %q", c.Chain)
	}
	if c.ChainID == 0 {
		return invalidConfig("chain_id must be non-zero")
	}
	if c.EpochDurationSecs == 0 {
		return invalidConfig("epoch_duration_secs must be positive")
	}
	if c.EpochDurationSecs > math.MaxInt64/1_000_000 {
		return invalidConfig("epoch_duration_secs %d is too large", c.EpochDurationSecs)
	}
	if c.MinStake > c.MaxStake {
		return invalidConfig("min_stake %d exceeds max_stake %d", c.MinStake, c.MaxStake)
	}
	if c.RequiredProposerStake < c.MinStake || c.RequiredProposerStake > c.MaxStake {
		return invalidConfig("required_proposer_stake %d outside [min_stake, max_stake]", c.RequiredProposerStake)
	}
	if c.RecurringLockupDurationSecs < c.EpochDurationSecs {
		return invalidConfig("recurring_lockup_duration_secs must be at least epoch_duration_secs")
	}
	if c.VotingDurationSecs == 0 || c.VotingDurationSecs >= c.RecurringLockupDurationSecs {
		return invalidConfig("voting_duration_secs must be positive and below recurring_lockup_duration_secs")
	}
	if c.RewardsAPYPercentage > 100 {
		return invalidConfig("rewards_apy_percentage %d exceeds 100", c.RewardsAPYPercentage)
	}
	if c.VotingPowerIncreaseLimit == 0 || c.VotingPowerIncreaseLimit > 50 {
		return invalidConfig("voting_power_increase_limit must be in 1..50, got %d", c.VotingPowerIncreaseLimit)
	}
	if c.Supply.EscrowPct > 100 {
		return invalidConfig("supply.escrow_pct %d exceeds 100", c.Supply.EscrowPct)
	}
	if c.Coin.Name == "" || c.Coin.Symbol == "" {
		return invalidConfig("coin name and symbol are required")
	}

	for name, v := range map[string]uint64{
		"max_stake":                 c.MaxStake,
		"min_voting_threshold":      c.MinVotingThreshold,
		"supply.target_supply":      c.Supply.TargetSupply,
		"execution.block_gas_limit": c.Execution.BlockGasLimit,
	} {
		if v > math.MaxInt64 {
			return invalidConfig("%s %d exceeds the largest representable value", name, v)
		}
	}

	seenGas := make(map[string]bool, len(c.GasSchedule.Entries))
	for _, e := range c.GasSchedule.Entries {
		if e.Name == "" {
			return invalidConfig("gas schedule entry with empty name")
		}
		if seenGas[e.Name] {
			return invalidConfig("duplicate gas schedule entry %q", e.Name)
		}
		if e.Value > math.MaxInt64 {
			return invalidConfig("gas schedule entry %q exceeds the largest representable value", e.Name)
		}
		seenGas[e.Name] = true
	}

	if len(c.Validators) == 0 {
		return invalidConfig("at least one validator is required")
	}
	owners := make(map[legacy.Address]bool, len(c.Validators))
	for i, v := range c.Validators {
		if owners[v.OwnerAddress] {
			return invalidConfig("validator %d: duplicate owner %s", i, v.OwnerAddress)
		}
		owners[v.OwnerAddress] = true
		if v.ConsensusPubkey == "" {
			return invalidConfig("validator %d: consensus_pubkey is required", i)
		}
		if v.Stake < c.MinStake || v.Stake > c.MaxStake {
			return invalidConfig("validator %d: stake %d outside [%d, %d]", i, v.Stake, c.MinStake, c.MaxStake)
		}
	}
	return nil
}
