package genesis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reforge/internal/legacy"
)

func TestParseNamedChain(t *testing.T) {
	c, err := ParseNamedChain("mainnet")
	require.NoError(t, err)
	assert.Equal(t, Mainnet, c)
	assert.Equal(t, uint8(1), c.ChainID())

	_, err = ParseNamedChain("moonnet")
	assert.Error(t, err)
}

func TestDefaultConfig_ValidOnceValidatorsAdded(t *testing.T) {
	for _, chain := range []NamedChain{Mainnet, Testnet, Devnet, Testing} {
		cfg := DefaultConfig(chain)
		assert.True(t, IsCode(cfg.Validate(), CodeInvalidConfig), "no validators should be rejected")

		cfg.Validators = []Validator{testValidator(legacy.MustParseAddress("0x1234"))}
		assert.NoError(t, cfg.Validate(), chain)
		assert.Equal(t, chain.ChainID(), cfg.ChainID)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown chain", func(c *Config) { c.Chain = "moonnet" }},
		{"zero chain id", func(c *Config) { c.ChainID = 0 }},
		{"zero epoch", func(c *Config) { c.EpochDurationSecs = 0 }},
		{"min above max", func(c *Config) { c.MinStake = 10; c.MaxStake = 5 }},
		{"proposer stake out of range", func(c *Config) { c.MaxStake = 1000; c.RequiredProposerStake = 2000 }},
		{"lockup shorter than epoch", func(c *Config) { c.RecurringLockupDurationSecs = 10 }},
		{"voting longer than lockup", func(c *Config) { c.VotingDurationSecs = c.RecurringLockupDurationSecs }},
		{"apy above 100", func(c *Config) { c.RewardsAPYPercentage = 101 }},
		{"voting power limit zero", func(c *Config) { c.VotingPowerIncreaseLimit = 0 }},
		{"voting power limit above 50", func(c *Config) { c.VotingPowerIncreaseLimit = 51 }},
		{"escrow above 100", func(c *Config) { c.Supply.EscrowPct = 101 }},
		{"target supply too large", func(c *Config) { c.Supply.TargetSupply = 1 << 63 }},
		{"duplicate gas entry", func(c *Config) {
			c.GasSchedule.Entries = append(c.GasSchedule.Entries, c.GasSchedule.Entries[0])
		}},
		{"duplicate validator owner", func(c *Config) { c.Validators = append(c.Validators, c.Validators[0]) }},
		{"validator stake below min", func(c *Config) { c.MinStake = 500; c.RequiredProposerStake = 500 }},
		{"validator without pubkey", func(c *Config) { c.Validators[0].ConsensusPubkey = "" }},
		{"no coin symbol", func(c *Config) { c.Coin.Symbol = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsCode(err, CodeInvalidConfig), err.Error())
		})
	}
}

const validCUE = `
chain: "testnet"
min_stake: 10
max_stake: 1000000
required_proposer_stake: 10
validators: [{
	owner_address:    "0xf1"
	auth_key:         "f1"
	consensus_pubkey: "0xabcd"
	network_addresses: ["/ip4/10.0.0.1/tcp/6180"]
	stake:            100
}]
supply: target_supply: 1000000
`

func writeCUE(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeCUE(t, validCUE))
	require.NoError(t, err)

	assert.Equal(t, Testnet, cfg.Chain)
	assert.Equal(t, uint8(2), cfg.ChainID)
	assert.Equal(t, uint64(10), cfg.MinStake)
	assert.Equal(t, uint64(86400), cfg.EpochDurationSecs)
	assert.Equal(t, "leader_reputation", cfg.Consensus.ProposerElectionType)
	assert.Len(t, cfg.GasSchedule.Entries, 4)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 8, 9}, cfg.Features)
	require.Len(t, cfg.Validators, 1)
	assert.Equal(t, legacy.MustParseAddress("0xf1"), cfg.Validators[0].OwnerAddress)
	assert.Nil(t, cfg.Validators[0].OperatorAddress)
	assert.Equal(t, uint64(1000000), cfg.Supply.TargetSupply)
}

func TestLoadConfig_MatchesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeCUE(t, `
chain: "mainnet"
validators: [{owner_address: "0xf1", auth_key: "f1", consensus_pubkey: "pk", stake: 1}]
`))
	require.NoError(t, err)

	want := DefaultConfig(Mainnet)
	want.Validators = cfg.Validators
	assert.Equal(t, want, cfg)
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax error", `chain: "testing`},
		{"unknown chain", `chain: "moonnet"`},
		{"voting power limit out of range", validCUE + "\nvoting_power_increase_limit: 80\n"},
		{"bad address", `validators: [{owner_address: "0xzz", auth_key: "f1", consensus_pubkey: "pk", stake: 1}]`},
		{"no validators", `chain: "testing"`},
		{"cross-field constraint", validCUE + "\nvoting_duration_secs: 90000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeCUE(t, tt.src))
			require.Error(t, err)
			assert.True(t, IsCode(err, CodeInvalidConfig), err.Error())
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.cue"))
	assert.True(t, IsCode(err, CodeInvalidConfig))
}
