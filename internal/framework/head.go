package framework

import (
	"fmt"

	"github.com/roach88/reforge/internal/legacy"
)

// Framework module names. The natives package implements the entry
// functions these modules expose.
const (
	ModAccount         = "account"
	ModChainID         = "chain_id"
	ModCoin            = "coin"
	ModConsensusConfig = "consensus_config"
	ModExecutionConfig = "execution_config"
	ModFeatures        = "features"
	ModGasSchedule     = "gas_schedule"
	ModGenesis         = "genesis"
	ModGovernance      = "governance"
	ModLegacy          = "legacy"
	ModReconfiguration = "reconfiguration"
	ModSlowWallet      = "slow_wallet"
	ModStake           = "stake"
	ModSupply          = "supply"
)

// HeadModules lists the modules of the in-tree release, in publish order.
var HeadModules = []string{
	ModAccount,
	ModChainID,
	ModCoin,
	ModConsensusConfig,
	ModExecutionConfig,
	ModFeatures,
	ModGasSchedule,
	ModGovernance,
	ModLegacy,
	ModReconfiguration,
	ModSlowWallet,
	ModStake,
	ModSupply,
	ModGenesis,
}

// Head returns the in-tree release bundle at the given revision. Module
// code is a stable placeholder per revision; the reference engine runs
// these modules natively.
func Head(revision int) *Bundle {
	b := &Bundle{Name: fmt.Sprintf("head-r%d", revision)}
	for _, name := range HeadModules {
		b.Modules = append(b.Modules, Module{
			Address: legacy.CoreAddress,
			Name:    name,
			Code:    []byte(fmt.Sprintf("reforge-module:%s:r%d", name, revision)),
		})
	}
	return b
}
