package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reforge/internal/genesis"
	"github.com/roach88/reforge/internal/legacy"
)

// Scenario is one migration conformance case.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Chain selects DefaultConfig. Defaults to "testing".
	Chain string `yaml:"chain,omitempty"`

	// Snapshot is a recovery file path, resolved relative to the
	// scenario file. Mutually exclusive with Records.
	Snapshot string `yaml:"snapshot,omitempty"`

	// Records is an inline recovery snapshot.
	Records []map[string]any `yaml:"records,omitempty"`

	// Drop lists addresses to tombstone.
	Drop []string `yaml:"drop,omitempty"`

	// Config is a CUE genesis configuration, resolved relative to the
	// scenario file. When empty the chain defaults are used.
	Config string `yaml:"config,omitempty"`

	// Validators replace the configuration's validators when set.
	Validators []ValidatorStep `yaml:"validators,omitempty"`

	// Supply replaces the configuration's supply settings when set.
	Supply *SupplyStep `yaml:"supply,omitempty"`

	// Framework is the framework revision published at genesis.
	// Defaults to 1.
	Framework int `yaml:"framework,omitempty"`

	// Rescue, when set, commits the genesis to a scratch ledger and
	// upgrades it through a rescue bootstrap.
	Rescue *RescueStep `yaml:"rescue,omitempty"`

	// ExpectError is the genesis error code the run must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ValidatorStep is a genesis validator in scenario form. AuthKey defaults
// to the key derived from Owner.
type ValidatorStep struct {
	Owner            string   `yaml:"owner"`
	Operator         string   `yaml:"operator,omitempty"`
	AuthKey          string   `yaml:"auth_key,omitempty"`
	ConsensusPubkey  string   `yaml:"consensus_pubkey,omitempty"`
	NetworkAddresses []string `yaml:"network_addresses,omitempty"`
	Stake            uint64   `yaml:"stake"`
}

// SupplyStep mirrors genesis.SupplySettings.
type SupplyStep struct {
	TargetSupply uint64 `yaml:"target_supply"`
	EscrowPct    uint64 `yaml:"escrow_pct"`
}

// RescueStep upgrades the framework after genesis.
type RescueStep struct {
	Framework int `yaml:"framework"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Address and Resource select a resource (resource, absent).
	Address  string `yaml:"address,omitempty"`
	Resource string `yaml:"resource,omitempty"`

	// Expect holds expected fields (resource, summary). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Events is the expected event type order (event_order).
	Events []string `yaml:"events,omitempty"`

	// Event and Count drive event_count.
	Event string `yaml:"event,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// Addresses is the exact list for clamped and dropped.
	Addresses []string `yaml:"addresses,omitempty"`

	// Version is the expected final ledger version (ledger_version).
	Version *uint64 `yaml:"version,omitempty"`
}

// Assertion type constants.
const (
	AssertResource      = "resource"
	AssertAbsent        = "absent"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
	AssertClamped       = "clamped"
	AssertDropped       = "dropped"
	AssertSummary       = "summary"
	AssertLedgerVersion = "ledger_version"
)

// LoadScenario reads and parses a scenario YAML file. Relative snapshot
// and config paths are resolved against the file's directory. Unknown
// fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for _, p := range []*string{&scenario.Snapshot, &scenario.Config} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	for _, p := range []string{scenario.Snapshot, scenario.Config} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: file not found: %s", p)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Chain != "" {
		if _, err := genesis.ParseNamedChain(s.Chain); err != nil {
			return err
		}
	}
	if s.Snapshot != "" && len(s.Records) > 0 {
		return fmt.Errorf("snapshot and records are mutually exclusive")
	}
	if s.ExpectError == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}
	if s.Framework < 0 {
		return fmt.Errorf("framework revision must be non-negative")
	}
	if s.Rescue != nil && s.Rescue.Framework <= 0 {
		return fmt.Errorf("rescue.framework must be positive")
	}

	for i, a := range s.Drop {
		if _, err := legacy.ParseAddress(a); err != nil {
			return fmt.Errorf("drop[%d]: %w", i, err)
		}
	}
	for i, v := range s.Validators {
		if v.Owner == "" {
			return fmt.Errorf("validators[%d]: owner is required", i)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, s); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, s *Scenario) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertResource, AssertAbsent:
		if a.Address == "" || a.Resource == "" {
			return fmt.Errorf("assertions[%d]: address and resource are required for %s", index, a.Type)
		}
		if a.Type == AssertResource && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for resource", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertClamped, AssertDropped:
		// An empty list asserts nothing was repaired.
	case AssertSummary:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for summary", index)
		}
	case AssertLedgerVersion:
		if a.Version == nil {
			return fmt.Errorf("assertions[%d]: version is required for ledger_version", index)
		}
		if s.Rescue == nil {
			return fmt.Errorf("assertions[%d]: ledger_version requires a rescue step", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
