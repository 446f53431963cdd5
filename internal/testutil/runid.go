package testutil

// FixedRunIDGenerator returns the same run id every time.
//
// Unlike ledger.FixedGenerator, which returns ids in sequence, this
// generator never runs out. Only one commit per run id succeeds, so it
// suits tests that commit once per ledger.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id. An empty id becomes
// "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate implements ledger.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
