package genesis

import (
	"fmt"
	"os"
	"strings"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/natives"
)

// WriteArtifact writes cs as canonical JSON. Identical change sets give
// byte-identical files.
func WriteArtifact(path string, cs *changeset.ChangeSet) error {
	data, err := cs.Encode()
	if err != nil {
		return fmt.Errorf("encode genesis: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write genesis: %w", err)
	}
	return nil
}

// ReadArtifact reads a genesis artifact and checks its invariants.
func ReadArtifact(path string) (*changeset.ChangeSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	cs, err := changeset.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode genesis %s: %w", path, err)
	}
	if err := Verify(cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// Verify checks every invariant of a finished artifact.
func Verify(cs *changeset.ChangeSet) error {
	if n := cs.Deletions(); n > 0 {
		return &Error{Code: CodeUnexpectedDeletion, Message: fmt.Sprintf("artifact deletes %d keys", n)}
	}
	if cs.HasDeltas() {
		return &Error{Code: CodeUnexpectedDelta, Message: "artifact has unresolved deltas"}
	}
	if err := VerifyGenesisWriteSet(cs.Events()); err != nil {
		return err
	}
	return verifyWrites(cs, nil)
}

// Summary describes an artifact for reports.
type Summary struct {
	Hash       string `json:"hash"`
	Writes     int    `json:"writes"`
	Events     int    `json:"events"`
	Accounts   int    `json:"accounts"`
	Modules    int    `json:"modules"`
	Validators int    `json:"validators"`
}

// Summarize counts what an artifact contains.
func Summarize(cs *changeset.ChangeSet) (Summary, error) {
	hash, err := cs.Hash()
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		Hash:   hash.String(),
		Writes: cs.Len(),
		Events: len(cs.Events()),
	}
	for _, k := range cs.Keys() {
		switch {
		case k.Kind() == changeset.KindModule:
			s.Modules++
		case strings.HasSuffix(string(k), "/"+natives.TagAccount):
			s.Accounts++
		}
	}
	if op, ok := cs.Get(natives.ValidatorSetKey); ok {
		set, err := ir.ParseObject(op.Value)
		if err != nil {
			return Summary{}, fmt.Errorf("validator set: %w", err)
		}
		active, _ := set["active_validators"].(ir.Array)
		s.Validators = len(active)
	}
	return s, nil
}
