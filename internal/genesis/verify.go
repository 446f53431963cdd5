package genesis

import (
	"fmt"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/framework"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/natives"
)

// VerifyGenesisWriteSet checks the event sequence of a genesis artifact:
// exactly one GenesisEndEvent, followed later by exactly one
// NewEpochEvent with sequence number 0 and epoch 1 as the final event.
func VerifyGenesisWriteSet(events []changeset.Event) error {
	fail := func(format string, a ...any) error {
		return &Error{Code: CodeWriteSetVerification, Message: fmt.Sprintf(format, a...)}
	}
	if len(events) == 0 {
		return fail("genesis emitted no events")
	}

	endAt, epochs, ends := -1, 0, 0
	for i, ev := range events {
		switch ev.Type {
		case natives.GenesisEndEvent:
			ends++
			endAt = i
		case natives.NewEpochEvent:
			epochs++
		}
	}
	if ends != 1 {
		return fail("want exactly one %s, got %d", natives.GenesisEndEvent, ends)
	}
	if epochs != 1 {
		return fail("want exactly one %s, got %d", natives.NewEpochEvent, epochs)
	}

	last := events[len(events)-1]
	if last.Type != natives.NewEpochEvent {
		return fail("last event is %s, want %s", last.Type, natives.NewEpochEvent)
	}
	if last.Seq != 0 {
		return fail("%s has sequence number %d, want 0", natives.NewEpochEvent, last.Seq)
	}
	if epoch, ok := last.Data["epoch"].(ir.Int); !ok || epoch != 1 {
		return fail("%s does not start epoch 1", natives.NewEpochEvent)
	}
	if endAt >= len(events)-1 {
		return fail("%s must precede %s", natives.GenesisEndEvent, natives.NewEpochEvent)
	}
	return nil
}

// verifyWrites checks that the artifact holds the core resources and
// every published module.
func verifyWrites(cs *changeset.ChangeSet, modules []framework.Module) error {
	required := []changeset.StateKey{
		natives.ChainIDKey,
		natives.ConfigurationKey,
		natives.GenesisStateKey,
		natives.ValidatorSetKey,
		natives.CoinInfoKey,
	}
	for _, m := range modules {
		required = append(required, changeset.ModuleKey(m.Address, m.Name))
	}
	for _, key := range required {
		if _, ok := cs.Get(key); !ok {
			return &Error{Code: CodeWriteSetVerification, Message: fmt.Sprintf("missing %s", key)}
		}
	}
	return nil
}
