package vm

import (
	"context"
	"fmt"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/framework"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/legacy"
)

type nativeSession struct {
	engine   *NativeEngine
	view     StateView
	id       SessionID
	changes  *changeset.ChangeSet
	handles  uint64
	finished bool
}

func (s *nativeSession) Execute(ctx context.Context, fn FunctionID, args ir.Object) error {
	if s.finished {
		return ErrSessionFinished
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("execute %s: %w", fn, err)
	}

	published, err := s.moduleExists(ctx, fn.Module)
	if err != nil {
		return fmt.Errorf("execute %s: %w", fn, err)
	}
	if !published {
		return &ExecError{
			Code:     CodeModuleNotPublished,
			Function: fn.String(),
			Message:  fmt.Sprintf("module %s is not published", fn.Module),
		}
	}

	native, ok := s.engine.natives.Lookup(fn)
	if !ok {
		return &ExecError{
			Code:     CodeFunctionNotFound,
			Function: fn.String(),
			Message:  "no native registered",
		}
	}

	// Effects land in pending and are merged only on success.
	call := &Call{ctx: ctx, session: s, pending: changeset.New()}
	if err := native(call, args); err != nil {
		s.engine.logger.Debug("function aborted",
			"function", fn.String(),
			"session", s.id.String(),
			"error", err)
		return &ExecError{Code: CodeAborted, Function: fn.String(), Err: err}
	}
	if err := s.changes.Absorb(call.pending); err != nil {
		return fmt.Errorf("execute %s: merge effects: %w", fn, err)
	}

	s.engine.logger.Debug("function executed",
		"function", fn.String(),
		"writes", call.pending.Len(),
		"events", len(call.pending.Events()))
	return nil
}

func (s *nativeSession) PublishModuleBundle(modules []framework.Module, sender legacy.Address) error {
	if s.finished {
		return ErrSessionFinished
	}
	if len(modules) == 0 {
		return &ExecError{Code: CodeInvalidPublish, Message: "empty module bundle"}
	}

	pending := changeset.New()
	for _, m := range modules {
		if m.Address != sender {
			return &ExecError{
				Code:    CodeInvalidPublish,
				Message: fmt.Sprintf("module %s is not owned by sender %s", m.ID(), sender.Short()),
			}
		}
		if m.Name == "" || len(m.Code) == 0 {
			return &ExecError{
				Code:    CodeInvalidPublish,
				Message: fmt.Sprintf("module %s has no name or code", m.ID()),
			}
		}
		val, err := EncodeModule(m)
		if err != nil {
			return fmt.Errorf("publish %s: %w", m.ID(), err)
		}
		pending.Put(changeset.ModuleKey(m.Address, m.Name), changeset.Write(val))
	}
	if err := s.changes.Absorb(pending); err != nil {
		return fmt.Errorf("publish bundle: %w", err)
	}

	s.engine.logger.Debug("module bundle published",
		"sender", sender.Short(),
		"modules", len(modules),
		"session", s.id.String())
	return nil
}

func (s *nativeSession) Finish() (*changeset.ChangeSet, error) {
	if s.finished {
		return nil, ErrSessionFinished
	}
	s.finished = true
	return s.changes, nil
}

func (s *nativeSession) moduleExists(ctx context.Context, id framework.ModuleID) (bool, error) {
	key := changeset.ModuleKey(id.Address, id.Name)
	if op, ok := s.changes.Get(key); ok {
		return !op.IsDeletion(), nil
	}
	_, ok, err := s.view.Get(ctx, key)
	return ok, err
}
