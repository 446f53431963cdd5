package vm

import (
	"context"
	"log/slog"

	"github.com/roach88/reforge/internal/changeset"
	"github.com/roach88/reforge/internal/framework"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/legacy"
)

// Engine opens execution sessions.
type Engine interface {
	NewSession(view StateView, id SessionID) Session
}

// Session executes functions and accumulates their effects.
//
// Thread-safety: a session is used by one goroutine at a time.
type Session interface {
	// Execute runs fn with args. The function's module must be published
	// in the view or earlier in this session.
	Execute(ctx context.Context, fn FunctionID, args ir.Object) error

	// PublishModuleBundle writes every module under sender. Each module's
	// address must equal sender.
	PublishModuleBundle(modules []framework.Module, sender legacy.Address) error

	// Finish closes the session and returns its change set.
	Finish() (*changeset.ChangeSet, error)
}

// NativeFunc implements one entry function.
type NativeFunc func(call *Call, args ir.Object) error

// Registry resolves functions to natives.
type Registry interface {
	Lookup(fn FunctionID) (NativeFunc, bool)
}

// NativeEngine is the reference Engine: it resolves every function to a
// Go native from its registry.
type NativeEngine struct {
	natives Registry
	logger  *slog.Logger
}

// Option configures a NativeEngine.
type Option func(*NativeEngine)

// WithLogger sets the engine logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *NativeEngine) {
		e.logger = l
	}
}

// New returns an engine backed by natives.
func New(natives Registry, opts ...Option) *NativeEngine {
	e := &NativeEngine{
		natives: natives,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewSession implements Engine.
func (e *NativeEngine) NewSession(view StateView, id SessionID) Session {
	return &nativeSession{
		engine:  e,
		view:    view,
		id:      id,
		changes: changeset.New(),
	}
}

var _ Engine = (*NativeEngine)(nil)
