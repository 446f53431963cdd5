package rescue

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/reforge/internal/framework"
	"github.com/roach88/reforge/internal/ir"
	"github.com/roach88/reforge/internal/ledger"
	"github.com/roach88/reforge/internal/legacy"
	"github.com/roach88/reforge/internal/natives"
	"github.com/roach88/reforge/internal/vm"
)

// Computation produces a state transition through session. It must not
// call Finish.
type Computation func(ctx context.Context, session vm.Session) error

type config struct {
	engine vm.Engine
	logger *slog.Logger
	runIDs ledger.RunIDGenerator
}

// Option configures compute and bootstrap runs.
type Option func(*config)

// WithEngine sets the execution engine. Defaults to the native engine
// over natives.Standard().
func WithEngine(e vm.Engine) Option {
	return func(c *config) { c.engine = e }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithRunIDs sets the generator for commit run ids. Defaults to UUIDv7.
func WithRunIDs(g ledger.RunIDGenerator) Option {
	return func(c *config) { c.runIDs = g }
}

func newConfig(opts []Option) *config {
	c := &config{
		logger: slog.Default(),
		runIDs: ledger.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = vm.New(natives.Standard(), vm.WithLogger(c.logger))
	}
	return c
}

// SessionFor returns the session id a rescue run uses at base.
func SessionFor(base uint64) vm.SessionID {
	return vm.DeriveSessionID(fmt.Sprintf("rescue/%d", base))
}

// ComputePayload opens the ledger at dbPath read-only and runs compute
// against its latest version. The ledger is never written.
func ComputePayload(ctx context.Context, dbPath string, compute Computation, opts ...Option) (*Payload, error) {
	cfg := newConfig(opts)

	db, err := ledger.OpenReadOnly(dbPath)
	if err != nil {
		return nil, fmt.Errorf("compute payload: %w", err)
	}
	defer db.Close()

	base, err := db.LatestVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute payload: %w", err)
	}
	view, err := db.StateView(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("compute payload: %w", err)
	}

	session := cfg.engine.NewSession(view, SessionFor(base))
	if err := compute(ctx, session); err != nil {
		return nil, fmt.Errorf("compute payload at version %d: %w", base, err)
	}
	cs, err := session.Finish()
	if err != nil {
		return nil, fmt.Errorf("compute payload: %w", err)
	}

	p := &Payload{BaseVersion: base, ChangeSet: cs}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("compute payload: %w", err)
	}

	cfg.logger.Info("rescue payload computed",
		"db", dbPath,
		"base_version", base,
		"writes", cs.Len(),
		"events", len(cs.Events()))
	return p, nil
}

// PublishFramework returns a computation that publishes bundle at the
// core address and starts a new epoch so the upgrade takes effect.
func PublishFramework(bundle *framework.Bundle) Computation {
	return func(ctx context.Context, session vm.Session) error {
		if err := session.PublishModuleBundle(bundle.CodeAndModules(), legacy.CoreAddress); err != nil {
			return fmt.Errorf("publish %s: %w", bundle.Name, err)
		}
		return session.Execute(ctx, natives.Reconfigure, ir.Object{})
	}
}

// StdlibPayload computes a payload that upgrades the framework to bundle.
func StdlibPayload(ctx context.Context, dbPath string, bundle *framework.Bundle, opts ...Option) (*Payload, error) {
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("stdlib payload: %w", err)
	}
	return ComputePayload(ctx, dbPath, PublishFramework(bundle), opts...)
}

// ComputeAll runs ComputePayload over each database concurrently. Each
// run opens its own handle. Results keep the order of dbPaths; the first
// failure cancels the rest.
func ComputeAll(ctx context.Context, dbPaths []string, compute Computation, opts ...Option) ([]*Payload, error) {
	payloads := make([]*Payload, len(dbPaths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range dbPaths {
		g.Go(func() error {
			p, err := ComputePayload(ctx, path, compute, opts...)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			payloads[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return payloads, nil
}
