// Package cli wires configuration into the runtime pieces used by the
// tendril commands: workspace, transport, session store, metrics and
// runners.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/tendril/internal/config"
	"github.com/aretw0/tendril/pkg/fileops"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/aretw0/tendril/pkg/tools"
	"github.com/aretw0/tendril/pkg/transport"
)

// Runtime holds everything a runner needs, built once per process.
type Runtime struct {
	Config    *config.Config
	Workspace *fileops.Workspace
	Transport ports.Transport
	Registry  *tools.Registry
	Sessions  *session.Manager
	Metrics   *observability.Metrics
	Logger    *slog.Logger

	mode        runner.Mode
	persistence *Persistence
}

// RuntimeOption overrides a runtime dependency, mostly for tests.
type RuntimeOption func(*Runtime)

// WithTransport replaces the transport built from the configuration.
func WithTransport(t ports.Transport) RuntimeOption {
	return func(rt *Runtime) { rt.Transport = t }
}

// WithWorkspace replaces the workspace rooted at Config.Root.
func WithWorkspace(ws *fileops.Workspace) RuntimeOption {
	return func(rt *Runtime) { rt.Workspace = ws }
}

// NewRuntime validates cfg and builds the runtime it describes.
func NewRuntime(cfg *config.Config, logger *slog.Logger, opts ...RuntimeOption) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	mode, err := runner.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{
		Config:   cfg,
		Registry: tools.Default(),
		Metrics:  observability.NewMetrics(nil),
		Logger:   logger,
		mode:     mode,
	}
	for _, opt := range opts {
		opt(rt)
	}

	if rt.Workspace == nil {
		ws, err := fileops.New(cfg.Root, fileops.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		rt.Workspace = ws
	}
	if rt.Transport == nil {
		t, err := transport.New(cfg.TransportConfig(), nil, logger)
		if err != nil {
			return nil, err
		}
		rt.Transport = t
	}

	p, err := OpenStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	rt.persistence = p
	sessOpts := []session.Option{session.WithLogger(logger)}
	if p.Locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(p.Locker))
	}
	rt.Sessions = session.NewManager(p.Store, sessOpts...)
	return rt, nil
}

// Mode is the configured execution mode.
func (rt *Runtime) Mode() runner.Mode { return rt.mode }

// NewRunner builds a runner for sessionID. An empty sessionID runs without
// persistence. Approval mode needs a non-nil approver.
func (rt *Runtime) NewRunner(sessionID string, obs runner.Observer, approver runner.Approver) (*runner.Runner, error) {
	cfg := rt.Config
	opts := []runner.Option{
		runner.WithRegistry(rt.Registry),
		runner.WithMode(rt.mode),
		runner.WithMaxIterations(cfg.MaxIterations),
		runner.WithLimits(cfg.Limits),
		runner.WithParallelTools(cfg.ParallelTools),
		runner.WithHooks(observability.Chain(rt.Metrics.Hooks(), observability.LogHooks(rt.Logger))),
		runner.WithLogger(rt.Logger),
	}
	if cfg.Model != "" {
		opts = append(opts, runner.WithModel(cfg.Model))
	}
	if obs != nil {
		opts = append(opts, runner.WithObserver(obs))
	}
	if approver != nil {
		opts = append(opts, runner.WithApprover(approver))
	}
	if sessionID != "" {
		opts = append(opts, runner.WithSession(rt.Sessions, sessionID))
	}
	return runner.New(rt.Transport, rt.Workspace, opts...)
}

// Factory adapts NewRunner to the HTTP server, which resumes stored sessions.
func (rt *Runtime) Factory() func(ctx context.Context, sessionID string, obs runner.Observer, approver runner.Approver) (*runner.Runner, error) {
	return func(ctx context.Context, sessionID string, obs runner.Observer, approver runner.Approver) (*runner.Runner, error) {
		return rt.NewRunner(sessionID, obs, approver)
	}
}

// Close releases the session store.
func (rt *Runtime) Close() error {
	if rt.persistence == nil {
		return nil
	}
	return rt.persistence.Close()
}
