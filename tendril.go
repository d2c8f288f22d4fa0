package tendril

import (
	"log/slog"

	"github.com/aretw0/tendril/pkg/fileops"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/spf13/afero"
)

// Version is the release version, set at build time with
// -ldflags "-X github.com/aretw0/tendril.Version=v0.4.0".
var Version = "dev"

type options struct {
	fs         afero.Fs
	logger     *slog.Logger
	runnerOpts []runner.Option
}

// Option configures New.
type Option func(*options)

// WithFs runs the workspace on fs instead of the operating system.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithLogger sets the logger of both the workspace and the runner.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRunnerOptions passes options through to runner.New.
func WithRunnerOptions(opts ...runner.Option) Option {
	return func(o *options) { o.runnerOpts = append(o.runnerOpts, opts...) }
}

// New builds a runner over the project rooted at root, talking to the model
// through transport. It is the shortest path to embedding tendril; the
// pkg/ packages expose every piece for finer control.
func New(root string, transport ports.Transport, opts ...Option) (*runner.Runner, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var wsOpts []fileops.Option
	var runOpts []runner.Option
	if o.fs != nil {
		wsOpts = append(wsOpts, fileops.WithFs(o.fs))
	}
	if o.logger != nil {
		wsOpts = append(wsOpts, fileops.WithLogger(o.logger))
		runOpts = append(runOpts, runner.WithLogger(o.logger))
	}
	ws, err := fileops.New(root, wsOpts...)
	if err != nil {
		return nil, err
	}
	return runner.New(transport, ws, append(runOpts, o.runnerOpts...)...)
}
