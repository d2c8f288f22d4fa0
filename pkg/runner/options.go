package runner

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/aretw0/tendril/pkg/tools"
)

// DefaultMaxIterations caps model round-trips per workflow.
const DefaultMaxIterations = 50

// Mode selects whether mutating tools need approval.
type Mode string

const (
	// ModeAgent runs every tool without asking.
	ModeAgent Mode = "agent"
	// ModeApproval pauses before each tool that requires approval.
	ModeApproval Mode = "approval"
)

// ParseMode accepts "agent" or "approval", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAgent, "":
		return ModeAgent, nil
	case ModeApproval:
		return ModeApproval, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", domain.ErrValidation, s)
}

// Limits bounds how much of a tool payload is echoed back to the model.
type Limits struct {
	ListEntries   int `json:"list_entries" yaml:"list_entries" toml:"list_entries"`
	ReadChars     int `json:"read_chars" yaml:"read_chars" toml:"read_chars"`
	SearchMatches int `json:"search_matches" yaml:"search_matches" toml:"search_matches"`
	ResultTokens  int `json:"result_tokens" yaml:"result_tokens" toml:"result_tokens"`
}

// DefaultLimits are used for any zero field.
var DefaultLimits = Limits{ListEntries: 50, ReadChars: 10000, SearchMatches: 50, ResultTokens: 2000}

func (l Limits) withDefaults() Limits {
	if l.ListEntries <= 0 {
		l.ListEntries = DefaultLimits.ListEntries
	}
	if l.ReadChars <= 0 {
		l.ReadChars = DefaultLimits.ReadChars
	}
	if l.SearchMatches <= 0 {
		l.SearchMatches = DefaultLimits.SearchMatches
	}
	if l.ResultTokens <= 0 {
		l.ResultTokens = DefaultLimits.ResultTokens
	}
	return l
}

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithRegistry replaces the built-in tool catalog.
func WithRegistry(reg *tools.Registry) Option {
	return func(r *Runner) {
		r.registry = reg
	}
}

// WithObserver configures the progress observer.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithApprover configures who decides on mutating tools in approval mode.
func WithApprover(a Approver) Option {
	return func(r *Runner) {
		r.approver = a
	}
}

// WithInterceptor adds a policy that runs before the approval gate.
func WithInterceptor(i ToolInterceptor) Option {
	return func(r *Runner) {
		r.interceptor = i
	}
}

// WithHooks configures lifecycle hooks, typically metrics.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(r *Runner) {
		r.hooks = h
	}
}

// WithMode sets agent or approval mode.
func WithMode(m Mode) Option {
	return func(r *Runner) {
		r.mode = m
	}
}

// WithMaxIterations overrides DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxIterations = n
		}
	}
}

// WithLimits configures tool result truncation.
func WithLimits(l Limits) Option {
	return func(r *Runner) {
		r.limits = l.withDefaults()
	}
}

// WithModel names the model passed to the transport.
func WithModel(model string) Option {
	return func(r *Runner) {
		r.model = model
	}
}

// WithSystemPrompt replaces the generated system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(r *Runner) {
		r.system = prompt
	}
}

// WithRequestOptions sets sampling options for every turn.
func WithRequestOptions(o ports.Options) Option {
	return func(r *Runner) {
		r.reqOpts = o
	}
}

// WithParallelTools runs a batch of calls concurrently, partitioned by path.
func WithParallelTools(enabled bool) Option {
	return func(r *Runner) {
		r.parallel = enabled
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithSession persists the conversation under id after every message.
func WithSession(mgr *session.Manager, id string) Option {
	return func(r *Runner) {
		r.sessions = mgr
		r.sessionID = id
	}
}
